package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// OrderReservationRepository define el puerto de la contabilidad de retenciones
// por pedido. Toda mutación ocurre bajo el bloqueo del nivel de stock asociado.
type OrderReservationRepository interface {
	// GetForOrder devuelve todas las retenciones vigentes de un pedido.
	GetForOrder(ctx context.Context, companyID, orderID string) ([]*entity.OrderReservation, error)

	// Get devuelve la retención del pedido sobre un nivel concreto, o nil si no hay.
	Get(ctx context.Context, companyID, orderID, itemID, locationID string) (*entity.OrderReservation, error)

	// Upsert crea o actualiza la retención; si queda vacía se elimina la fila.
	Upsert(ctx context.Context, reservation *entity.OrderReservation) error
}
