package reservation

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/event"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza atomicidad entre el nivel de stock,
// sus movimientos y la contabilidad de retenciones.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		levelRepo repository.StockLevelRepository,
		movRepo repository.StockMovementRepository,
		holdRepo repository.OrderReservationRepository,
	) error) error

	// WithLockedStockLevel bloquea (creando si hace falta) el nivel de la
	// tripleta y persiste el agregado mutado al salir, verificando el invariante.
	WithLockedStockLevel(ctx context.Context, companyID, itemID, warehouseID, locationID string, fn func(
		level *entity.StockLevel,
		movRepo repository.StockMovementRepository,
		holdRepo repository.OrderReservationRepository,
	) error) error
}

// Publisher publica eventos de dominio en el bus. La publicación ocurre solo
// después del commit; un rollback no publica nada.
type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// Catalog resuelve la bodega/ubicación por defecto de un ítem (servicio de
// catálogo externo). Nunca se invoca con un bloqueo de stock sostenido.
type Catalog interface {
	ResolveLocation(ctx context.Context, companyID, itemID string) (warehouseID, locationID string, err error)
}
