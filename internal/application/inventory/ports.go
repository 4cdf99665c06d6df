package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/event"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza atomicidad para el motor de inventario.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		levelRepo repository.StockLevelRepository,
		movRepo repository.StockMovementRepository,
		holdRepo repository.OrderReservationRepository,
	) error) error

	WithLockedStockLevel(ctx context.Context, companyID, itemID, warehouseID, locationID string, fn func(
		level *entity.StockLevel,
		movRepo repository.StockMovementRepository,
		holdRepo repository.OrderReservationRepository,
	) error) error
}

// Publisher publica eventos de dominio tras el commit.
type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}
