package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia del libro de movimientos.
// El libro es append-only: solo Create; no hay Update ni Delete.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	GetByID(ctx context.Context, id string) (*entity.StockMovement, error)
	// ListByStockLevel devuelve los movimientos de un nivel en orden de creación
	// (auditoría y reconstrucción punto-en-el-tiempo).
	ListByStockLevel(ctx context.Context, stockLevelID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error)
}
