package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/reservation"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ reservation.TxRunner = (*TxRunner)(nil)
	_ inventory.TxRunner   = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL. Es la
// frontera de atomicidad del libro: el nivel mutado y sus movimientos se
// persisten juntos o no se persiste nada.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Un lock_timeout vencido en cualquier punto se devuelve como domain.ErrLockTimeout.
func (r *TxRunner) Run(ctx context.Context, fn func(
	levelRepo repository.StockLevelRepository,
	movRepo repository.StockMovementRepository,
	holdRepo repository.OrderReservationRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	levelRepo := NewStockLevelRepository(tx)
	movRepo := NewStockMovementRepository(tx)
	holdRepo := NewOrderReservationRepository(tx)

	if err := fn(levelRepo, movRepo, holdRepo); err != nil {
		if isLockNotAvailable(err) {
			return domain.ErrLockTimeout
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		if isLockNotAvailable(err) {
			return domain.ErrLockTimeout
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// WithLockedStockLevel carga (o crea perezosamente) el nivel para la tripleta
// (empresa, ítem, ubicación) bajo SELECT FOR UPDATE, invoca fn con el agregado
// bloqueado y los repos de la misma tx, verifica el invariante y persiste el
// nivel al salir. El bloqueo se libera con el Commit. Todas las mutaciones del
// agregado entran únicamente por este alcance.
func (r *TxRunner) WithLockedStockLevel(ctx context.Context, companyID, itemID, warehouseID, locationID string, fn func(
	level *entity.StockLevel,
	movRepo repository.StockMovementRepository,
	holdRepo repository.OrderReservationRepository,
) error) error {
	return r.Run(ctx, func(
		levelRepo repository.StockLevelRepository,
		movRepo repository.StockMovementRepository,
		holdRepo repository.OrderReservationRepository,
	) error {
		level, err := levelRepo.GetOrCreateForUpdate(ctx, companyID, itemID, warehouseID, locationID)
		if err != nil {
			return err
		}
		if err := fn(level, movRepo, holdRepo); err != nil {
			return err
		}
		if err := level.CheckInvariant(); err != nil {
			return err
		}
		return levelRepo.Save(ctx, level)
	})
}
