package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
// El libro es append-only: este adaptador no expone UPDATE ni DELETE.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste una entrada del libro de movimientos.
func (r *StockMovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, stock_level_id, actor_id, type, quantity_change, quantity_after_move, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	actorID := (*string)(nil)
	if movement.ActorID != "" {
		actorID = &movement.ActorID
	}
	reference := (*string)(nil)
	if movement.Reference != "" {
		reference = &movement.Reference
	}
	_, err := r.q.Exec(ctx, query,
		movement.ID, movement.StockLevelID, actorID, movement.Type,
		movement.QuantityChange, movement.QuantityAfterMove, reference, movement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *StockMovementRepo) GetByID(ctx context.Context, id string) (*entity.StockMovement, error) {
	query := `
		SELECT id, stock_level_id, actor_id, type, quantity_change, quantity_after_move, reference, created_at
		FROM stock_movements WHERE id = $1`
	m, err := scanStockMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// ListByStockLevel lista movimientos de un nivel en orden de creación, con rango de fechas opcional.
func (r *StockMovementRepo) ListByStockLevel(ctx context.Context, stockLevelID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	query := `
		SELECT id, stock_level_id, actor_id, type, quantity_change, quantity_after_move, reference, created_at
		FROM stock_movements WHERE stock_level_id = $1`
	args := []any{stockLevelID}
	pos := 2
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements by stock level: %w", err)
	}
	defer rows.Close()
	var list []*entity.StockMovement
	for rows.Next() {
		m, err := scanStockMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanStockMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var actorID, reference *string
	err := row.Scan(&m.ID, &m.StockLevelID, &actorID, &m.Type,
		&m.QuantityChange, &m.QuantityAfterMove, &reference, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if actorID != nil {
		m.ActorID = *actorID
	}
	if reference != nil {
		m.Reference = *reference
	}
	return &m, nil
}
