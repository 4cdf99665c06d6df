package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockLevelRepository = (*StockLevelRepo)(nil)

// StockLevelRepo implementación de StockLevelRepository sobre PostgreSQL (usable con pool o tx).
type StockLevelRepo struct {
	q Querier
}

// NewStockLevelRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockLevelRepository(q Querier) *StockLevelRepo {
	return &StockLevelRepo{q: q}
}

const stockLevelColumns = `
	id, seq_id, company_id, item_id, warehouse_id, location_id,
	quantity_on_hand, quantity_reserved, quantity_soft_reserved,
	created_at, updated_at`

func scanStockLevel(row pgx.Row) (*entity.StockLevel, error) {
	var l entity.StockLevel
	err := row.Scan(
		&l.ID, &l.SeqID, &l.CompanyID, &l.ItemID, &l.WarehouseID, &l.LocationID,
		&l.QuantityOnHand, &l.QuantityReserved, &l.QuantitySoftReserved,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Get obtiene el nivel de stock sin bloquear. domain.ErrNotFound si no existe.
func (r *StockLevelRepo) Get(ctx context.Context, companyID, itemID, locationID string) (*entity.StockLevel, error) {
	query := `
		SELECT ` + stockLevelColumns + `
		FROM stock_levels
		WHERE company_id = $1 AND item_id = $2 AND location_id = $3`
	level, err := scanStockLevel(r.q.QueryRow(ctx, query, companyID, itemID, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get stock level: %w", err)
	}
	return level, nil
}

// GetOrCreateForUpdate crea la fila si no existe (creación perezosa en la primera
// operación que toca la tripleta) y la bloquea con SELECT FOR UPDATE. Un
// lock_timeout vencido se traduce a domain.ErrLockTimeout.
func (r *StockLevelRepo) GetOrCreateForUpdate(ctx context.Context, companyID, itemID, warehouseID, locationID string) (*entity.StockLevel, error) {
	insert := `
		INSERT INTO stock_levels (id, company_id, item_id, warehouse_id, location_id,
			quantity_on_hand, quantity_reserved, quantity_soft_reserved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, 0, now(), now())
		ON CONFLICT (company_id, item_id, location_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, insert, uuid.New().String(), companyID, itemID, warehouseID, locationID); err != nil {
		if isLockNotAvailable(err) {
			return nil, domain.ErrLockTimeout
		}
		return nil, fmt.Errorf("create stock level: %w", err)
	}

	query := `
		SELECT ` + stockLevelColumns + `
		FROM stock_levels
		WHERE company_id = $1 AND item_id = $2 AND location_id = $3
		FOR UPDATE`
	level, err := scanStockLevel(r.q.QueryRow(ctx, query, companyID, itemID, locationID))
	if err != nil {
		if isLockNotAvailable(err) {
			return nil, domain.ErrLockTimeout
		}
		return nil, fmt.Errorf("get stock level for update: %w", err)
	}
	return level, nil
}

// Save persiste los contadores del agregado (la fila ya está bloqueada por el caller).
func (r *StockLevelRepo) Save(ctx context.Context, level *entity.StockLevel) error {
	query := `
		UPDATE stock_levels
		SET quantity_on_hand = $2, quantity_reserved = $3, quantity_soft_reserved = $4, updated_at = now()
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		level.ID, level.QuantityOnHand, level.QuantityReserved, level.QuantitySoftReserved)
	if err != nil {
		return fmt.Errorf("save stock level: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SummaryByItem agrega los contadores de todas las ubicaciones de un ítem.
func (r *StockLevelRepo) SummaryByItem(ctx context.Context, companyID, itemID string) (*repository.StockSummary, error) {
	query := `
		SELECT COALESCE(SUM(quantity_on_hand), 0),
		       COALESCE(SUM(quantity_reserved), 0),
		       COALESCE(SUM(quantity_soft_reserved), 0)
		FROM stock_levels
		WHERE company_id = $1 AND item_id = $2`
	s := repository.StockSummary{ItemID: itemID}
	err := r.q.QueryRow(ctx, query, companyID, itemID).Scan(&s.OnHand, &s.Reserved, &s.SoftReserved)
	if err != nil {
		return nil, fmt.Errorf("stock summary: %w", err)
	}
	return &s, nil
}

// AvailabilityByLocation devuelve el disponible-para-reservar por ítem en una ubicación.
// Ítems sin fila aparecen con disponible cero.
func (r *StockLevelRepo) AvailabilityByLocation(ctx context.Context, companyID, locationID string, itemIDs []string) (map[string]decimal.Decimal, error) {
	result := make(map[string]decimal.Decimal, len(itemIDs))
	for _, id := range itemIDs {
		result[id] = decimal.Zero
	}
	if len(itemIDs) == 0 {
		return result, nil
	}
	query := `
		SELECT item_id, quantity_on_hand - quantity_reserved - quantity_soft_reserved
		FROM stock_levels
		WHERE company_id = $1 AND location_id = $2 AND item_id = ANY($3)`
	rows, err := r.q.Query(ctx, query, companyID, locationID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("availability by location: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var itemID string
		var available decimal.Decimal
		if err := rows.Scan(&itemID, &available); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		result[itemID] = available
	}
	return result, rows.Err()
}
