package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.OrderReservationRepository = (*OrderReservationRepo)(nil)

// OrderReservationRepo implementación de OrderReservationRepository sobre PostgreSQL.
// Se usa dentro de la transacción bloqueada: todo escritor de una fila de
// retención sostiene antes el bloqueo del nivel de stock correspondiente.
type OrderReservationRepo struct {
	q Querier
}

// NewOrderReservationRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderReservationRepository(q Querier) *OrderReservationRepo {
	return &OrderReservationRepo{q: q}
}

const orderReservationColumns = `
	id, company_id, order_id, item_id, warehouse_id, location_id,
	soft_quantity, hard_quantity, updated_at`

// GetForOrder devuelve todas las retenciones vigentes de un pedido.
func (r *OrderReservationRepo) GetForOrder(ctx context.Context, companyID, orderID string) ([]*entity.OrderReservation, error) {
	query := `
		SELECT ` + orderReservationColumns + `
		FROM order_reservations
		WHERE company_id = $1 AND order_id = $2
		ORDER BY item_id, location_id`
	rows, err := r.q.Query(ctx, query, companyID, orderID)
	if err != nil {
		return nil, fmt.Errorf("get reservations for order: %w", err)
	}
	defer rows.Close()
	var list []*entity.OrderReservation
	for rows.Next() {
		var res entity.OrderReservation
		if err := rows.Scan(&res.ID, &res.CompanyID, &res.OrderID, &res.ItemID,
			&res.WarehouseID, &res.LocationID, &res.SoftQuantity, &res.HardQuantity, &res.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order reservation: %w", err)
		}
		list = append(list, &res)
	}
	return list, rows.Err()
}

// Get devuelve la retención del pedido sobre un nivel concreto, o nil si no hay.
func (r *OrderReservationRepo) Get(ctx context.Context, companyID, orderID, itemID, locationID string) (*entity.OrderReservation, error) {
	query := `
		SELECT ` + orderReservationColumns + `
		FROM order_reservations
		WHERE company_id = $1 AND order_id = $2 AND item_id = $3 AND location_id = $4`
	var res entity.OrderReservation
	err := r.q.QueryRow(ctx, query, companyID, orderID, itemID, locationID).Scan(
		&res.ID, &res.CompanyID, &res.OrderID, &res.ItemID,
		&res.WarehouseID, &res.LocationID, &res.SoftQuantity, &res.HardQuantity, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order reservation: %w", err)
	}
	return &res, nil
}

// Upsert crea o actualiza la retención; una retención vacía elimina la fila.
func (r *OrderReservationRepo) Upsert(ctx context.Context, reservation *entity.OrderReservation) error {
	if reservation.IsEmpty() {
		query := `
			DELETE FROM order_reservations
			WHERE company_id = $1 AND order_id = $2 AND item_id = $3 AND location_id = $4`
		if _, err := r.q.Exec(ctx, query,
			reservation.CompanyID, reservation.OrderID, reservation.ItemID, reservation.LocationID); err != nil {
			return fmt.Errorf("delete order reservation: %w", err)
		}
		return nil
	}
	if reservation.ID == "" {
		reservation.ID = uuid.New().String()
	}
	query := `
		INSERT INTO order_reservations (id, company_id, order_id, item_id, warehouse_id, location_id, soft_quantity, hard_quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (company_id, order_id, item_id, location_id)
		DO UPDATE SET soft_quantity = EXCLUDED.soft_quantity,
		              hard_quantity = EXCLUDED.hard_quantity,
		              updated_at = now()`
	_, err := r.q.Exec(ctx, query,
		reservation.ID, reservation.CompanyID, reservation.OrderID, reservation.ItemID,
		reservation.WarehouseID, reservation.LocationID, reservation.SoftQuantity, reservation.HardQuantity)
	if err != nil {
		return fmt.Errorf("upsert order reservation: %w", err)
	}
	return nil
}
