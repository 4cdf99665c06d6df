package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.SalesOrderRepository = (*SalesOrderRepo)(nil)

// SalesOrderRepo es el adaptador angosto hacia la tabla del contexto de ventas.
// Solo lo que la saga necesita: leer el pedido y volcarlo a CANCELLED.
type SalesOrderRepo struct {
	q Querier
}

// NewSalesOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSalesOrderRepository(q Querier) *SalesOrderRepo {
	return &SalesOrderRepo{q: q}
}

// orderLineRow es la representación JSONB de una línea en sales_orders.lines.
type orderLineRow struct {
	ItemID   string `json:"item_id"`
	Quantity string `json:"quantity"`
}

// GetByID obtiene el pedido con sus líneas. domain.ErrNotFound si no existe.
func (r *SalesOrderRepo) GetByID(ctx context.Context, companyID, orderID string) (*entity.SalesOrder, error) {
	query := `
		SELECT id, company_id, status, lines, created_at, updated_at
		FROM sales_orders
		WHERE company_id = $1 AND id = $2`
	var o entity.SalesOrder
	var rawLines []byte
	err := r.q.QueryRow(ctx, query, companyID, orderID).Scan(
		&o.ID, &o.CompanyID, &o.Status, &rawLines, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get sales order: %w", err)
	}

	var rows []orderLineRow
	if len(rawLines) > 0 {
		if err := json.Unmarshal(rawLines, &rows); err != nil {
			return nil, fmt.Errorf("decodificar líneas del pedido: %w", err)
		}
	}
	o.Lines = make([]entity.OrderLine, 0, len(rows))
	for _, lr := range rows {
		line, err := decodeOrderLine(lr)
		if err != nil {
			return nil, err
		}
		o.Lines = append(o.Lines, line)
	}
	return &o, nil
}

func decodeOrderLine(row orderLineRow) (entity.OrderLine, error) {
	qty, err := decimal.NewFromString(row.Quantity)
	if err != nil {
		return entity.OrderLine{}, fmt.Errorf("cantidad inválida en línea %s: %w", row.ItemID, err)
	}
	return entity.OrderLine{ItemID: row.ItemID, Quantity: qty}, nil
}

// UpdateStatus cambia el estado del pedido (usado por la cancelación en cascada).
func (r *SalesOrderRepo) UpdateStatus(ctx context.Context, orderID, status string) error {
	query := `UPDATE sales_orders SET status = $2, updated_at = now() WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, orderID, status)
	if err != nil {
		return fmt.Errorf("update sales order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
