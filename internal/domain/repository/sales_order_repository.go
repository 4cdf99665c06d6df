package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SalesOrderRepository es la interfaz angosta hacia el agregado de pedidos del
// contexto de ventas (colaborador externo, no se posee aquí). La saga la usa
// para leer el pedido vinculado a una entrega y para volcarlo a CANCELLED en
// la transacción compensatoria.
type SalesOrderRepository interface {
	GetByID(ctx context.Context, companyID, orderID string) (*entity.SalesOrder, error)
	UpdateStatus(ctx context.Context, orderID, status string) error
}
