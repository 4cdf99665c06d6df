package saga

import (
	"context"
	"errors"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/event"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// CancelOrderUseCase es la transacción compensatoria: cuando un paso aguas
// abajo falla (la entrega se anula en logística), el pedido vinculado se vuelca
// a CANCELLED y se publica OrderCancelled, que a su vez deshace la reserva
// previamente confirmada.
type CancelOrderUseCase struct {
	orders    repository.SalesOrderRepository
	publisher Publisher
	log       *logger.Logger
}

// NewCancelOrderUseCase construye el caso de uso de cancelación.
func NewCancelOrderUseCase(orders repository.SalesOrderRepository, publisher Publisher, log *logger.Logger) *CancelOrderUseCase {
	return &CancelOrderUseCase{orders: orders, publisher: publisher, log: log.Component("cancelación")}
}

// Cancel vuelca el pedido a CANCELLED y emite OrderCancelled. Idempotente:
// un pedido ya cancelado (o completado) no se toca ni se re-emite.
func (uc *CancelOrderUseCase) Cancel(ctx context.Context, companyID, orderID string) error {
	order, err := uc.orders.GetByID(ctx, companyID, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			uc.log.Warn().Str("order_id", orderID).Msg("cancelación para pedido inexistente, se ignora")
			return nil
		}
		return err
	}
	if order.IsTerminal() {
		uc.log.Debug().Str("order_id", orderID).Str("status", order.Status).Msg("pedido ya terminal, cancelación no-op")
		return nil
	}

	if err := uc.orders.UpdateStatus(ctx, order.ID, entity.OrderStatusCancelled); err != nil {
		return err
	}
	order.Status = entity.OrderStatusCancelled

	uc.log.Info().Str("order_id", order.ID).Msg("pedido cancelado en cascada")
	return uc.publisher.Publish(ctx, event.Event{
		Name:    event.OrderCancelledName,
		Payload: event.OrderCancelled{Order: order},
	})
}
