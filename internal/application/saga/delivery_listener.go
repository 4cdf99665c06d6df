package saga

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/event"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// DeliveryListener reacciona a eventos del contexto de logística. La anulación
// de una nota de entrega dispara la cancelación en cascada del pedido vinculado,
// que libera el stock como compensación. Corre en la cola de workers, desacoplado
// de la petición que originó la anulación.
type DeliveryListener struct {
	cancelOrder *CancelOrderUseCase
	log         *logger.Logger
}

// NewDeliveryListener construye el listener del contexto de logística.
func NewDeliveryListener(cancelOrder *CancelOrderUseCase, log *logger.Logger) *DeliveryListener {
	return &DeliveryListener{cancelOrder: cancelOrder, log: log.Component("saga-entregas")}
}

// Register suscribe el handler al bus.
func (l *DeliveryListener) Register(bus Subscriber) {
	bus.Subscribe(event.DeliveryNoteCancelledName, "stock.cancelar-pedido", l.HandleDeliveryNoteCancelled)
}

// HandleDeliveryNoteCancelled dispara la cancelación del pedido vinculado.
func (l *DeliveryListener) HandleDeliveryNoteCancelled(ctx context.Context, e event.Event) error {
	payload, ok := e.Payload.(event.DeliveryNoteCancelled)
	if !ok {
		return fmt.Errorf("payload inesperado en %s: %T", e.Name, e.Payload)
	}
	if payload.OrderID == "" {
		l.log.Warn().Str("delivery_note_id", payload.DeliveryNoteID).Msg("nota de entrega sin pedido vinculado, se ignora")
		return nil
	}
	if err := l.cancelOrder.Cancel(ctx, payload.CompanyID, payload.OrderID); err != nil {
		l.log.Error().Err(err).
			Str("order_id", payload.OrderID).
			Str("delivery_note_id", payload.DeliveryNoteID).
			Msg("cancelación en cascada fallida")
		return err
	}
	return nil
}
