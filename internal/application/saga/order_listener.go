package saga

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/event"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// OrderListener reacciona a las transiciones del ciclo de vida del pedido con
// la acción de stock correspondiente:
//
//	pedido creado      -> retención blanda de las líneas
//	pedido confirmado  -> confirmar reserva (promover blanda a dura)
//	pedido actualizado -> sincronizar reserva por diff de líneas
//	pedido cancelado   -> liberar todas las retenciones
//
// La cola entrega at-least-once; las operaciones del servicio de reservas son
// idempotentes, así que reprocesar no duplica. Un fallo de negocio (stock
// insuficiente al confirmar) se registra y se propaga: el pedido conserva su
// estado previo para remediación manual, nunca queda en un estado inconsistente.
type OrderListener struct {
	reservations Reservations
	log          *logger.Logger
}

// NewOrderListener construye el listener del ciclo de vida del pedido.
func NewOrderListener(reservations Reservations, log *logger.Logger) *OrderListener {
	return &OrderListener{reservations: reservations, log: log.Component("saga-pedidos")}
}

// Register suscribe los handlers al bus.
func (l *OrderListener) Register(bus Subscriber) {
	bus.Subscribe(event.OrderPlacedName, "stock.reservar-blanda", l.HandleOrderPlaced)
	bus.Subscribe(event.OrderConfirmedName, "stock.confirmar-reserva", l.HandleOrderConfirmed)
	bus.Subscribe(event.OrderUpdatedName, "stock.sincronizar-reserva", l.HandleOrderUpdated)
	bus.Subscribe(event.OrderCancelledName, "stock.liberar-reserva", l.HandleOrderCancelled)
}

// HandleOrderPlaced retiene de forma blanda las líneas del pedido entrante.
func (l *OrderListener) HandleOrderPlaced(ctx context.Context, e event.Event) error {
	payload, ok := e.Payload.(event.OrderPlaced)
	if !ok || payload.Order == nil {
		return fmt.Errorf("payload inesperado en %s: %T", e.Name, e.Payload)
	}
	order := payload.Order
	if err := l.reservations.SoftReserveForOrder(ctx, order); err != nil {
		l.log.Error().Err(err).Str("order_id", order.ID).Msg("retención blanda fallida")
		return err
	}
	return nil
}

// HandleOrderConfirmed promueve la reserva del pedido confirmado.
func (l *OrderListener) HandleOrderConfirmed(ctx context.Context, e event.Event) error {
	payload, ok := e.Payload.(event.OrderConfirmed)
	if !ok || payload.Order == nil {
		return fmt.Errorf("payload inesperado en %s: %T", e.Name, e.Payload)
	}
	order := payload.Order
	if err := l.reservations.ConfirmReservation(ctx, order); err != nil {
		l.log.Error().Err(err).Str("order_id", order.ID).Msg("confirmación de reserva fallida")
		return err
	}
	return nil
}

// HandleOrderUpdated sincroniza las retenciones con las líneas actuales.
func (l *OrderListener) HandleOrderUpdated(ctx context.Context, e event.Event) error {
	payload, ok := e.Payload.(event.OrderUpdated)
	if !ok || payload.Order == nil {
		return fmt.Errorf("payload inesperado en %s: %T", e.Name, e.Payload)
	}
	order := payload.Order
	if order.Status == entity.OrderStatusCancelled {
		// La cancelación tiene su propio evento; no sincronizar un pedido muerto.
		return nil
	}
	if err := l.reservations.SyncReservation(ctx, order); err != nil {
		l.log.Error().Err(err).Str("order_id", order.ID).Msg("sincronización de reserva fallida")
		return err
	}
	return nil
}

// HandleOrderCancelled libera todo lo retenido por el pedido.
func (l *OrderListener) HandleOrderCancelled(ctx context.Context, e event.Event) error {
	payload, ok := e.Payload.(event.OrderCancelled)
	if !ok || payload.Order == nil {
		return fmt.Errorf("payload inesperado en %s: %T", e.Name, e.Payload)
	}
	order := payload.Order
	if err := l.reservations.ReleaseForOrder(ctx, order.CompanyID, order.ID); err != nil {
		l.log.Error().Err(err).Str("order_id", order.ID).Msg("liberación de reserva fallida")
		return err
	}
	return nil
}
