package saga

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/event"
)

// Reservations es lo que la saga necesita del servicio de reservas.
type Reservations interface {
	SoftReserveForOrder(ctx context.Context, order *entity.SalesOrder) error
	ConfirmReservation(ctx context.Context, order *entity.SalesOrder) error
	SyncReservation(ctx context.Context, order *entity.SalesOrder) error
	ReleaseForOrder(ctx context.Context, companyID, orderID string) error
}

// Subscriber registra handlers en el bus de eventos.
type Subscriber interface {
	Subscribe(name event.Name, subscriberName string, h func(ctx context.Context, e event.Event) error)
}

// Publisher publica eventos de dominio (la cancelación en cascada emite OrderCancelled).
type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}
