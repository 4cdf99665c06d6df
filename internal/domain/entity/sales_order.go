package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del pedido de venta. Cancelled es alcanzable desde cualquier estado no terminal.
const (
	OrderStatusDraft              = "DRAFT"
	OrderStatusPendingReservation = "PENDING_RESERVATION"
	OrderStatusConfirmed          = "CONFIRMED"
	OrderStatusCancelled          = "CANCELLED"
	OrderStatusCompleted          = "COMPLETED"
)

// OrderLine es una línea del pedido: producto y cantidad solicitada.
type OrderLine struct {
	ItemID   string
	Quantity decimal.Decimal
}

// SalesOrder es el agregado de pedido del contexto de ventas. Este núcleo lo
// consume, no lo posee: sus transiciones de estado disparan la saga de reservas.
type SalesOrder struct {
	ID        string
	CompanyID string
	Status    string
	Lines     []OrderLine
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal indica si el pedido ya no admite transiciones (cancelado o completado).
func (o *SalesOrder) IsTerminal() bool {
	return o.Status == OrderStatusCancelled || o.Status == OrderStatusCompleted
}
