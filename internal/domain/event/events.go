package event

import "github.com/jhoicas/stock-ledger/internal/domain/entity"

// Name identifica un tipo de evento de dominio en el bus.
type Name string

// Eventos consumidos (ciclo de vida del pedido y de la entrega) y expuestos
// (actualización de stock). La entrega es at-least-once: todo suscriptor debe
// ser idempotente.
const (
	OrderPlacedName           Name = "sales.order.placed"
	OrderConfirmedName        Name = "sales.order.confirmed"
	OrderUpdatedName          Name = "sales.order.updated"
	OrderCancelledName        Name = "sales.order.cancelled"
	DeliveryNoteCancelledName Name = "logistics.delivery_note.cancelled"
	StockLevelUpdatedName     Name = "stock.level.updated"
)

// Event es el sobre que viaja por el bus: nombre + payload tipado.
type Event struct {
	Name    Name
	Payload any
}

// OrderPlaced se publica cuando entra un pedido nuevo con líneas; dispara la
// retención blanda inicial.
type OrderPlaced struct {
	Order *entity.SalesOrder
}

// OrderConfirmed se publica cuando un pedido pasa a CONFIRMED; lleva el agregado completo.
type OrderConfirmed struct {
	Order *entity.SalesOrder
}

// OrderUpdated se publica cuando cambian las líneas de un pedido aún vigente.
type OrderUpdated struct {
	Order *entity.SalesOrder
}

// OrderCancelled se publica cuando un pedido pasa a CANCELLED.
type OrderCancelled struct {
	Order *entity.SalesOrder
}

// DeliveryNoteCancelled llega desde el contexto de logística cuando se anula
// una nota de entrega; lleva el id del pedido que la originó.
type DeliveryNoteCancelled struct {
	DeliveryNoteID string
	CompanyID      string
	OrderID        string
}

// StockLevelUpdated se publica tras cada mutación confirmada de un nivel de stock.
// Es fire-and-forget y no garantiza payload más allá de la identidad: los
// consumidores deben reconsultar las cantidades actuales.
type StockLevelUpdated struct {
	ItemID    string
	CompanyID string
}
