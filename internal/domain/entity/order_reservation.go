package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderReservation registra cuánto retiene actualmente un pedido sobre un nivel
// de stock, separado en blanda y dura. Es la contabilidad que hace idempotentes
// las operaciones de la saga: ante entrega at-least-once, el servicio calcula
// el delta entre las líneas del pedido y lo ya retenido, en vez de asumir que
// el evento no se procesó antes. También acota las liberaciones: nunca se
// libera más de lo que este registro respalda.
type OrderReservation struct {
	ID           string
	CompanyID    string
	OrderID      string
	ItemID       string
	WarehouseID  string
	LocationID   string
	SoftQuantity decimal.Decimal
	HardQuantity decimal.Decimal
	UpdatedAt    time.Time
}

// Total devuelve lo retenido en total (blanda + dura).
func (r *OrderReservation) Total() decimal.Decimal {
	return r.SoftQuantity.Add(r.HardQuantity)
}

// IsEmpty indica que el pedido ya no retiene nada sobre este nivel.
func (r *OrderReservation) IsEmpty() bool {
	return r.SoftQuantity.IsZero() && r.HardQuantity.IsZero()
}
