package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// StockLevel es el agregado de inventario para un par (ítem, ubicación) dentro de una empresa.
// Mantiene tres contadores: existencia física (OnHand), reserva dura (Reserved, pedidos
// confirmados) y reserva blanda (SoftReserved, pedidos aún no confirmados).
//
// Invariante: Reserved + SoftReserved <= OnHand después de cada mutación.
// Toda mutación pasa por el servicio de reservas dentro de la transacción bloqueada;
// cada mutación se empareja 1:1 con un StockMovement del llamador.
type StockLevel struct {
	ID                   string // UUID
	SeqID                int64  // surrogate numérico para joins
	CompanyID            string
	ItemID               string
	WarehouseID          string
	LocationID           string
	QuantityOnHand       decimal.Decimal
	QuantityReserved     decimal.Decimal
	QuantitySoftReserved decimal.Decimal
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// AvailableToReserve devuelve OnHand - Reserved - SoftReserved.
func (s *StockLevel) AvailableToReserve() decimal.Decimal {
	return s.QuantityOnHand.Sub(s.QuantityReserved).Sub(s.QuantitySoftReserved)
}

// CheckInvariant verifica los invariantes del agregado antes de persistir.
func (s *StockLevel) CheckInvariant() error {
	if s.QuantityOnHand.IsNegative() || s.QuantityReserved.IsNegative() || s.QuantitySoftReserved.IsNegative() {
		return domain.ErrLedgerDrift
	}
	if s.QuantityReserved.Add(s.QuantitySoftReserved).GreaterThan(s.QuantityOnHand) {
		return domain.ErrLedgerDrift
	}
	return nil
}

// ReserveSoft retiene quantity de forma blanda si hay disponibilidad suficiente.
// Devuelve el nuevo SoftReserved. Falla con InsufficientStockError si no alcanza.
func (s *StockLevel) ReserveSoft(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidInput
	}
	available := s.AvailableToReserve()
	if available.LessThan(quantity) {
		return decimal.Zero, domain.NewInsufficientStockError(s.ItemID, quantity, available)
	}
	s.QuantitySoftReserved = s.QuantitySoftReserved.Add(quantity)
	return s.QuantitySoftReserved, nil
}

// ReserveHard retiene quantity directamente como reserva dura (confirmación sin
// reserva blanda previa, ej. replay de eventos). Valida contra la disponibilidad.
func (s *StockLevel) ReserveHard(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidInput
	}
	available := s.AvailableToReserve()
	if available.LessThan(quantity) {
		return decimal.Zero, domain.NewInsufficientStockError(s.ItemID, quantity, available)
	}
	s.QuantityReserved = s.QuantityReserved.Add(quantity)
	return s.QuantityReserved, nil
}

// PromoteToHard mueve quantity de la reserva blanda a la dura (confirmación de pedido).
// Falla con ErrLedgerDrift si la reserva blanda es menor a quantity.
func (s *StockLevel) PromoteToHard(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidInput
	}
	if s.QuantitySoftReserved.LessThan(quantity) {
		return decimal.Zero, domain.ErrLedgerDrift
	}
	s.QuantitySoftReserved = s.QuantitySoftReserved.Sub(quantity)
	s.QuantityReserved = s.QuantityReserved.Add(quantity)
	return s.QuantityReserved, nil
}

// ReleaseSoft libera quantity de la reserva blanda. Liberar más de lo retenido
// es un error de programación (deriva del libro), no se corrige con clamping.
func (s *StockLevel) ReleaseSoft(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidInput
	}
	if s.QuantitySoftReserved.LessThan(quantity) {
		return decimal.Zero, domain.ErrLedgerDrift
	}
	s.QuantitySoftReserved = s.QuantitySoftReserved.Sub(quantity)
	return s.QuantitySoftReserved, nil
}

// ReleaseHard libera quantity de la reserva dura (cancelación de pedido confirmado).
func (s *StockLevel) ReleaseHard(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidInput
	}
	if s.QuantityReserved.LessThan(quantity) {
		return decimal.Zero, domain.ErrLedgerDrift
	}
	s.QuantityReserved = s.QuantityReserved.Sub(quantity)
	return s.QuantityReserved, nil
}

// Receive suma quantity a la existencia física (entrada de mercancía).
func (s *StockLevel) Receive(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidInput
	}
	s.QuantityOnHand = s.QuantityOnHand.Add(quantity)
	return s.QuantityOnHand, nil
}

// Issue resta quantity de la existencia física (salida). No puede dejar la
// existencia por debajo de lo comprometido.
func (s *StockLevel) Issue(quantity decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.GreaterThan(decimal.Zero) {
		return decimal.Zero, domain.ErrInvalidInput
	}
	available := s.AvailableToReserve()
	if available.LessThan(quantity) {
		return decimal.Zero, domain.NewInsufficientStockError(s.ItemID, quantity, available)
	}
	s.QuantityOnHand = s.QuantityOnHand.Sub(quantity)
	return s.QuantityOnHand, nil
}

// Adjust aplica una corrección firmada a la existencia (conteo físico).
// delta no puede ser cero; no puede dejar la existencia por debajo de lo comprometido.
func (s *StockLevel) Adjust(delta decimal.Decimal) (decimal.Decimal, error) {
	if delta.IsZero() {
		return decimal.Zero, domain.ErrInvalidInput
	}
	newOnHand := s.QuantityOnHand.Add(delta)
	if newOnHand.LessThan(s.QuantityReserved.Add(s.QuantitySoftReserved)) {
		return decimal.Zero, domain.NewInsufficientStockError(s.ItemID, delta.Neg(), s.AvailableToReserve())
	}
	s.QuantityOnHand = newOnHand
	return s.QuantityOnHand, nil
}
