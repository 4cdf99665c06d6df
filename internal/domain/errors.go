package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// ErrLedgerDrift indica una inconsistencia entre los contadores del nivel de stock
	// y lo que el libro de movimientos respalda (ej. liberar más de lo retenido).
	// Es fatal: se registra en error y nunca se corrige silenciosamente.
	ErrLedgerDrift = errors.New("inconsistencia en el libro de inventario")

	// ErrLockTimeout indica que no se pudo adquirir el bloqueo de fila a tiempo.
	// Es transitorio: la cola lo reintenta con backoff; nunca significa falta de stock.
	ErrLockTimeout = errors.New("timeout adquiriendo bloqueo de stock")
)

// InsufficientStockError lleva el detalle de una reserva bloqueada por falta de stock:
// qué ítem, cuánto se pidió y cuánto había disponible al momento del chequeo.
type InsufficientStockError struct {
	ItemID    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para el ítem %s: solicitado %s, disponible %s",
		e.ItemID, e.Requested.String(), e.Available.String())
}

// Unwrap permite errors.Is(err, ErrInsufficientStock).
func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// NewInsufficientStockError construye el error de negocio con los montos involucrados.
func NewInsufficientStockError(itemID string, requested, available decimal.Decimal) *InsufficientStockError {
	return &InsufficientStockError{ItemID: itemID, Requested: requested, Available: available}
}

// IsTransient clasifica errores recuperables por reintento (bloqueos, no de negocio).
func IsTransient(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
