package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Tipos de movimiento de inventario. RECEIPT/ISSUE/ADJUST/TRANSFER afectan la
// existencia física; RESERVE/RELEASE registran cambios en los contadores de reserva.
const (
	MovementTypeRECEIPT  = "RECEIPT"  // entrada de mercancía
	MovementTypeISSUE    = "ISSUE"    // salida
	MovementTypeADJUST   = "ADJUST"   // corrección por conteo físico
	MovementTypeTRANSFER = "TRANSFER" // traslado entre ubicaciones
	MovementTypeRESERVE  = "RESERVE"  // aumento de reserva (blanda o dura)
	MovementTypeRELEASE  = "RELEASE"  // liberación de reserva
)

// StockMovement es una entrada inmutable del libro de movimientos. Se crea
// únicamente vía NewStockMovement, nunca se actualiza ni se borra (no existe
// API de mutación ni columna updated_at). QuantityAfterMove es la foto del
// contador afectado justo después de la mutación, para auditoría sin replay:
// la existencia física para RECEIPT/ISSUE/ADJUST/TRANSFER y el contador de
// reserva correspondiente para RESERVE/RELEASE.
type StockMovement struct {
	ID                string
	StockLevelID      string
	ActorID           string // opcional: usuario o proceso que causó el movimiento
	Type              string
	QuantityChange    decimal.Decimal // firmado, nunca cero
	QuantityAfterMove decimal.Decimal
	Reference         string // opcional: id de pedido, nota de ajuste, etc.
	CreatedAt         time.Time
}

// NewStockMovement construye una entrada del libro. Rechaza cambios de cantidad
// cero con ErrInvalidInput; un movimiento sin efecto nunca llega a persistirse.
func NewStockMovement(stockLevelID, movType string, change, afterMove decimal.Decimal, actorID, reference string) (*StockMovement, error) {
	if stockLevelID == "" {
		return nil, domain.ErrInvalidInput
	}
	switch movType {
	case MovementTypeRECEIPT, MovementTypeISSUE, MovementTypeADJUST,
		MovementTypeTRANSFER, MovementTypeRESERVE, MovementTypeRELEASE:
	default:
		return nil, domain.ErrInvalidInput
	}
	if change.IsZero() {
		return nil, domain.ErrInvalidInput
	}
	return &StockMovement{
		ID:                uuid.New().String(),
		StockLevelID:      stockLevelID,
		ActorID:           actorID,
		Type:              movType,
		QuantityChange:    change,
		QuantityAfterMove: afterMove,
		Reference:         reference,
		CreatedAt:         time.Now(),
	}, nil
}

// IsPhysical indica si el movimiento afecta la existencia física (y por tanto
// participa en la reconstrucción del saldo OnHand por replay).
func (m *StockMovement) IsPhysical() bool {
	switch m.Type {
	case MovementTypeRECEIPT, MovementTypeISSUE, MovementTypeADJUST, MovementTypeTRANSFER:
		return true
	}
	return false
}
