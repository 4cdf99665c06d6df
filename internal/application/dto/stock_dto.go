package dto

import "github.com/shopspring/decimal"

// ErrorResponse respuesta de error estándar de la API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RegisterMovementRequest cuerpo para registrar un movimiento físico.
// Para RECEIPT/ISSUE/ADJUST: item_id, warehouse_id, location_id, type, quantity.
// Para TRANSFER: item_id, from_*/to_* y quantity positiva.
type RegisterMovementRequest struct {
	ItemID          string          `json:"item_id"`
	WarehouseID     string          `json:"warehouse_id"`
	LocationID      string          `json:"location_id"`
	FromWarehouseID string          `json:"from_warehouse_id"`
	FromLocationID  string          `json:"from_location_id"`
	ToWarehouseID   string          `json:"to_warehouse_id"`
	ToLocationID    string          `json:"to_location_id"`
	Type            string          `json:"type"`
	Quantity        decimal.Decimal `json:"quantity"`
	Reference       string          `json:"reference"`
}

// StockSummaryResponse resumen de cantidades de un ítem (todas las ubicaciones).
type StockSummaryResponse struct {
	ItemID       string          `json:"item_id"`
	OnHand       decimal.Decimal `json:"on_hand"`
	Reserved     decimal.Decimal `json:"reserved"`
	SoftReserved decimal.Decimal `json:"soft_reserved"`
}

// AvailabilityRequest lote de ítems a consultar en una ubicación.
type AvailabilityRequest struct {
	LocationID string   `json:"location_id"`
	ItemIDs    []string `json:"item_ids"`
}

// AvailabilityResponse disponible-para-reservar por ítem.
type AvailabilityResponse struct {
	LocationID string                     `json:"location_id"`
	Available  map[string]decimal.Decimal `json:"available"`
}

// MovementDTO entrada del libro para respuestas de auditoría.
type MovementDTO struct {
	ID                string          `json:"id"`
	Type              string          `json:"type"`
	QuantityChange    decimal.Decimal `json:"quantity_change"`
	QuantityAfterMove decimal.Decimal `json:"quantity_after_move"`
	Reference         string          `json:"reference,omitempty"`
	ActorID           string          `json:"actor_id,omitempty"`
	CreatedAt         string          `json:"created_at"`
}
