package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/reservation"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

// StockHandler expone el lado de lectura del núcleo de stock (resumen,
// disponibilidad por lote, auditoría del libro) y el registro de movimientos
// físicos. La autenticación es un colaborador externo: el tenant llega ya
// resuelto en el header X-Company-ID.
type StockHandler struct {
	query    *reservation.QueryService
	movement *inventory.RegisterMovementUseCase
}

// NewStockHandler construye el handler.
func NewStockHandler(query *reservation.QueryService, movement *inventory.RegisterMovementUseCase) *StockHandler {
	return &StockHandler{query: query, movement: movement}
}

// GetCompanyID extrae el tenant resuelto por la capa externa de autenticación.
func GetCompanyID(c *fiber.Ctx) string {
	return c.Get("X-Company-ID")
}

// Summary devuelve {on_hand, reserved, soft_reserved} de un ítem.
func (h *StockHandler) Summary(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_TENANT", Message: "falta el header X-Company-ID"})
	}
	itemID := c.Params("itemId")

	summary, err := h.query.Summary(c.Context(), companyID, itemID)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(dto.StockSummaryResponse{
		ItemID:       summary.ItemID,
		OnHand:       summary.OnHand,
		Reserved:     summary.Reserved,
		SoftReserved: summary.SoftReserved,
	})
}

// Availability devuelve el disponible-para-reservar por ítem en una ubicación.
func (h *StockHandler) Availability(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_TENANT", Message: "falta el header X-Company-ID"})
	}
	var in dto.AvailabilityRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.LocationID == "" || len(in.ItemIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "location_id e item_ids son obligatorios"})
	}

	available, err := h.query.Availability(c.Context(), companyID, in.LocationID, in.ItemIDs)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(dto.AvailabilityResponse{LocationID: in.LocationID, Available: available})
}

// Movements lista el libro de un nivel en orden de creación (auditoría).
func (h *StockHandler) Movements(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_TENANT", Message: "falta el header X-Company-ID"})
	}
	itemID := c.Params("itemId")
	locationID := c.Query("location_id")
	if locationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "location_id es obligatorio"})
	}

	movements, err := h.query.Movements(c.Context(), companyID, itemID, locationID, nil, nil,
		c.QueryInt("limit", 100), c.QueryInt("offset", 0))
	if err != nil {
		return mapError(c, err)
	}

	out := make([]dto.MovementDTO, 0, len(movements))
	for _, m := range movements {
		out = append(out, dto.MovementDTO{
			ID:                m.ID,
			Type:              m.Type,
			QuantityChange:    m.QuantityChange,
			QuantityAfterMove: m.QuantityAfterMove,
			Reference:         m.Reference,
			ActorID:           m.ActorID,
			CreatedAt:         m.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(out)
}

// RegisterMovement registra un movimiento físico (RECEIPT/ISSUE/ADJUST/TRANSFER).
func (h *StockHandler) RegisterMovement(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_TENANT", Message: "falta el header X-Company-ID"})
	}
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}

	err := h.movement.RegisterMovement(c.Context(), inventory.MovementInput{
		CompanyID:       companyID,
		ActorID:         c.Get("X-Actor-ID"),
		ItemID:          in.ItemID,
		WarehouseID:     in.WarehouseID,
		LocationID:      in.LocationID,
		FromWarehouseID: in.FromWarehouseID,
		FromLocationID:  in.FromLocationID,
		ToWarehouseID:   in.ToWarehouseID,
		ToLocationID:    in.ToLocationID,
		Type:            in.Type,
		Quantity:        in.Quantity,
		Reference:       in.Reference,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "movimiento registrado"})
}

// mapError traduce errores de dominio a respuestas HTTP. El bloqueo por stock
// insuficiente es una condición de negocio con mensaje accionable (ítem,
// solicitado y disponible), no una falla genérica.
func mapError(c *fiber.Ctx, err error) error {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code:    "INSUFFICIENT_STOCK",
			Message: insufficient.Error(),
		})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrLockTimeout):
		// Transitorio: el cliente puede reintentar a su discreción.
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: "LOCK_TIMEOUT", Message: "recurso ocupado, reintente"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
}
