package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockLevelRepository define el puerto de persistencia del agregado StockLevel.
// Las mutaciones solo ocurren dentro del alcance bloqueado del TxRunner.
type StockLevelRepository interface {
	// Get lee el nivel sin bloquear (consultas de solo lectura). Devuelve
	// domain.ErrNotFound si no existe.
	Get(ctx context.Context, companyID, itemID, locationID string) (*entity.StockLevel, error)

	// GetOrCreateForUpdate crea perezosamente la fila para la tripleta
	// (empresa, ítem, ubicación) si no existe y la bloquea (SELECT FOR UPDATE).
	// Es el único punto de serialización entre escritores del mismo nivel.
	GetOrCreateForUpdate(ctx context.Context, companyID, itemID, warehouseID, locationID string) (*entity.StockLevel, error)

	// Save persiste los contadores del agregado ya mutado (fila previamente bloqueada).
	Save(ctx context.Context, level *entity.StockLevel) error

	// SummaryByItem agrega los contadores de todas las ubicaciones de un ítem.
	SummaryByItem(ctx context.Context, companyID, itemID string) (*StockSummary, error)

	// AvailabilityByLocation devuelve el disponible-para-reservar por ítem en una ubicación.
	AvailabilityByLocation(ctx context.Context, companyID, locationID string, itemIDs []string) (map[string]decimal.Decimal, error)
}

// StockSummary es la vista de cantidades de un ítem para tableros y reportes.
type StockSummary struct {
	ItemID       string
	OnHand       decimal.Decimal
	Reserved     decimal.Decimal
	SoftReserved decimal.Decimal
}
