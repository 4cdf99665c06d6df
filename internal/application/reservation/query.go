package reservation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// QueryService es el lado de lectura del núcleo de stock: resumen por ítem,
// disponibilidad por lote y auditoría del libro. Opera fuera de transacciones
// (repos atados al pool); los consumidores de StockLevelUpdated reconsultan aquí.
type QueryService struct {
	levelRepo repository.StockLevelRepository
	movRepo   repository.StockMovementRepository
}

// NewQueryService construye el servicio de consultas.
func NewQueryService(levelRepo repository.StockLevelRepository, movRepo repository.StockMovementRepository) *QueryService {
	return &QueryService{levelRepo: levelRepo, movRepo: movRepo}
}

// Summary devuelve {onHand, reserved, softReserved} de un ítem, agregado en
// todas sus ubicaciones (tableros y reportes).
func (s *QueryService) Summary(ctx context.Context, companyID, itemID string) (*repository.StockSummary, error) {
	return s.levelRepo.SummaryByItem(ctx, companyID, itemID)
}

// Availability devuelve el disponible-para-reservar por ítem en una ubicación,
// para un lote de identificadores. Ítems sin nivel reportan cero.
func (s *QueryService) Availability(ctx context.Context, companyID, locationID string, itemIDs []string) (map[string]decimal.Decimal, error) {
	return s.levelRepo.AvailabilityByLocation(ctx, companyID, locationID, itemIDs)
}

// Movements lista el libro de un nivel en orden de creación (auditoría).
func (s *QueryService) Movements(ctx context.Context, companyID, itemID, locationID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	level, err := s.levelRepo.Get(ctx, companyID, itemID, locationID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.movRepo.ListByStockLevel(ctx, level.ID, from, to, limit, offset)
}
