package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/reservation"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	apphttp "github.com/jhoicas/stock-ledger/internal/interfaces/http"
)

const testCompanyID = "00000000-0000-0000-0000-000000000002"

// stubLevels es un StockLevelRepository de solo lectura con datos fijos.
type stubLevels struct {
	levels map[string]*entity.StockLevel
}

func (s *stubLevels) Get(_ context.Context, companyID, itemID, locationID string) (*entity.StockLevel, error) {
	if l, ok := s.levels[itemID+"|"+locationID]; ok && l.CompanyID == companyID {
		return l, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubLevels) GetOrCreateForUpdate(context.Context, string, string, string, string) (*entity.StockLevel, error) {
	panic("no debe llamarse desde el lado de lectura")
}

func (s *stubLevels) Save(context.Context, *entity.StockLevel) error {
	panic("no debe llamarse desde el lado de lectura")
}

func (s *stubLevels) SummaryByItem(_ context.Context, companyID, itemID string) (*repository.StockSummary, error) {
	sum := &repository.StockSummary{ItemID: itemID}
	for _, l := range s.levels {
		if l.CompanyID == companyID && l.ItemID == itemID {
			sum.OnHand = sum.OnHand.Add(l.QuantityOnHand)
			sum.Reserved = sum.Reserved.Add(l.QuantityReserved)
			sum.SoftReserved = sum.SoftReserved.Add(l.QuantitySoftReserved)
		}
	}
	return sum, nil
}

func (s *stubLevels) AvailabilityByLocation(_ context.Context, companyID, locationID string, itemIDs []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(itemIDs))
	for _, id := range itemIDs {
		out[id] = decimal.Zero
		if l, ok := s.levels[id+"|"+locationID]; ok && l.CompanyID == companyID {
			out[id] = l.AvailableToReserve()
		}
	}
	return out, nil
}

// stubMovs devuelve movimientos fijos por nivel.
type stubMovs struct {
	byLevel map[string][]*entity.StockMovement
}

func (s *stubMovs) Create(context.Context, *entity.StockMovement) error {
	panic("no debe llamarse desde el lado de lectura")
}

func (s *stubMovs) GetByID(context.Context, string) (*entity.StockMovement, error) {
	return nil, domain.ErrNotFound
}

func (s *stubMovs) ListByStockLevel(_ context.Context, stockLevelID string, _, _ *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	return s.byLevel[stockLevelID], nil
}

func buildTestApp() *fiber.App {
	levels := &stubLevels{levels: map[string]*entity.StockLevel{
		"P1|loc-1": {
			ID:                   "lvl-1",
			CompanyID:            testCompanyID,
			ItemID:               "P1",
			WarehouseID:          "wh-1",
			LocationID:           "loc-1",
			QuantityOnHand:       decimal.NewFromInt(10),
			QuantityReserved:     decimal.NewFromInt(3),
			QuantitySoftReserved: decimal.NewFromInt(2),
		},
	}}
	movs := &stubMovs{byLevel: map[string][]*entity.StockMovement{
		"lvl-1": {
			{ID: "mov-1", StockLevelID: "lvl-1", Type: entity.MovementTypeRECEIPT,
				QuantityChange: decimal.NewFromInt(10), QuantityAfterMove: decimal.NewFromInt(10),
				Reference: "po-1", CreatedAt: time.Now()},
			{ID: "mov-2", StockLevelID: "lvl-1", Type: entity.MovementTypeRESERVE,
				QuantityChange: decimal.NewFromInt(3), QuantityAfterMove: decimal.NewFromInt(3),
				Reference: "ord-1", CreatedAt: time.Now()},
		},
	}}

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Stock: apphttp.NewStockHandler(reservation.NewQueryService(levels, movs), nil),
	})
	return app
}

func doGet(t *testing.T, app *fiber.App, path, companyID string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if companyID != "" {
		req.Header.Set("X-Company-ID", companyID)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestSummary_OK(t *testing.T) {
	app := buildTestApp()

	resp := doGet(t, app, "/api/v1/stock/P1/summary", testCompanyID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var out struct {
		ItemID       string          `json:"item_id"`
		OnHand       decimal.Decimal `json:"on_hand"`
		Reserved     decimal.Decimal `json:"reserved"`
		SoftReserved decimal.Decimal `json:"soft_reserved"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "P1", out.ItemID)
	assert.True(t, out.OnHand.Equal(decimal.NewFromInt(10)))
	assert.True(t, out.Reserved.Equal(decimal.NewFromInt(3)))
	assert.True(t, out.SoftReserved.Equal(decimal.NewFromInt(2)))
}

func TestSummary_SinTenantEs400(t *testing.T) {
	app := buildTestApp()

	resp := doGet(t, app, "/api/v1/stock/P1/summary", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAvailability_OK(t *testing.T) {
	app := buildTestApp()

	body := `{"location_id":"loc-1","item_ids":["P1","P9"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stock/availability", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Company-ID", testCompanyID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	var out struct {
		LocationID string                     `json:"location_id"`
		Available  map[string]decimal.Decimal `json:"available"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.Available["P1"].Equal(decimal.NewFromInt(5)), "10 - 3 duras - 2 blandas")
	assert.True(t, out.Available["P9"].IsZero(), "un ítem sin nivel reporta cero, no 404")
}

func TestAvailability_SinUbicacionEs400(t *testing.T) {
	app := buildTestApp()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stock/availability", strings.NewReader(`{"item_ids":["P1"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Company-ID", testCompanyID)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMovements_OK(t *testing.T) {
	app := buildTestApp()

	resp := doGet(t, app, "/api/v1/stock/P1/movements?location_id=loc-1", testCompanyID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	var out []struct {
		Type           string          `json:"type"`
		QuantityChange decimal.Decimal `json:"quantity_change"`
		Reference      string          `json:"reference"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out, 2)
	assert.Equal(t, entity.MovementTypeRECEIPT, out[0].Type)
	assert.Equal(t, entity.MovementTypeRESERVE, out[1].Type)
	assert.Equal(t, "ord-1", out[1].Reference)
}

func TestMovements_NivelInexistenteEs404(t *testing.T) {
	app := buildTestApp()

	resp := doGet(t, app, "/api/v1/stock/P9/movements?location_id=loc-1", testCompanyID)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
