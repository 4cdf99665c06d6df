package reservation_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/event"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// memStore es un doble en memoria del trío (niveles, movimientos, retenciones)
// con semántica transaccional: Run toma una foto y la restaura si fn falla,
// igual que el rollback de la transacción real. El mutex serializa los Run
// concurrentes como lo haría el SELECT FOR UPDATE.
type memStore struct {
	mu     sync.Mutex
	levels map[string]*entity.StockLevel
	movs   []*entity.StockMovement
	holds  map[string]*entity.OrderReservation
}

func newMemStore() *memStore {
	return &memStore{
		levels: make(map[string]*entity.StockLevel),
		holds:  make(map[string]*entity.OrderReservation),
	}
}

func levelKeyOf(companyID, itemID, locationID string) string {
	return companyID + "|" + itemID + "|" + locationID
}

func holdKeyOf(companyID, orderID, itemID, locationID string) string {
	return companyID + "|" + orderID + "|" + itemID + "|" + locationID
}

// seed crea un nivel con existencia inicial y sin reservas.
func (s *memStore) seed(companyID, itemID, warehouseID, locationID string, onHand int64) {
	s.levels[levelKeyOf(companyID, itemID, locationID)] = &entity.StockLevel{
		ID:                   uuid.New().String(),
		CompanyID:            companyID,
		ItemID:               itemID,
		WarehouseID:          warehouseID,
		LocationID:           locationID,
		QuantityOnHand:       decimal.NewFromInt(onHand),
		QuantityReserved:     decimal.Zero,
		QuantitySoftReserved: decimal.Zero,
	}
}

func (s *memStore) level(companyID, itemID, locationID string) *entity.StockLevel {
	return s.levels[levelKeyOf(companyID, itemID, locationID)]
}

// movementsOfType cuenta las entradas del libro por tipo.
func (s *memStore) movementsOfType(movType string) []*entity.StockMovement {
	var out []*entity.StockMovement
	for _, m := range s.movs {
		if m.Type == movType {
			out = append(out, m)
		}
	}
	return out
}

func (s *memStore) snapshot() (map[string]*entity.StockLevel, []*entity.StockMovement, map[string]*entity.OrderReservation) {
	levels := make(map[string]*entity.StockLevel, len(s.levels))
	for k, v := range s.levels {
		c := *v
		levels[k] = &c
	}
	movs := make([]*entity.StockMovement, len(s.movs))
	copy(movs, s.movs)
	holds := make(map[string]*entity.OrderReservation, len(s.holds))
	for k, v := range s.holds {
		c := *v
		holds[k] = &c
	}
	return levels, movs, holds
}

// fakeTx satisface el puerto transaccional del servicio sobre memStore.
type fakeTx struct {
	store *memStore
}

func (t *fakeTx) Run(_ context.Context, fn func(
	levelRepo repository.StockLevelRepository,
	movRepo repository.StockMovementRepository,
	holdRepo repository.OrderReservationRepository,
) error) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	levels, movs, holds := t.store.snapshot()
	err := fn(&memLevelRepo{s: t.store}, &memMovementRepo{s: t.store}, &memHoldRepo{s: t.store})
	if err != nil {
		t.store.levels, t.store.movs, t.store.holds = levels, movs, holds
		return err
	}
	return nil
}

func (t *fakeTx) WithLockedStockLevel(ctx context.Context, companyID, itemID, warehouseID, locationID string, fn func(
	level *entity.StockLevel,
	movRepo repository.StockMovementRepository,
	holdRepo repository.OrderReservationRepository,
) error) error {
	return t.Run(ctx, func(
		levelRepo repository.StockLevelRepository,
		movRepo repository.StockMovementRepository,
		holdRepo repository.OrderReservationRepository,
	) error {
		level, err := levelRepo.GetOrCreateForUpdate(ctx, companyID, itemID, warehouseID, locationID)
		if err != nil {
			return err
		}
		if err := fn(level, movRepo, holdRepo); err != nil {
			return err
		}
		if err := level.CheckInvariant(); err != nil {
			return err
		}
		return levelRepo.Save(ctx, level)
	})
}

type memLevelRepo struct{ s *memStore }

func (r *memLevelRepo) Get(_ context.Context, companyID, itemID, locationID string) (*entity.StockLevel, error) {
	level, ok := r.s.levels[levelKeyOf(companyID, itemID, locationID)]
	if !ok {
		return nil, fmt.Errorf("nivel %s/%s: %w", itemID, locationID, domain.ErrNotFound)
	}
	c := *level
	return &c, nil
}

func (r *memLevelRepo) GetOrCreateForUpdate(_ context.Context, companyID, itemID, warehouseID, locationID string) (*entity.StockLevel, error) {
	key := levelKeyOf(companyID, itemID, locationID)
	level, ok := r.s.levels[key]
	if !ok {
		level = &entity.StockLevel{
			ID:                   uuid.New().String(),
			CompanyID:            companyID,
			ItemID:               itemID,
			WarehouseID:          warehouseID,
			LocationID:           locationID,
			QuantityOnHand:       decimal.Zero,
			QuantityReserved:     decimal.Zero,
			QuantitySoftReserved: decimal.Zero,
		}
		r.s.levels[key] = level
	}
	return level, nil
}

func (r *memLevelRepo) Save(_ context.Context, level *entity.StockLevel) error {
	level.UpdatedAt = time.Now()
	r.s.levels[levelKeyOf(level.CompanyID, level.ItemID, level.LocationID)] = level
	return nil
}

func (r *memLevelRepo) SummaryByItem(_ context.Context, companyID, itemID string) (*repository.StockSummary, error) {
	sum := &repository.StockSummary{ItemID: itemID}
	for _, l := range r.s.levels {
		if l.CompanyID == companyID && l.ItemID == itemID {
			sum.OnHand = sum.OnHand.Add(l.QuantityOnHand)
			sum.Reserved = sum.Reserved.Add(l.QuantityReserved)
			sum.SoftReserved = sum.SoftReserved.Add(l.QuantitySoftReserved)
		}
	}
	return sum, nil
}

func (r *memLevelRepo) AvailabilityByLocation(_ context.Context, companyID, locationID string, itemIDs []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(itemIDs))
	for _, id := range itemIDs {
		out[id] = decimal.Zero
		if l, ok := r.s.levels[levelKeyOf(companyID, id, locationID)]; ok {
			out[id] = l.AvailableToReserve()
		}
	}
	return out, nil
}

type memMovementRepo struct{ s *memStore }

func (r *memMovementRepo) Create(_ context.Context, movement *entity.StockMovement) error {
	c := *movement
	r.s.movs = append(r.s.movs, &c)
	return nil
}

func (r *memMovementRepo) GetByID(_ context.Context, id string) (*entity.StockMovement, error) {
	for _, m := range r.s.movs {
		if m.ID == id {
			c := *m
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memMovementRepo) ListByStockLevel(_ context.Context, stockLevelID string, from, to *time.Time, limit, offset int) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	for _, m := range r.s.movs {
		if m.StockLevelID != stockLevelID {
			continue
		}
		if from != nil && m.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && m.CreatedAt.After(*to) {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type memHoldRepo struct{ s *memStore }

func (r *memHoldRepo) GetForOrder(_ context.Context, companyID, orderID string) ([]*entity.OrderReservation, error) {
	var out []*entity.OrderReservation
	for _, h := range r.s.holds {
		if h.CompanyID == companyID && h.OrderID == orderID {
			c := *h
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memHoldRepo) Get(_ context.Context, companyID, orderID, itemID, locationID string) (*entity.OrderReservation, error) {
	if h, ok := r.s.holds[holdKeyOf(companyID, orderID, itemID, locationID)]; ok {
		c := *h
		return &c, nil
	}
	return nil, nil
}

func (r *memHoldRepo) Upsert(_ context.Context, reservation *entity.OrderReservation) error {
	key := holdKeyOf(reservation.CompanyID, reservation.OrderID, reservation.ItemID, reservation.LocationID)
	if reservation.IsEmpty() {
		delete(r.s.holds, key)
		return nil
	}
	c := *reservation
	c.UpdatedAt = time.Now()
	r.s.holds[key] = &c
	return nil
}

// recordingPublisher captura los eventos publicados para aserciones.
type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) published(name event.Name) []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []event.Event
	for _, e := range p.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// fixedCatalog resuelve siempre la misma bodega/ubicación.
type fixedCatalog struct {
	warehouseID string
	locationID  string
}

func (c *fixedCatalog) ResolveLocation(_ context.Context, _, _ string) (string, string, error) {
	return c.warehouseID, c.locationID, nil
}
