package reservation_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/reservation"
	"github.com/jhoicas/stock-ledger/internal/application/saga"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/event"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/bus"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// ordersInMem es un SalesOrderRepository mínimo para el flujo de compensación.
// El mutex protege el acceso concurrente entre los workers del bus y el test.
type ordersInMem struct {
	mu     sync.Mutex
	orders map[string]*entity.SalesOrder
}

func (f *ordersInMem) GetByID(_ context.Context, _, orderID string) (*entity.SalesOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("pedido %s: %w", orderID, domain.ErrNotFound)
	}
	c := *o
	return &c, nil
}

func (f *ordersInMem) UpdateStatus(_ context.Context, orderID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrNotFound
	}
	o.Status = status
	return nil
}

func (f *ordersInMem) status(orderID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[orderID].Status
}

// TestCompensacion_EntregaAnuladaLiberaElStock es el recorrido completo de la
// saga: un pedido confirmado con reserva dura, la anulación de su nota de
// entrega cancela el pedido en cascada y la cancelación libera la reserva.
func TestCompensacion_EntregaAnuladaLiberaElStock(t *testing.T) {
	store := newMemStore()
	store.seed(testCompany, "P1", testWarehouse, testLocation, 10)

	b := bus.New(bus.Config{Workers: 2, BufferSize: 16, BaseBackoff: time.Millisecond}, logger.NewNop())

	svc := reservation.NewService(
		&fakeTx{store: store},
		&fixedCatalog{warehouseID: testWarehouse, locationID: testLocation},
		b,
		logger.NewNop(),
	)
	orders := &ordersInMem{orders: map[string]*entity.SalesOrder{
		"ord-1": {
			ID:        "ord-1",
			CompanyID: testCompany,
			Status:    entity.OrderStatusConfirmed,
			Lines:     []entity.OrderLine{{ItemID: "P1", Quantity: decimal.NewFromInt(5)}},
		},
	}}
	cancelUC := saga.NewCancelOrderUseCase(orders, b, logger.NewNop())
	saga.NewOrderListener(svc, logger.NewNop()).Register(b)
	saga.NewDeliveryListener(cancelUC, logger.NewNop()).Register(b)
	b.Start(context.Background())

	ctx := context.Background()

	// Pedido confirmado: reserva dura de 5.
	ord, err := orders.GetByID(ctx, testCompany, "ord-1")
	require.NoError(t, err)
	require.NoError(t, svc.ConfirmReservation(ctx, ord))
	require.True(t, store.level(testCompany, "P1", testLocation).QuantityReserved.Equal(decimal.NewFromInt(5)))

	// Logística anula la nota de entrega vinculada.
	require.NoError(t, b.Publish(ctx, event.Event{
		Name: event.DeliveryNoteCancelledName,
		Payload: event.DeliveryNoteCancelled{
			DeliveryNoteID: "dn-1",
			CompanyID:      testCompany,
			OrderID:        "ord-1",
		},
	}))

	// Esperar la cascada completa antes de cerrar el bus: la cancelación
	// publica OrderCancelled desde un worker y la liberación corre después.
	require.Eventually(t, func() bool {
		store.mu.Lock()
		reserved := store.level(testCompany, "P1", testLocation).QuantityReserved
		store.mu.Unlock()
		return orders.status("ord-1") == entity.OrderStatusCancelled && reserved.IsZero()
	}, time.Second, 5*time.Millisecond, "la anulación de la entrega debe cancelar el pedido y liberar la reserva")
	b.Shutdown()

	level := store.level(testCompany, "P1", testLocation)
	assert.True(t, level.AvailableToReserve().Equal(decimal.NewFromInt(10)))
	require.NoError(t, level.CheckInvariant())
}
