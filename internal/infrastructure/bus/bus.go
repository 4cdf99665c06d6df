package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/event"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Handler procesa una entrega de evento. Un error transitorio
// (domain.IsTransient) se reintenta con backoff; cualquier otro error se
// registra y la entrega se marca fallida sin reintento.
type Handler func(ctx context.Context, e event.Event) error

// subscription es un suscriptor nombrado de un evento.
type subscription struct {
	name    string
	handler Handler
}

// delivery es una entrega pendiente: evento + suscriptor + intento actual.
type delivery struct {
	event   event.Event
	sub     subscription
	attempt int
}

// Config parámetros de la cola de entregas.
type Config struct {
	Workers     int
	BufferSize  int
	MaxRetries  int
	BaseBackoff time.Duration
}

// Bus es el bus de eventos en proceso con cola y workers. La entrega es
// at-least-once: un reintento puede re-ejecutar un handler que ya corrió, por
// lo que todo suscriptor debe ser idempotente. Cada suscriptor recibe su propia
// entrega, así el fallo de uno no bloquea a los demás.
type Bus struct {
	cfg  Config
	log  *logger.Logger
	subs map[event.Name][]subscription

	mu      sync.RWMutex
	queue   chan delivery
	wg      sync.WaitGroup
	pending sync.WaitGroup
	closed  bool
}

// New construye el bus. Llamar Start antes de publicar.
func New(cfg Config, log *logger.Logger) *Bus {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 200 * time.Millisecond
	}
	return &Bus{
		cfg:   cfg,
		log:   log.Component("bus"),
		subs:  make(map[event.Name][]subscription),
		queue: make(chan delivery, cfg.BufferSize),
	}
}

// Subscribe registra un handler para un evento. Debe llamarse antes de Start.
func (b *Bus) Subscribe(name event.Name, subscriberName string, h func(ctx context.Context, e event.Event) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], subscription{name: subscriberName, handler: h})
}

// Start lanza los workers que drenan la cola.
func (b *Bus) Start(ctx context.Context) {
	for i := 0; i < b.cfg.Workers; i++ {
		b.wg.Add(1)
		go b.worker(ctx)
	}
	b.log.Info().Int("workers", b.cfg.Workers).Msg("bus de eventos escuchando")
}

// Publish encola una entrega por cada suscriptor del evento. Publicar un
// evento sin suscriptores no es un error: la notificación es fire-and-forget.
func (b *Bus) Publish(_ context.Context, e event.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return fmt.Errorf("bus cerrado: evento %s descartado", e.Name)
	}
	subs := b.subs[e.Name]
	// Reservar las entregas bajo el RLock: Shutdown no puede cerrar la cola
	// mientras haya publicadores con entregas reservadas.
	b.pending.Add(len(subs))
	b.mu.RUnlock()

	for _, sub := range subs {
		b.queue <- delivery{event: e, sub: sub, attempt: 1}
	}
	return nil
}

// Shutdown espera a que la cola se drene (incluidos los reintentos en vuelo)
// y detiene los workers.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.pending.Wait()
	close(b.queue)
	b.wg.Wait()
	b.log.Info().Msg("bus de eventos detenido")
}

func (b *Bus) worker(ctx context.Context) {
	defer b.wg.Done()
	for d := range b.queue {
		b.dispatch(ctx, d)
	}
}

// dispatch ejecuta la entrega. Un error transitorio se reencola con backoff
// exponencial hasta MaxRetries; uno permanente (de negocio o de consistencia)
// se registra y se marca fallido para visibilidad del operador, sin tragarlo.
func (b *Bus) dispatch(ctx context.Context, d delivery) {
	defer b.pending.Done()

	err := d.sub.handler(ctx, d.event)
	if err == nil {
		return
	}

	if domain.IsTransient(err) && d.attempt <= b.cfg.MaxRetries {
		backoff := b.cfg.BaseBackoff << (d.attempt - 1)
		b.log.Warn().
			Str("event", string(d.event.Name)).
			Str("subscriber", d.sub.name).
			Int("attempt", d.attempt).
			Dur("backoff", backoff).
			Msg("entrega transitoriamente fallida, se reintenta")

		next := delivery{event: d.event, sub: d.sub, attempt: d.attempt + 1}
		b.pending.Add(1)
		time.AfterFunc(backoff, func() {
			b.mu.RLock()
			closed := b.closed
			b.mu.RUnlock()
			if closed {
				// Drenaje en curso: ejecutar inline para no perder la entrega.
				b.dispatch(ctx, next)
				return
			}
			b.queue <- next
		})
		return
	}

	b.log.Error().
		Err(err).
		Str("event", string(d.event.Name)).
		Str("subscriber", d.sub.name).
		Int("attempt", d.attempt).
		Msg("entrega fallida definitivamente")
}
