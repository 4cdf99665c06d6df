package reservation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/event"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// Service aplica las operaciones de reserva sobre los niveles de stock:
// reserva blanda, confirmación (promoción a dura), sincronización por diff y
// liberación. Cada operación corre dentro del alcance bloqueado del TxRunner y,
// tras el commit, publica StockLevelUpdated por cada ítem tocado.
//
// Todas las operaciones son idempotentes: el delta requerido se deriva de la
// contabilidad de retenciones vigente (order_reservations), no del historial de
// eventos, así que reprocesar una entrega at-least-once converge sin duplicar.
type Service struct {
	tx        TxRunner
	catalog   Catalog
	publisher Publisher
	log       *logger.Logger
}

// NewService construye el servicio de reservas.
func NewService(tx TxRunner, catalog Catalog, publisher Publisher, log *logger.Logger) *Service {
	return &Service{
		tx:        tx,
		catalog:   catalog,
		publisher: publisher,
		log:       log.Component("reservas"),
	}
}

// levelKey identifica el nivel de stock que una línea de pedido afecta.
type levelKey struct {
	itemID      string
	warehouseID string
	locationID  string
}

// mutation es un cambio de contador ya aplicado al agregado, pendiente de
// registrarse como movimiento en el libro.
type mutation struct {
	movType string
	change  decimal.Decimal
	after   decimal.Decimal
}

// SoftReserveForOrder retiene de forma blanda las líneas del pedido. Converge
// la retención blanda de cada línea a la cantidad pedida; todo-o-nada: si
// cualquier línea no tiene disponibilidad, la transacción completa se revierte
// y se propaga InsufficientStockError con el ítem ofensor identificado.
func (s *Service) SoftReserveForOrder(ctx context.Context, order *entity.SalesOrder) error {
	targets, err := s.resolveTargets(ctx, order)
	if err != nil {
		return err
	}
	err = s.runOrderOp(ctx, order.CompanyID, order.ID, targets,
		func(level *entity.StockLevel, hold *entity.OrderReservation, target decimal.Decimal) ([]mutation, error) {
			return convergeSoft(level, hold, target)
		})
	if err != nil {
		s.logOpFailure(err, "reserva blanda", order.ID)
		return err
	}
	s.log.Info().Str("order_id", order.ID).Int("lines", len(order.Lines)).Msg("reserva blanda aplicada")
	return nil
}

// ConfirmReservation promueve a dura la reserva del pedido confirmado. Si la
// reserva blanda previa es insuficiente (el stock se encogió entre la reserva
// y la confirmación, o el evento llegó sin reserva previa), el faltante se
// intenta directamente contra la disponibilidad actual; si tampoco alcanza,
// la confirmación completa falla y nada queda a medias.
func (s *Service) ConfirmReservation(ctx context.Context, order *entity.SalesOrder) error {
	targets, err := s.resolveTargets(ctx, order)
	if err != nil {
		return err
	}
	err = s.runOrderOp(ctx, order.CompanyID, order.ID, targets,
		func(level *entity.StockLevel, hold *entity.OrderReservation, target decimal.Decimal) ([]mutation, error) {
			return raiseHard(level, hold, target)
		})
	if err != nil {
		s.logOpFailure(err, "confirmación de reserva", order.ID)
		return err
	}
	s.log.Info().Str("order_id", order.ID).Msg("reserva confirmada")
	return nil
}

// SyncReservation converge las retenciones del pedido al conjunto de líneas
// actual con el mínimo de operaciones: líneas nuevas reservan, líneas quitadas
// liberan, deltas de cantidad ajustan. El "antes" no viene del evento sino de
// la contabilidad vigente, por lo que nunca se libera más de lo retenido.
func (s *Service) SyncReservation(ctx context.Context, order *entity.SalesOrder) error {
	targets, err := s.resolveTargets(ctx, order)
	if err != nil {
		return err
	}
	confirmed := order.Status == entity.OrderStatusConfirmed || order.Status == entity.OrderStatusCompleted
	err = s.runOrderOp(ctx, order.CompanyID, order.ID, targets,
		func(level *entity.StockLevel, hold *entity.OrderReservation, target decimal.Decimal) ([]mutation, error) {
			if confirmed {
				return convergeHard(level, hold, target)
			}
			return convergeSoft(level, hold, target)
		})
	if err != nil {
		s.logOpFailure(err, "sincronización de reserva", order.ID)
		return err
	}
	s.log.Info().Str("order_id", order.ID).Bool("confirmed", confirmed).Msg("reserva sincronizada")
	return nil
}

// ReleaseForOrder libera todas las retenciones (blandas y duras) del pedido.
// Idempotente: liberar un pedido sin retenciones es un no-op, no un error.
func (s *Service) ReleaseForOrder(ctx context.Context, companyID, orderID string) error {
	err := s.runOrderOp(ctx, companyID, orderID, nil,
		func(level *entity.StockLevel, hold *entity.OrderReservation, _ decimal.Decimal) ([]mutation, error) {
			return releaseAll(level, hold)
		})
	if err != nil {
		s.logOpFailure(err, "liberación de reserva", orderID)
		return err
	}
	s.log.Info().Str("order_id", orderID).Msg("retenciones liberadas")
	return nil
}

// resolveTargets agrupa las líneas por ítem y resuelve la ubicación de reserva
// de cada uno vía catálogo. Se hace antes de abrir la transacción: el bloqueo
// de fila nunca se sostiene a través de una llamada de red.
func (s *Service) resolveTargets(ctx context.Context, order *entity.SalesOrder) (map[levelKey]decimal.Decimal, error) {
	byItem := make(map[string]decimal.Decimal)
	for _, line := range order.Lines {
		if !line.Quantity.GreaterThan(decimal.Zero) {
			return nil, fmt.Errorf("línea con cantidad no positiva para el ítem %s: %w", line.ItemID, domain.ErrInvalidInput)
		}
		byItem[line.ItemID] = byItem[line.ItemID].Add(line.Quantity)
	}

	targets := make(map[levelKey]decimal.Decimal, len(byItem))
	for itemID, qty := range byItem {
		warehouseID, locationID, err := s.catalog.ResolveLocation(ctx, order.CompanyID, itemID)
		if err != nil {
			return nil, fmt.Errorf("resolver ubicación del ítem %s: %w", itemID, err)
		}
		targets[levelKey{itemID: itemID, warehouseID: warehouseID, locationID: locationID}] = qty
	}
	return targets, nil
}

// runOrderOp es el armazón transaccional común: arma el universo de claves
// (líneas objetivo ∪ retenciones vigentes), bloquea los niveles en orden
// estable para evitar deadlocks ABBA entre pedidos concurrentes, aplica la
// mutación por nivel, registra un movimiento por cada cambio de contador y
// persiste nivel + retención. Publica StockLevelUpdated solo tras el commit.
func (s *Service) runOrderOp(
	ctx context.Context,
	companyID, orderID string,
	targets map[levelKey]decimal.Decimal,
	apply func(level *entity.StockLevel, hold *entity.OrderReservation, target decimal.Decimal) ([]mutation, error),
) error {
	var touched []event.StockLevelUpdated

	err := s.tx.Run(ctx, func(
		levelRepo repository.StockLevelRepository,
		movRepo repository.StockMovementRepository,
		holdRepo repository.OrderReservationRepository,
	) error {
		touched = touched[:0]

		held, err := holdRepo.GetForOrder(ctx, companyID, orderID)
		if err != nil {
			return err
		}
		keys := unionKeys(targets, held)

		for _, k := range keys {
			level, err := levelRepo.GetOrCreateForUpdate(ctx, companyID, k.itemID, k.warehouseID, k.locationID)
			if err != nil {
				return err
			}
			// Releer la retención ya con el bloqueo del nivel: es la autoritativa.
			hold, err := holdRepo.Get(ctx, companyID, orderID, k.itemID, k.locationID)
			if err != nil {
				return err
			}
			if hold == nil {
				hold = &entity.OrderReservation{
					CompanyID:    companyID,
					OrderID:      orderID,
					ItemID:       k.itemID,
					WarehouseID:  k.warehouseID,
					LocationID:   k.locationID,
					SoftQuantity: decimal.Zero,
					HardQuantity: decimal.Zero,
				}
			}

			muts, err := apply(level, hold, targets[k])
			if err != nil {
				return err
			}
			if len(muts) == 0 {
				continue
			}
			for _, m := range muts {
				mov, err := entity.NewStockMovement(level.ID, m.movType, m.change, m.after, "", orderID)
				if err != nil {
					return err
				}
				if err := movRepo.Create(ctx, mov); err != nil {
					return err
				}
			}
			if err := level.CheckInvariant(); err != nil {
				return err
			}
			if err := levelRepo.Save(ctx, level); err != nil {
				return err
			}
			if err := holdRepo.Upsert(ctx, hold); err != nil {
				return err
			}
			touched = append(touched, event.StockLevelUpdated{ItemID: k.itemID, CompanyID: companyID})
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Notificación fire-and-forget, solo después del commit.
	for _, ev := range touched {
		if perr := s.publisher.Publish(ctx, event.Event{Name: event.StockLevelUpdatedName, Payload: ev}); perr != nil {
			s.log.Warn().Err(perr).Str("item_id", ev.ItemID).Msg("no se pudo publicar StockLevelUpdated")
		}
	}
	return nil
}

// unionKeys arma el universo de niveles a tocar y lo ordena por (ítem,
// ubicación) para que todos los pedidos adquieran los bloqueos en el mismo orden.
func unionKeys(targets map[levelKey]decimal.Decimal, held []*entity.OrderReservation) []levelKey {
	seen := make(map[levelKey]struct{}, len(targets)+len(held))
	keys := make([]levelKey, 0, len(targets)+len(held))
	for k := range targets {
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	for _, h := range held {
		k := levelKey{itemID: h.ItemID, warehouseID: h.WarehouseID, locationID: h.LocationID}
		if _, ok := seen[k]; !ok {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].itemID != keys[j].itemID {
			return keys[i].itemID < keys[j].itemID
		}
		return keys[i].locationID < keys[j].locationID
	})
	return keys
}

// convergeSoft lleva la retención blanda del pedido sobre este nivel a target.
func convergeSoft(level *entity.StockLevel, hold *entity.OrderReservation, target decimal.Decimal) ([]mutation, error) {
	delta := target.Sub(hold.SoftQuantity)
	if delta.IsZero() {
		return nil, nil
	}
	if delta.GreaterThan(decimal.Zero) {
		after, err := level.ReserveSoft(delta)
		if err != nil {
			return nil, err
		}
		hold.SoftQuantity = target
		return []mutation{{movType: entity.MovementTypeRESERVE, change: delta, after: after}}, nil
	}
	release := delta.Neg()
	after, err := level.ReleaseSoft(release)
	if err != nil {
		return nil, err
	}
	hold.SoftQuantity = target
	return []mutation{{movType: entity.MovementTypeRELEASE, change: delta, after: after}}, nil
}

// raiseHard sube la retención dura hasta target sin bajarla nunca (semántica de
// confirmación): primero promueve lo blando disponible, luego reserva el
// faltante contra la disponibilidad actual, y por último libera el sobrante
// blando del pedido. En replay (dura ya >= target) solo libera el sobrante.
func raiseHard(level *entity.StockLevel, hold *entity.OrderReservation, target decimal.Decimal) ([]mutation, error) {
	var muts []mutation

	needed := target.Sub(hold.HardQuantity)
	if needed.GreaterThan(decimal.Zero) {
		promote := decimal.Min(hold.SoftQuantity, needed)
		if promote.GreaterThan(decimal.Zero) {
			after, err := level.PromoteToHard(promote)
			if err != nil {
				return nil, err
			}
			hold.SoftQuantity = hold.SoftQuantity.Sub(promote)
			hold.HardQuantity = hold.HardQuantity.Add(promote)
			muts = append(muts, mutation{movType: entity.MovementTypeRESERVE, change: promote, after: after})
		}
		shortfall := needed.Sub(promote)
		if shortfall.GreaterThan(decimal.Zero) {
			after, err := level.ReserveHard(shortfall)
			if err != nil {
				return nil, err
			}
			hold.HardQuantity = hold.HardQuantity.Add(shortfall)
			muts = append(muts, mutation{movType: entity.MovementTypeRESERVE, change: shortfall, after: after})
		}
	}

	// El pedido quedó comprometido en duro: cualquier blando restante sobra.
	if hold.SoftQuantity.GreaterThan(decimal.Zero) {
		excess := hold.SoftQuantity
		after, err := level.ReleaseSoft(excess)
		if err != nil {
			return nil, err
		}
		hold.SoftQuantity = decimal.Zero
		muts = append(muts, mutation{movType: entity.MovementTypeRELEASE, change: excess.Neg(), after: after})
	}
	return muts, nil
}

// convergeHard lleva la retención dura exactamente a target (sincronización de
// un pedido confirmado): sube como raiseHard y baja liberando el excedente.
func convergeHard(level *entity.StockLevel, hold *entity.OrderReservation, target decimal.Decimal) ([]mutation, error) {
	diff := target.Sub(hold.HardQuantity)
	if diff.LessThan(decimal.Zero) {
		release := diff.Neg()
		after, err := level.ReleaseHard(release)
		if err != nil {
			return nil, err
		}
		hold.HardQuantity = target
		muts := []mutation{{movType: entity.MovementTypeRELEASE, change: diff, after: after}}
		if hold.SoftQuantity.GreaterThan(decimal.Zero) {
			excess := hold.SoftQuantity
			afterSoft, err := level.ReleaseSoft(excess)
			if err != nil {
				return nil, err
			}
			hold.SoftQuantity = decimal.Zero
			muts = append(muts, mutation{movType: entity.MovementTypeRELEASE, change: excess.Neg(), after: afterSoft})
		}
		return muts, nil
	}
	return raiseHard(level, hold, target)
}

// releaseAll libera todo lo retenido por el pedido sobre este nivel.
func releaseAll(level *entity.StockLevel, hold *entity.OrderReservation) ([]mutation, error) {
	if hold.IsEmpty() {
		return nil, nil
	}
	var muts []mutation
	if hold.SoftQuantity.GreaterThan(decimal.Zero) {
		soft := hold.SoftQuantity
		after, err := level.ReleaseSoft(soft)
		if err != nil {
			return nil, err
		}
		hold.SoftQuantity = decimal.Zero
		muts = append(muts, mutation{movType: entity.MovementTypeRELEASE, change: soft.Neg(), after: after})
	}
	if hold.HardQuantity.GreaterThan(decimal.Zero) {
		hard := hold.HardQuantity
		after, err := level.ReleaseHard(hard)
		if err != nil {
			return nil, err
		}
		hold.HardQuantity = decimal.Zero
		muts = append(muts, mutation{movType: entity.MovementTypeRELEASE, change: hard.Neg(), after: after})
	}
	return muts, nil
}

func (s *Service) logOpFailure(err error, op, orderID string) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		s.log.Warn().
			Str("order_id", orderID).
			Str("item_id", insufficient.ItemID).
			Str("requested", insufficient.Requested.String()).
			Str("available", insufficient.Available.String()).
			Msgf("%s bloqueada por stock insuficiente", op)
	case errors.Is(err, domain.ErrLockTimeout):
		s.log.Warn().Str("order_id", orderID).Msgf("%s: bloqueo no adquirido a tiempo, se reintentará", op)
	case errors.Is(err, domain.ErrLedgerDrift):
		s.log.Error().Str("order_id", orderID).Err(err).Msgf("%s: deriva del libro detectada", op)
	default:
		s.log.Error().Str("order_id", orderID).Err(err).Msgf("%s falló", op)
	}
}
