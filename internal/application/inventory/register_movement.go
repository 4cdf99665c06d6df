package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/event"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// RegisterMovementUseCase registra movimientos físicos de inventario
// (RECEIPT, ISSUE, ADJUST, TRANSFER) con bloqueo de fila (SELECT FOR UPDATE)
// y Commit/Rollback. Cada mutación queda emparejada con su entrada en el libro
// dentro de la misma transacción.
type RegisterMovementUseCase struct {
	tx        TxRunner
	publisher Publisher
	log       *logger.Logger
}

// NewRegisterMovementUseCase construye el caso de uso.
func NewRegisterMovementUseCase(tx TxRunner, publisher Publisher, log *logger.Logger) *RegisterMovementUseCase {
	return &RegisterMovementUseCase{tx: tx, publisher: publisher, log: log.Component("inventario")}
}

// MovementInput entrada para registrar un movimiento físico.
// Para RECEIPT/ISSUE/ADJUST: ItemID, WarehouseID, LocationID, Quantity
// (firmada solo en ADJUST). Para TRANSFER: ItemID, ubicaciones origen y destino.
type MovementInput struct {
	CompanyID       string
	ActorID         string
	ItemID          string
	WarehouseID     string
	LocationID      string
	FromWarehouseID string
	FromLocationID  string
	ToWarehouseID   string
	ToLocationID    string
	Type            string
	Quantity        decimal.Decimal
	Reference       string
}

// RegisterMovement valida la entrada, aplica la mutación dentro del alcance
// bloqueado y publica StockLevelUpdated tras el commit.
func (uc *RegisterMovementUseCase) RegisterMovement(ctx context.Context, input MovementInput) error {
	if err := validateInput(input); err != nil {
		return err
	}

	var err error
	switch input.Type {
	case entity.MovementTypeRECEIPT, entity.MovementTypeISSUE, entity.MovementTypeADJUST:
		err = uc.registerSingle(ctx, input)
	case entity.MovementTypeTRANSFER:
		err = uc.registerTransfer(ctx, input)
	}
	if err != nil {
		uc.log.Warn().Err(err).
			Str("item_id", input.ItemID).
			Str("type", input.Type).
			Msg("movimiento de inventario rechazado")
		return err
	}

	uc.publishUpdated(ctx, input.CompanyID, input.ItemID)
	uc.log.Info().
		Str("item_id", input.ItemID).
		Str("type", input.Type).
		Str("quantity", input.Quantity.String()).
		Msg("movimiento registrado")
	return nil
}

func validateInput(input MovementInput) error {
	if input.CompanyID == "" || input.ItemID == "" {
		return domain.ErrInvalidInput
	}
	switch input.Type {
	case entity.MovementTypeRECEIPT, entity.MovementTypeISSUE:
		if input.WarehouseID == "" || input.LocationID == "" || !input.Quantity.GreaterThan(decimal.Zero) {
			return domain.ErrInvalidInput
		}
	case entity.MovementTypeADJUST:
		if input.WarehouseID == "" || input.LocationID == "" || input.Quantity.IsZero() {
			return domain.ErrInvalidInput
		}
	case entity.MovementTypeTRANSFER:
		if input.FromWarehouseID == "" || input.FromLocationID == "" ||
			input.ToWarehouseID == "" || input.ToLocationID == "" {
			return domain.ErrInvalidInput
		}
		if input.FromLocationID == input.ToLocationID || !input.Quantity.GreaterThan(decimal.Zero) {
			return domain.ErrInvalidInput
		}
	default:
		return domain.ErrInvalidInput
	}
	return nil
}

// registerSingle aplica RECEIPT/ISSUE/ADJUST sobre un solo nivel bloqueado.
func (uc *RegisterMovementUseCase) registerSingle(ctx context.Context, input MovementInput) error {
	return uc.tx.WithLockedStockLevel(ctx, input.CompanyID, input.ItemID, input.WarehouseID, input.LocationID,
		func(level *entity.StockLevel, movRepo repository.StockMovementRepository, _ repository.OrderReservationRepository) error {
			var (
				after  decimal.Decimal
				change decimal.Decimal
				err    error
			)
			switch input.Type {
			case entity.MovementTypeRECEIPT:
				change = input.Quantity
				after, err = level.Receive(input.Quantity)
			case entity.MovementTypeISSUE:
				change = input.Quantity.Neg()
				after, err = level.Issue(input.Quantity)
			case entity.MovementTypeADJUST:
				change = input.Quantity
				after, err = level.Adjust(input.Quantity)
			}
			if err != nil {
				return err
			}
			mov, err := entity.NewStockMovement(level.ID, input.Type, change, after, input.ActorID, input.Reference)
			if err != nil {
				return err
			}
			return movRepo.Create(ctx, mov)
		})
}

// registerTransfer resta de la ubicación origen y suma en la destino dentro de
// la misma transacción, bloqueando ambas filas en orden estable de ubicación
// para no cruzar bloqueos con otro traslado inverso. Solo se traslada stock no
// comprometido: el origen debe tener disponible suficiente.
func (uc *RegisterMovementUseCase) registerTransfer(ctx context.Context, input MovementInput) error {
	type side struct {
		warehouseID string
		locationID  string
	}
	from := side{input.FromWarehouseID, input.FromLocationID}
	to := side{input.ToWarehouseID, input.ToLocationID}

	first, second := from, to
	if second.locationID < first.locationID {
		first, second = second, first
	}

	return uc.tx.Run(ctx, func(
		levelRepo repository.StockLevelRepository,
		movRepo repository.StockMovementRepository,
		_ repository.OrderReservationRepository,
	) error {
		levels := make(map[side]*entity.StockLevel, 2)
		for _, sd := range []side{first, second} {
			level, err := levelRepo.GetOrCreateForUpdate(ctx, input.CompanyID, input.ItemID, sd.warehouseID, sd.locationID)
			if err != nil {
				return err
			}
			levels[sd] = level
		}

		origin, dest := levels[from], levels[to]
		afterOrigin, err := origin.Issue(input.Quantity)
		if err != nil {
			return err
		}
		afterDest, err := dest.Receive(input.Quantity)
		if err != nil {
			return err
		}

		outMov, err := entity.NewStockMovement(origin.ID, entity.MovementTypeTRANSFER,
			input.Quantity.Neg(), afterOrigin, input.ActorID, input.Reference)
		if err != nil {
			return err
		}
		if err := movRepo.Create(ctx, outMov); err != nil {
			return err
		}
		inMov, err := entity.NewStockMovement(dest.ID, entity.MovementTypeTRANSFER,
			input.Quantity, afterDest, input.ActorID, input.Reference)
		if err != nil {
			return err
		}
		if err := movRepo.Create(ctx, inMov); err != nil {
			return err
		}

		for _, level := range levels {
			if err := level.CheckInvariant(); err != nil {
				return err
			}
			if err := levelRepo.Save(ctx, level); err != nil {
				return err
			}
		}
		return nil
	})
}

func (uc *RegisterMovementUseCase) publishUpdated(ctx context.Context, companyID, itemID string) {
	ev := event.Event{
		Name:    event.StockLevelUpdatedName,
		Payload: event.StockLevelUpdated{ItemID: itemID, CompanyID: companyID},
	}
	if err := uc.publisher.Publish(ctx, ev); err != nil {
		uc.log.Warn().Err(err).Str("item_id", itemID).Msg("no se pudo publicar StockLevelUpdated")
	}
}
