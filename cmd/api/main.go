package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/application/reservation"
	"github.com/jhoicas/stock-ledger/internal/application/saga"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/bus"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/catalog"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/stock-ledger/internal/interfaces/http"
	"github.com/jhoicas/stock-ledger/pkg/config"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if err := postgres.Migrate(cfg.DB); err != nil {
		log.Fatal().Err(err).Msg("migraciones")
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	levelRepo := postgres.NewStockLevelRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	orderRepo := postgres.NewSalesOrderRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	eventBus := bus.New(bus.Config{
		Workers:     cfg.Queue.Workers,
		BufferSize:  cfg.Queue.BufferSize,
		MaxRetries:  cfg.Queue.MaxRetries,
		BaseBackoff: cfg.Queue.BaseBackoff,
	}, log)

	resolver := catalog.NewFixedResolver(cfg.Stock.DefaultWarehouseID, cfg.Stock.DefaultLocationID)
	reservationSvc := reservation.NewService(txRunner, resolver, eventBus, log)
	querySvc := reservation.NewQueryService(levelRepo, movementRepo)
	registerMovementUC := inventory.NewRegisterMovementUseCase(txRunner, eventBus, log)
	cancelOrderUC := saga.NewCancelOrderUseCase(orderRepo, eventBus, log)

	// Listeners de la saga: se suscriben antes de arrancar los workers.
	saga.NewOrderListener(reservationSvc, log).Register(eventBus)
	saga.NewDeliveryListener(cancelOrderUC, log).Register(eventBus)
	eventBus.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Stock: httpRouter.NewStockHandler(querySvc, registerMovementUC),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Drenar la cola de eventos antes de soltar el pool.
	eventBus.Shutdown()

	log.Info().Msg("aplicación detenida")
}
