package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias ya construidas que el router cablea.
type RouterDeps struct {
	Stock *StockHandler
}

// Router registra las rutas de la API. La autenticación vive en un
// colaborador externo; aquí solo se exige el header de tenant.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api/v1")

	stock := api.Group("/stock")
	stock.Get("/:itemId/summary", deps.Stock.Summary)
	stock.Get("/:itemId/movements", deps.Stock.Movements)
	stock.Post("/availability", deps.Stock.Availability)
	stock.Post("/movements", deps.Stock.RegisterMovement)
}
