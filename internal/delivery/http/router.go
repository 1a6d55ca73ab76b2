package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes registers the API surface on the app.
func SetupRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.HealthCheck)

	api := app.Group("/api")
	{
		api.Get("/incidents", handler.GetIncidents)
		api.Post("/directions", handler.PlanRoutes)
		api.Post("/assistant", handler.AskAssistant)
	}
}
