package routes

import (
	"github.com/gofiber/fiber/v2"

	"matchbook/src/config"
	"matchbook/src/handlers"
	"matchbook/src/middleware"
)

// Endpoints lists the registered routes for the startup log.
var Endpoints = []string{
	"POST   /api/v1/orders",
	"GET    /api/v1/orders",
	"GET    /api/v1/orderbook/:symbol",
	"GET    /health",
	"GET    /metrics",
}

func SetupRoutes(app *fiber.App, orderHandler *handlers.OrderHandler, cfg *config.Config) *middleware.ServiceAvailability {
	availability := middleware.NewServiceAvailability(cfg.Server.MaxConcurrentRequests, cfg.Server.MaintenanceMode)
	app.Use(availability.Middleware())
	app.Use(middleware.RequestLogger(cfg.Server.RequestLogging))

	api := app.Group("/api/v1")

	if !cfg.RateLimit.Disabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Max, cfg.RateLimit.Window)
		api.Use(rateLimiter.Middleware())
	}

	api.Post("/orders", orderHandler.SubmitOrder)
	api.Get("/orders", orderHandler.DumpOrders)
	api.Get("/orderbook/:symbol", orderHandler.GetOrderBook)

	app.Get("/health", orderHandler.HealthCheck)
	app.Get("/metrics", orderHandler.Metrics)

	return availability
}
