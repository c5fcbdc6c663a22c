package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaundungu/soko_events/handlers"
)

func StreamRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// The status stream is keyed on the invoice reference alone: the
	// browser EventSource API cannot attach an Authorization header.
	api.Get("/payments/:invoiceRef/stream", handlers.StreamPaymentStatus)
	api.Get("/payments/:invoiceRef/ws", handlers.WebSocketUpgrade, handlers.PaymentStatusSocket())
}
