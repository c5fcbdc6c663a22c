package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaundungu/soko_events/handlers"
	"github.com/kamaundungu/soko_events/middleware"
)

func PaymentRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	api.Post("/payments/webhook", middleware.VerifyWebhookSignature(), handlers.HandlePaymentWebhook)

	protected := api.Group("/payments", middleware.Protected())
	protected.Post("/checkout", handlers.CheckoutHandler)
	protected.Get("/:invoiceRef", handlers.GetPaymentStatus)
}
