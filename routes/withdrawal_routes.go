package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/kamaundungu/soko_events/handlers"
	"github.com/kamaundungu/soko_events/middleware"
)

func WithdrawalRoutes(app *fiber.App) {
	api := app.Group("/api/v1")

	// Payout callbacks land on their own path; a payout result must
	// never reach the payment webhook handler.
	api.Post("/withdrawals/webhook", middleware.VerifyWebhookSignature(), handlers.HandlePayoutWebhook)

	api.Post("/withdrawals", middleware.Protected(), middleware.SellerRequired(), handlers.RequestWithdrawalHandler)
}
