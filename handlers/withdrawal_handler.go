package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/kamaundungu/soko_events/database"
	"github.com/kamaundungu/soko_events/models"
	"github.com/kamaundungu/soko_events/payments"
	"github.com/kamaundungu/soko_events/services"
	"gorm.io/gorm"
)

type WithdrawalPayload struct {
	Amount          float64 `json:"amount" validate:"required,gt=0"`
	DestinationNo   string  `json:"destination_no" validate:"required"`
	DestinationName string  `json:"destination_name" validate:"required"`
}

func RequestWithdrawalHandler(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	var req WithdrawalPayload
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	var seller models.Seller
	if err := database.DB.Where("user_id = ?", userID).First(&seller).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Seller profile not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	withdrawal, err := services.RequestWithdrawal(seller.ID, req.Amount, req.DestinationName, req.DestinationNo)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInsufficientBalance):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case err.Error() == "invalid M-Pesa phone number format":
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		default:
			log.Printf("🔥 Withdrawal request failed for seller %s: %v", seller.ID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Withdrawal could not be initiated, please try again."})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"withdrawal": withdrawal,
		"message":    "Withdrawal is being processed",
	})
}

// HandlePayoutWebhook is the completion path for payouts. It lives on a
// distinct route and its adapter refuses payment references, so a
// payout result can never be applied to a payment-in record.
func HandlePayoutWebhook(c *fiber.Ctx) error {
	body := c.Body()

	result, err := payments.ParsePayoutCallback(body)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrNoReference):
			log.Printf("⚠️ Payout webhook with no detectable reference: %s", string(body))
			recordWebhookEvent(models.WebhookKindPayout, nil, body, false, "no detectable reference")
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged, no reference"})
		case errors.Is(err, payments.ErrWrongKind):
			log.Printf("⚠️ Payment-shaped payload on payout webhook: %v", err)
			recordWebhookEvent(models.WebhookKindPayout, nil, body, false, err.Error())
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged, wrong endpoint for this reference"})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
		}
	}

	log.Printf("Received payout webhook for withdrawal %s: status=%s", result.InvoiceRef, result.Status)

	_, err = services.ApplyPayoutResult(result, "webhook callback")
	switch {
	case err == nil:
		recordWebhookEvent(models.WebhookKindPayout, &result.InvoiceRef, body, true, "")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook processed successfully"})
	case errors.Is(err, services.ErrAlreadySettled):
		recordWebhookEvent(models.WebhookKindPayout, &result.InvoiceRef, body, false, "already settled")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook already processed"})
	case errors.Is(err, services.ErrUnknownWithdrawal):
		log.Printf("⚠️ Payout webhook for unknown reference %s", result.InvoiceRef)
		recordWebhookEvent(models.WebhookKindPayout, &result.InvoiceRef, body, false, "unknown reference")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged, unknown reference"})
	default:
		log.Printf("🔥 CRITICAL: Error processing payout webhook for %s: %v", result.InvoiceRef, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
	}
}
