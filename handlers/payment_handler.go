package handlers

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/kamaundungu/soko_events/database"
	"github.com/kamaundungu/soko_events/models"
	"github.com/kamaundungu/soko_events/payments"
	"github.com/kamaundungu/soko_events/services"
	"gorm.io/gorm"
)

var validate = validator.New()

type CheckoutPayload struct {
	TicketTypeID string  `json:"ticket_type_id" validate:"required,uuid4"`
	Quantity     int     `json:"quantity" validate:"required,min=1,max=10"`
	Amount       float64 `json:"amount"`
	PhoneNumber  string  `json:"phone_number" validate:"required"`
	Email        string  `json:"email" validate:"omitempty,email"`
}

func CheckoutHandler(c *fiber.Ctx) error {
	token := c.Locals("user").(*jwt.Token)
	claims := token.Claims.(jwt.MapClaims)
	buyerID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID in token"})
	}

	var req CheckoutPayload
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	ticketTypeID, err := uuid.Parse(req.TicketTypeID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ticket type ID format"})
	}

	result, err := services.InitiateCheckout(services.CheckoutRequest{
		BuyerID:        buyerID,
		TicketTypeID:   ticketTypeID,
		Quantity:       req.Quantity,
		Amount:         req.Amount,
		Phone:          req.PhoneNumber,
		Email:          req.Email,
		IdempotencyKey: c.Get("Idempotency-Key"),
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Ticket type not found"})
		case errors.Is(err, services.ErrTicketTypeUnavailable),
			errors.Is(err, services.ErrAmountMismatch):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case err.Error() == "invalid M-Pesa phone number format":
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, payments.ErrProviderRejected):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment was rejected by the provider"})
		default:
			log.Printf("🔥 CRITICAL: Checkout failed for buyer %s: %v", buyerID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Payment could not be initiated, please try again."})
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order":            result.Order,
		"invoice_ref":      result.Payment.InvoiceRef,
		"customer_message": result.Message,
	})
}

// HandlePaymentWebhook is the asynchronous completion path for
// payments-in. It always acknowledges with 200 once the payload is
// authentic and parseable, whether or not it matched anything, so Payd
// does not enter a retry storm over business non-matches.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	body := c.Body()

	result, err := payments.ParsePaymentCallback(body)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrNoReference):
			log.Printf("⚠️ Payment webhook with no detectable reference: %s", string(body))
			recordWebhookEvent(models.WebhookKindPayment, nil, body, false, "no detectable reference")
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged, no reference"})
		case errors.Is(err, payments.ErrWrongKind):
			log.Printf("⚠️ Payout-shaped payload on payment webhook: %v", err)
			recordWebhookEvent(models.WebhookKindPayment, nil, body, false, err.Error())
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged, wrong endpoint for this reference"})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
		}
	}

	log.Printf("Received payment webhook for invoice %s: status=%s provider_ref=%s", result.InvoiceRef, result.Status, result.ProviderRef)

	_, err = services.ApplyPaymentResult(result, "webhook callback")
	switch {
	case err == nil:
		recordWebhookEvent(models.WebhookKindPayment, &result.InvoiceRef, body, true, "")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook processed successfully"})
	case errors.Is(err, services.ErrAlreadySettled):
		recordWebhookEvent(models.WebhookKindPayment, &result.InvoiceRef, body, false, "already settled")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook already processed"})
	case errors.Is(err, services.ErrUnknownReference):
		log.Printf("⚠️ Payment webhook for unknown reference %s", result.InvoiceRef)
		recordWebhookEvent(models.WebhookKindPayment, &result.InvoiceRef, body, false, "unknown reference")
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged, unknown reference"})
	default:
		log.Printf("🔥 CRITICAL: Error processing payment webhook for %s: %v", result.InvoiceRef, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
	}
}

// GetPaymentStatus is the one-shot polling fallback for clients that
// missed the push.
func GetPaymentStatus(c *fiber.Ctx) error {
	invoiceRef := c.Params("invoiceRef")

	var payment models.Payment
	if err := database.DB.Where("invoice_ref = ?", invoiceRef).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	resp := fiber.Map{
		"invoice_ref": payment.InvoiceRef,
		"status":      payment.Status,
		"amount":      payment.Amount,
		"currency":    payment.Currency,
	}
	if payment.FailureReason != nil {
		resp["failure_details"] = *payment.FailureReason
	}
	return c.JSON(resp)
}

func recordWebhookEvent(kind string, reference *string, body []byte, processed bool, note string) {
	event := models.WebhookEvent{
		Kind:      kind,
		Reference: reference,
		Body:      string(body),
		Processed: processed,
	}
	if note != "" {
		event.Note = &note
	}
	if err := database.DB.Create(&event).Error; err != nil {
		log.Printf("🔥 Failed to record webhook event: %v", err)
	}
}
