package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kamaundungu/soko_events/database"
	"github.com/kamaundungu/soko_events/models"
	"github.com/kamaundungu/soko_events/payments"
	"github.com/kamaundungu/soko_events/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTicketTypeUnavailable = errors.New("ticket type is sold out or no longer available")
	ErrAmountMismatch        = errors.New("requested amount does not match the ticket price")
)

type CheckoutRequest struct {
	BuyerID        uuid.UUID
	TicketTypeID   uuid.UUID
	Quantity       int
	Amount         float64
	Phone          string
	Email          string
	IdempotencyKey string
}

type CheckoutResult struct {
	Order   models.Order
	Payment models.Payment
	Message string
}

// InitiateCheckout creates the pending Order/Payment pair inside one
// transaction and then asks Payd to push the STK prompt. The amount is
// always recomputed from the stored ticket price; the client-supplied
// figure is only sanity-checked. A repeat request with the same
// idempotency key inside the window returns the existing attempt
// instead of creating a second pending payment.
func InitiateCheckout(req CheckoutRequest) (*CheckoutResult, error) {
	idemKey := req.IdempotencyKey
	if idemKey == "" {
		idemKey = utils.IdempotencyKey(req.BuyerID.String(), req.TicketTypeID.String(), req.Quantity, time.Now())
	}

	var existing models.Payment
	err := database.DB.Preload("Order").
		Where("idempotency_key = ? AND status IN ?", idemKey, []string{models.PaymentPending, models.PaymentCompleted}).
		First(&existing).Error
	if err == nil {
		log.Printf("Checkout replay for idempotency key %s, returning invoice %s", idemKey, existing.InvoiceRef)
		return &CheckoutResult{Order: existing.Order, Payment: existing, Message: "Checkout already in progress"}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var order models.Order
	var payment models.Payment

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var ticketType models.TicketType
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Preload("Event").
			First(&ticketType, "id = ?", req.TicketTypeID).Error; err != nil {
			return err
		}

		if ticketType.Sold+req.Quantity > ticketType.Quantity {
			return ErrTicketTypeUnavailable
		}

		amount, fee, sellerAmount := ComputeOrderAmounts(ticketType.Price, req.Quantity)
		if req.Amount > 0 && req.Amount != amount {
			return fmt.Errorf("%w: got %.2f, expected %.2f", ErrAmountMismatch, req.Amount, amount)
		}

		order = models.Order{
			BuyerID:       req.BuyerID,
			SellerID:      ticketType.Event.SellerID,
			EventID:       ticketType.EventID,
			TicketTypeID:  ticketType.ID,
			Quantity:      req.Quantity,
			Amount:        amount,
			Currency:      ticketType.Currency,
			PlatformFee:   fee,
			SellerAmount:  sellerAmount,
			Status:        models.OrderPending,
			PaymentStatus: models.PaymentPending,
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		invoiceRef, err := utils.GenerateInvoiceRef(tx)
		if err != nil {
			return err
		}

		payment = models.Payment{
			OrderID:        order.ID,
			InvoiceRef:     invoiceRef,
			IdempotencyKey: &idemKey,
			Amount:         amount,
			Currency:       ticketType.Currency,
			Status:         models.PaymentPending,
			Method:         "mpesa",
		}
		if req.Phone != "" {
			payment.PayerPhone = &req.Phone
		}
		if req.Email != "" {
			payment.PayerEmail = &req.Email
		}
		return tx.Create(&payment).Error
	})
	if err != nil {
		return nil, err
	}

	stkResponse, err := payments.InitiateStkPush(payment.Amount, req.Phone, payment.Currency, payment.InvoiceRef)
	if err != nil {
		log.Printf("🔥 STK push initiation failed for invoice %s: %v", payment.InvoiceRef, err)
		markInitiationFailed(&payment, &order, err)
		return nil, err
	}

	if stkResponse.TransactionRef != "" {
		payment.ProviderRef = &stkResponse.TransactionRef
		if err := database.DB.Save(&payment).Error; err != nil {
			log.Printf("🔥 Failed to store provider reference for invoice %s: %v", payment.InvoiceRef, err)
		}
	}

	return &CheckoutResult{Order: order, Payment: payment, Message: stkResponse.Message}, nil
}

// markInitiationFailed settles a payment synchronously when the
// provider call itself failed, so the pending row does not linger until
// the reconciliation sweep times it out.
func markInitiationFailed(payment *models.Payment, order *models.Order, cause error) {
	reason := cause.Error()
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		payment.Status = models.PaymentFailed
		payment.FailureReason = &reason
		if err := tx.Save(payment).Error; err != nil {
			return err
		}

		from := order.Status
		order.Status = models.OrderCancelled
		order.PaymentStatus = models.PaymentFailed
		if err := tx.Save(order).Error; err != nil {
			return err
		}

		return tx.Create(&models.OrderAudit{
			OrderID:       order.ID,
			FromStatus:    from,
			ToStatus:      order.Status,
			PaymentStatus: order.PaymentStatus,
			Reason:        "provider initiation failed: " + reason,
		}).Error
	})
	if err != nil {
		log.Printf("🔥 CRITICAL: Failed to mark payment %s as failed after initiation error: %v", payment.InvoiceRef, err)
	}
}
