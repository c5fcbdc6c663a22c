package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/kamaundungu/soko_events/database"
	"github.com/kamaundungu/soko_events/locks"
	"github.com/kamaundungu/soko_events/models"
	"github.com/kamaundungu/soko_events/payments"
	"github.com/kamaundungu/soko_events/stream"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrUnknownReference means no payment matched the callback; the
	// webhook still acknowledges with 200 so the provider does not retry.
	ErrUnknownReference = errors.New("no payment found for reference")
	// ErrAlreadySettled means a second writer (duplicate callback or the
	// sweep) got there first. A no-op, not a failure.
	ErrAlreadySettled = errors.New("payment already in a terminal state")
)

// ApplyPaymentResult performs the single terminal transition for a
// payment. Both the webhook handler and the reconciliation sweep funnel
// through here; the keyed lock plus the FOR UPDATE re-read guarantee
// that exactly one of them wins and the loser observes terminal state.
//
// Inside the transaction, rows are locked payment then order then
// seller, always in that order, to avoid deadlock against the
// withdrawal paths touching the same seller row.
func ApplyPaymentResult(res *payments.CallbackResult, auditReason string) (*models.Payment, error) {
	release := locks.Acquire("payment:" + res.InvoiceRef)
	defer release()

	var payment models.Payment
	var order models.Order
	completed := false

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("invoice_ref = ?", res.InvoiceRef).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownReference
			}
			return err
		}

		if payment.IsTerminal() {
			return ErrAlreadySettled
		}
		if !models.CanTransition(payment.Status, res.Status) {
			return fmt.Errorf("illegal payment transition %s -> %s for %s", payment.Status, res.Status, res.InvoiceRef)
		}

		payment.Status = res.Status
		if payment.ProviderRef == nil && res.ProviderRef != "" {
			providerRef := res.ProviderRef
			payment.ProviderRef = &providerRef
		}
		if res.FailureReason != "" {
			reason := res.FailureReason
			payment.FailureReason = &reason
		}
		if err := tx.Save(&payment).Error; err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", payment.OrderID).Error; err != nil {
			return err
		}

		from := order.Status
		switch res.Status {
		case models.PaymentCompleted:
			order.Status = models.OrderDeliveryPending
			order.PaymentStatus = models.PaymentCompleted

			var seller models.Seller
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&seller, "id = ?", order.SellerID).Error; err != nil {
				return err
			}
			seller.CurrentBalance = round2(seller.CurrentBalance + order.SellerAmount)
			if err := tx.Save(&seller).Error; err != nil {
				return err
			}

			if err := tx.Model(&models.TicketType{}).Where("id = ?", order.TicketTypeID).
				Update("sold", gorm.Expr("sold + ?", order.Quantity)).Error; err != nil {
				return err
			}
			completed = true
		case models.PaymentFailed, models.PaymentCancelled:
			order.Status = models.OrderCancelled
			order.PaymentStatus = res.Status
		}
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		return tx.Create(&models.OrderAudit{
			OrderID:       order.ID,
			FromStatus:    from,
			ToStatus:      order.Status,
			PaymentStatus: order.PaymentStatus,
			Reason:        auditReason,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	// Side effects live outside the transaction and are guarded by the
	// transition above: a duplicate callback never reaches this point.
	delivered := stream.Hub.Publish(payment.InvoiceRef, stream.TerminalEvent(&payment))
	log.Printf("Payment %s settled as %s (%s), broadcast to %d subscribers", payment.InvoiceRef, payment.Status, auditReason, delivered)

	if completed {
		go IssueTicket(order, payment)
	}

	return &payment, nil
}
