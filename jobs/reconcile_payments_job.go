package jobs

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kamaundungu/soko_events/database"
	"github.com/kamaundungu/soko_events/models"
	"github.com/kamaundungu/soko_events/payments"
	"github.com/kamaundungu/soko_events/services"
)

// ReconcilePendingPayments sweeps payments stuck in pending beyond the
// threshold. Each candidate is handled independently: one failure is
// logged and the batch moves on. The terminal transition itself goes
// through services.ApplyPaymentResult, which takes the same per-payment
// lock as the webhook handler, so a callback racing the sweep cannot
// double-process — whichever loses simply observes the terminal row.
func ReconcilePendingPayments() {
	log.Println("Running job: ReconcilePendingPayments...")

	now := time.Now()
	floor, cutoff := sweepWindow(now, paymentPendingThreshold)

	var stuck []models.Payment
	err := database.DB.
		Where("status = ? AND created_at > ? AND created_at <= ?", models.PaymentPending, floor, cutoff).
		Order("created_at asc").
		Find(&stuck).Error
	if err != nil {
		log.Printf("🔥 Failed to query stuck payments: %v", err)
		return
	}

	if len(stuck) == 0 {
		return
	}
	log.Printf("Found %d pending payments to reconcile", len(stuck))

	for _, payment := range stuck {
		if err := reconcilePayment(payment, now); err != nil {
			log.Printf("🔥 Reconciliation failed for payment %s: %v", payment.InvoiceRef, err)
			errText := err.Error()
			database.DB.Create(&models.ReconciliationLog{
				Kind:       models.WebhookKindPayment,
				InvoiceRef: payment.InvoiceRef,
				Action:     "error",
				Reason:     "sweep_error",
				Error:      &errText,
			})
		}
	}
}

func reconcilePayment(payment models.Payment, now time.Time) error {
	if payment.ProviderRef != nil {
		status, err := payments.QueryTransactionStatus(*payment.ProviderRef)
		if err == nil {
			if result, terminal := payments.ResultFromStatus(status, models.WebhookKindPayment, payment.InvoiceRef); terminal {
				return applyPaymentRemedy(result, models.ReconcileProviderConfirmed)
			}
			// Provider still says pending; only a policy timeout can
			// settle it now.
			if !pastPolicyTimeout(payment.CreatedAt, now) {
				return nil
			}
		} else if !pastPolicyTimeout(payment.CreatedAt, now) {
			return fmt.Errorf("status query failed: %w", err)
		}
	} else if !pastPolicyTimeout(payment.CreatedAt, now) {
		// No provider reference to query and not yet old enough to
		// give up on; leave it for the next sweep.
		return nil
	}

	result := &payments.CallbackResult{
		Kind:          models.WebhookKindPayment,
		InvoiceRef:    payment.InvoiceRef,
		Status:        models.PaymentFailed,
		FailureReason: "Payment timed out awaiting provider confirmation",
	}
	return applyPaymentRemedy(result, models.ReconcilePolicyTimeout)
}

func applyPaymentRemedy(result *payments.CallbackResult, reason string) error {
	_, err := services.ApplyPaymentResult(result, "reconciliation sweep: "+reason)
	if errors.Is(err, services.ErrAlreadySettled) {
		// A webhook won the race mid-sweep. Nothing to do.
		return nil
	}
	if err != nil {
		return err
	}

	return database.DB.Create(&models.ReconciliationLog{
		Kind:       models.WebhookKindPayment,
		InvoiceRef: result.InvoiceRef,
		Action:     result.Status,
		Reason:     reason,
	}).Error
}
