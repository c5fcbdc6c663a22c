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

// ReconcileProcessingWithdrawals is the hourly payout backstop. Same
// shape as the payment sweep, but a policy-timed-out withdrawal also
// gets the seller's balance back via the settlement path's reversal.
func ReconcileProcessingWithdrawals() {
	log.Println("Running job: ReconcileProcessingWithdrawals...")

	now := time.Now()
	floor, cutoff := sweepWindow(now, payoutPendingThreshold)

	var stuck []models.Withdrawal
	err := database.DB.
		Where("status = ? AND created_at > ? AND created_at <= ?", models.WithdrawalProcessing, floor, cutoff).
		Order("created_at asc").
		Find(&stuck).Error
	if err != nil {
		log.Printf("🔥 Failed to query stuck withdrawals: %v", err)
		return
	}

	if len(stuck) == 0 {
		return
	}
	log.Printf("Found %d processing withdrawals to reconcile", len(stuck))

	for _, withdrawal := range stuck {
		if err := reconcileWithdrawal(withdrawal, now); err != nil {
			log.Printf("🔥 Reconciliation failed for withdrawal %s: %v", withdrawal.InvoiceRef, err)
			errText := err.Error()
			database.DB.Create(&models.ReconciliationLog{
				Kind:       models.WebhookKindPayout,
				InvoiceRef: withdrawal.InvoiceRef,
				Action:     "error",
				Reason:     "sweep_error",
				Error:      &errText,
			})
		}
	}
}

func reconcileWithdrawal(withdrawal models.Withdrawal, now time.Time) error {
	if withdrawal.ProviderRef != nil {
		status, err := payments.QueryTransactionStatus(*withdrawal.ProviderRef)
		if err == nil {
			if result, terminal := payments.ResultFromStatus(status, models.WebhookKindPayout, withdrawal.InvoiceRef); terminal {
				return applyWithdrawalRemedy(result, models.ReconcileProviderConfirmed)
			}
			if !pastPolicyTimeout(withdrawal.CreatedAt, now) {
				return nil
			}
		} else if !pastPolicyTimeout(withdrawal.CreatedAt, now) {
			return fmt.Errorf("status query failed: %w", err)
		}
	} else if !pastPolicyTimeout(withdrawal.CreatedAt, now) {
		return nil
	}

	result := &payments.CallbackResult{
		Kind:          models.WebhookKindPayout,
		InvoiceRef:    withdrawal.InvoiceRef,
		Status:        models.PaymentFailed,
		FailureReason: "Payout timed out awaiting provider confirmation",
	}
	return applyWithdrawalRemedy(result, models.ReconcilePolicyTimeout)
}

func applyWithdrawalRemedy(result *payments.CallbackResult, reason string) error {
	_, err := services.ApplyPayoutResult(result, "reconciliation sweep: "+reason)
	if errors.Is(err, services.ErrAlreadySettled) {
		return nil
	}
	if err != nil {
		return err
	}

	return database.DB.Create(&models.ReconciliationLog{
		Kind:       models.WebhookKindPayout,
		InvoiceRef: result.InvoiceRef,
		Action:     result.Status,
		Reason:     reason,
	}).Error
}
