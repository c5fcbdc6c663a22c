package services

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/kamaundungu/soko_events/database"
	"github.com/kamaundungu/soko_events/locks"
	"github.com/kamaundungu/soko_events/models"
	"github.com/kamaundungu/soko_events/payments"
	"github.com/kamaundungu/soko_events/stream"
	"github.com/kamaundungu/soko_events/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance for this withdrawal")
	ErrUnknownWithdrawal   = errors.New("no withdrawal found for reference")
)

// RequestWithdrawal deducts the seller balance and creates the
// processing withdrawal row in one transaction, so two concurrent
// requests cannot double-spend the same balance. The payout call to
// Payd happens after commit; if it fails, the deduction is reversed
// exactly once and the withdrawal marked failed.
func RequestWithdrawal(sellerID uuid.UUID, amount float64, destName, destNo string) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var seller models.Seller
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&seller, "id = ?", sellerID).Error; err != nil {
			return err
		}

		if seller.CurrentBalance < amount {
			return ErrInsufficientBalance
		}
		seller.CurrentBalance = round2(seller.CurrentBalance - amount)
		if err := tx.Save(&seller).Error; err != nil {
			return err
		}

		ref, err := utils.GenerateWithdrawalRef(tx)
		if err != nil {
			return err
		}

		withdrawal = models.Withdrawal{
			SellerID:        sellerID,
			InvoiceRef:      ref,
			Amount:          amount,
			DestinationName: destName,
			DestinationNo:   destNo,
			Status:          models.WithdrawalProcessing,
		}
		return tx.Create(&withdrawal).Error
	})
	if err != nil {
		return nil, err
	}

	payoutResp, err := payments.InitiatePayout(amount, destNo, destName, withdrawal.InvoiceRef)
	if err != nil {
		log.Printf("🔥 Payout initiation failed for withdrawal %s: %v", withdrawal.InvoiceRef, err)
		failure := &payments.CallbackResult{
			Kind:          models.WebhookKindPayout,
			InvoiceRef:    withdrawal.InvoiceRef,
			Status:        models.PaymentFailed,
			FailureReason: err.Error(),
		}
		if _, applyErr := ApplyPayoutResult(failure, "provider initiation failed"); applyErr != nil {
			log.Printf("🔥 CRITICAL: Failed to reverse withdrawal %s after initiation error: %v", withdrawal.InvoiceRef, applyErr)
		}
		return nil, err
	}

	if payoutResp.TransactionRef != "" {
		providerRef := payoutResp.TransactionRef
		withdrawal.ProviderRef = &providerRef
		if err := database.DB.Save(&withdrawal).Error; err != nil {
			log.Printf("🔥 Failed to store provider reference for withdrawal %s: %v", withdrawal.InvoiceRef, err)
		}
	}

	return &withdrawal, nil
}

// ApplyPayoutResult performs the single terminal transition for a
// withdrawal. On failure the seller balance deduction is reversed; the
// Reversed flag makes the reversal idempotent even if a failure
// callback is redelivered before the status flip committed.
//
// Lock order inside the transaction is withdrawal then seller, matching
// the payment settlement path (payment/order before seller) so the two
// webhook paths cannot deadlock on a shared seller row.
func ApplyPayoutResult(res *payments.CallbackResult, auditReason string) (*models.Withdrawal, error) {
	release := locks.Acquire("withdrawal:" + res.InvoiceRef)
	defer release()

	var withdrawal models.Withdrawal

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("invoice_ref = ?", res.InvoiceRef).First(&withdrawal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnknownWithdrawal
			}
			return err
		}

		if withdrawal.IsTerminal() {
			return ErrAlreadySettled
		}

		if withdrawal.ProviderRef == nil && res.ProviderRef != "" {
			providerRef := res.ProviderRef
			withdrawal.ProviderRef = &providerRef
		}

		switch res.Status {
		case models.PaymentCompleted:
			withdrawal.Status = models.WithdrawalCompleted
			now := time.Now()
			withdrawal.CompletedAt = &now
		default:
			// A cancelled payout is a failed payout from the seller's
			// point of view: the money must come back.
			withdrawal.Status = models.WithdrawalFailed
			if res.FailureReason != "" {
				reason := res.FailureReason
				withdrawal.FailureReason = &reason
			}
			if !withdrawal.Reversed {
				var seller models.Seller
				if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
					First(&seller, "id = ?", withdrawal.SellerID).Error; err != nil {
					return err
				}
				seller.CurrentBalance = round2(seller.CurrentBalance + withdrawal.Amount)
				if err := tx.Save(&seller).Error; err != nil {
					return err
				}
				withdrawal.Reversed = true
			}
		}

		return tx.Save(&withdrawal).Error
	})
	if err != nil {
		return nil, err
	}

	ev := stream.Event{Type: withdrawal.Status, Status: withdrawal.Status}
	if withdrawal.FailureReason != nil {
		ev.FailureDetails = *withdrawal.FailureReason
	}
	stream.Hub.Publish(withdrawal.InvoiceRef, ev)
	log.Printf("Withdrawal %s settled as %s (%s)", withdrawal.InvoiceRef, withdrawal.Status, auditReason)

	return &withdrawal, nil
}
