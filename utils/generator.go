package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	"github.com/kamaundungu/soko_events/models"
	"gorm.io/gorm"
)

const refSuffixLength = 6
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// idempotencyBucket is the window within which a repeat checkout for the
// same cart maps to the same key.
const idempotencyBucket = 5 * time.Minute

func randomSuffix(r *rand.Rand) string {
	b := make([]byte, refSuffixLength)
	for i := range b {
		b[i] = letterBytes[r.Intn(len(letterBytes))]
	}
	return string(b)
}

func GenerateInvoiceRef(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		ref := fmt.Sprintf("REF-%d-%s", time.Now().Unix(), randomSuffix(seededRand))

		var payment models.Payment
		err := tx.Where("invoice_ref = ?", ref).First(&payment).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ref, nil
			}
			return "", err
		}
	}
}

func GenerateWithdrawalRef(tx *gorm.DB) (string, error) {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		ref := fmt.Sprintf("WDR-%d-%s", time.Now().Unix(), randomSuffix(seededRand))

		var withdrawal models.Withdrawal
		err := tx.Where("invoice_ref = ?", ref).First(&withdrawal).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return ref, nil
			}
			return "", err
		}
	}
}

// IdempotencyKey derives a stable key for a checkout attempt when the
// caller did not supply one: same buyer, same cart, same time bucket
// all hash to the same key.
func IdempotencyKey(buyerID, ticketTypeID string, quantity int, at time.Time) string {
	bucket := at.Truncate(idempotencyBucket).Unix()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d", buyerID, ticketTypeID, quantity, bucket)))
	return hex.EncodeToString(sum[:])
}
