package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
)

type Payment struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrderID        uuid.UUID      `gorm:"not null;index" json:"order_id"`
	InvoiceRef     string         `gorm:"size:64;uniqueIndex;not null" json:"invoice_ref"`
	IdempotencyKey *string        `gorm:"size:128;uniqueIndex" json:"-"`
	Amount         float64        `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency       string         `gorm:"size:3;not null" json:"currency"`
	Status         string         `gorm:"size:20;not null;default:'pending'" json:"status"`
	Method         string         `gorm:"size:20;not null" json:"method"`
	PayerPhone     *string        `gorm:"size:20" json:"payer_phone"`
	PayerEmail     *string        `gorm:"size:255" json:"payer_email"`
	ProviderRef    *string        `gorm:"size:128;uniqueIndex" json:"provider_ref"`
	FailureReason  *string        `gorm:"type:text" json:"failure_reason"`
	Metadata       json.RawMessage `gorm:"type:jsonb" json:"metadata"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Order Order `gorm:"foreignkey:OrderID"`
}

func (p *Payment) IsTerminal() bool {
	return IsTerminalStatus(p.Status)
}

func IsTerminalStatus(status string) bool {
	switch status {
	case PaymentCompleted, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a payment may move from its current
// status to the requested one. The only legal moves are pending to a
// terminal status; terminal states are frozen.
func CanTransition(from, to string) bool {
	return from == PaymentPending && IsTerminalStatus(to)
}
