package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent keeps the raw body of every callback the provider sends
// us, processed or not, so disputes can be answered from our own records.
type WebhookEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Kind      string    `gorm:"size:20;not null;index" json:"kind"`
	Reference *string   `gorm:"size:128;index" json:"reference"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Processed bool      `gorm:"not null;default:false" json:"processed"`
	Note      *string   `gorm:"type:text" json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	WebhookKindPayment = "payment"
	WebhookKindPayout  = "payout"
)
