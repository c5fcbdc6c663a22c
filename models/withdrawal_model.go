package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	WithdrawalProcessing = "processing"
	WithdrawalCompleted  = "completed"
	WithdrawalFailed     = "failed"
)

type Withdrawal struct {
	ID              uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SellerID        uuid.UUID  `gorm:"not null;index" json:"seller_id"`
	InvoiceRef      string     `gorm:"size:64;uniqueIndex;not null" json:"invoice_ref"`
	Amount          float64    `gorm:"type:numeric(10,2);not null" json:"amount"`
	DestinationName string     `gorm:"size:255" json:"destination_name"`
	DestinationNo   string     `gorm:"size:20;not null" json:"destination_no"`
	Status          string     `gorm:"size:20;not null;default:'processing'" json:"status"`
	ProviderRef     *string    `gorm:"size:128;uniqueIndex" json:"provider_ref"`
	FailureReason   *string    `gorm:"type:text" json:"failure_reason"`
	Reversed        bool       `gorm:"not null;default:false" json:"-"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Seller Seller `gorm:"foreignkey:SellerID"`
}

func (w *Withdrawal) IsTerminal() bool {
	return w.Status == WithdrawalCompleted || w.Status == WithdrawalFailed
}
