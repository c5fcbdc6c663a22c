package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReconcileProviderConfirmed = "provider_confirmed"
	ReconcilePolicyTimeout     = "policy_timeout"
)

// ReconciliationLog is the audit trail of the sweep jobs: one row per
// remedy action, with the reason separating "the provider told us" from
// "we gave up waiting".
type ReconciliationLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Kind       string    `gorm:"size:20;not null" json:"kind"`
	InvoiceRef string    `gorm:"size:64;not null;index" json:"invoice_ref"`
	Action     string    `gorm:"size:20;not null" json:"action"`
	Reason     string    `gorm:"size:32;not null" json:"reason"`
	Error      *string   `gorm:"type:text" json:"error"`
	CreatedAt  time.Time `json:"created_at"`
}
