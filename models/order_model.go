package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	OrderPending          = "PENDING"
	OrderDeliveryPending  = "DELIVERY_PENDING"
	OrderDeliveryComplete = "DELIVERY_COMPLETE"
	OrderCompleted        = "COMPLETED"
	OrderDebtPending      = "DEBT_PENDING"
	OrderCancelled        = "CANCELLED"
)

type Order struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BuyerID       uuid.UUID  `gorm:"not null;index" json:"buyer_id"`
	SellerID      uuid.UUID  `gorm:"not null;index" json:"seller_id"`
	EventID       uuid.UUID  `gorm:"not null" json:"event_id"`
	TicketTypeID  uuid.UUID  `gorm:"not null" json:"ticket_type_id"`
	Quantity      int        `gorm:"not null" json:"quantity"`
	Amount        float64    `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency      string     `gorm:"size:3;not null" json:"currency"`
	PlatformFee   float64    `gorm:"type:numeric(10,2);not null" json:"platform_fee"`
	SellerAmount  float64    `gorm:"type:numeric(10,2);not null" json:"seller_amount"`
	Status        string     `gorm:"size:20;not null;default:'PENDING'" json:"status"`
	PaymentStatus string     `gorm:"size:20;not null;default:'pending'" json:"payment_status"`
	TicketURL     *string    `gorm:"size:512" json:"ticket_url"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Buyer      User       `gorm:"foreignkey:BuyerID"`
	Seller     Seller     `gorm:"foreignkey:SellerID"`
	TicketType TicketType `gorm:"foreignkey:TicketTypeID"`
}

// OrderAudit records every status/payment_status change so the two
// columns never diverge without an explanation on record.
type OrderAudit struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrderID       uuid.UUID `gorm:"not null;index" json:"order_id"`
	FromStatus    string    `gorm:"size:20;not null" json:"from_status"`
	ToStatus      string    `gorm:"size:20;not null" json:"to_status"`
	PaymentStatus string    `gorm:"size:20;not null" json:"payment_status"`
	Reason        string    `gorm:"type:text" json:"reason"`
	CreatedAt     time.Time `json:"created_at"`
}
