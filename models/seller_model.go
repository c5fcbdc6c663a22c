package models

import (
	"time"

	"github.com/google/uuid"
)

type Seller struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID         uuid.UUID `gorm:"not null;unique" json:"user_id"`
	BusinessName   string    `gorm:"size:255;not null" json:"business_name"`
	PayoutPhone    *string   `gorm:"size:20" json:"payout_phone"`
	CurrentBalance float64   `gorm:"type:numeric(10,2);default:0.00" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	User User `gorm:"foreignkey:UserID"`
}
