package models

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SellerID  uuid.UUID `gorm:"not null" json:"seller_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Venue     string    `gorm:"size:255" json:"venue"`
	StartsAt  time.Time `gorm:"not null" json:"starts_at"`
	Status    string    `gorm:"size:20;not null;default:'published'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Seller Seller `gorm:"foreignkey:SellerID"`
}

type TicketType struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	EventID   uuid.UUID `gorm:"not null" json:"event_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Price     float64   `gorm:"type:numeric(10,2);not null" json:"price"`
	Currency  string    `gorm:"size:3;not null;default:'KES'" json:"currency"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Sold      int       `gorm:"not null;default:0" json:"sold"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Event Event `gorm:"foreignkey:EventID"`
}
