package models

import (
	"time"

	"gorm.io/gorm"
)

// TableToken binds a diner session to one physical table. The secret is
// printed into the table's QR code URL and checked on every order-affecting
// request. Rotation is delete-and-recreate: issuing a new token for the same
// table deactivates the old one, it is never edited in place.
type TableToken struct {
	gorm.Model
	VenueID    uint       `json:"venue_id" gorm:"not null;index"`
	Venue      Venue      `json:"-"`
	TableLabel string     `json:"table_label" gorm:"not null;index"`
	Secret     string     `json:"secret" gorm:"not null"`
	IsActive   bool       `json:"is_active" gorm:"not null;index"`
	IssuedAt   time.Time  `json:"issued_at" gorm:"not null"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}
