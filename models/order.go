package models

import (
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "placed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
)

// Next returns the only status an order may advance to from s.
// The second return is false when s is terminal or unknown.
func (s OrderStatus) Next() (OrderStatus, bool) {
	switch s {
	case OrderStatusPlaced:
		return OrderStatusPreparing, true
	case OrderStatusPreparing:
		return OrderStatusReady, true
	case OrderStatusReady:
		return OrderStatusDelivered, true
	default:
		return "", false
	}
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPlaced, OrderStatusPreparing, OrderStatusReady, OrderStatusDelivered:
		return true
	}
	return false
}

type Order struct {
	gorm.Model
	VenueID      uint        `json:"venue_id" gorm:"not null;index"`
	Venue        Venue       `json:"venue,omitempty" gorm:"foreignKey:VenueID"`
	TableLabel   string      `json:"table_label" gorm:"not null"`
	TableTokenID uint        `json:"table_token_id" gorm:"not null"`
	Status       OrderStatus `json:"status" gorm:"not null;index"`
	Notes        string      `json:"notes"`
	TotalInCents int64       `json:"total_in_cents" gorm:"not null"`
	OrderItems   []OrderItem `json:"order_items" gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	gorm.Model
	OrderID             uint     `json:"order_id" gorm:"not null;index"`
	MenuItemID          uint     `json:"menu_item_id" gorm:"not null"`
	MenuItem            MenuItem `json:"menu_item" gorm:"foreignKey:MenuItemID"`
	VariantID           *uint    `json:"variant_id,omitempty"`
	AddonIDs            []uint   `json:"addon_ids" gorm:"serializer:json"`
	Quantity            int64    `json:"quantity" gorm:"not null"`
	Notes               string   `json:"notes"`
	PriceInCentsAtOrder int64    `json:"price_in_cents_at_order" gorm:"not null"`
}
