package models

import (
	"gorm.io/gorm"
)

type ServiceRequestStatus string

const (
	ServiceRequestPending   ServiceRequestStatus = "pending"
	ServiceRequestCompleted ServiceRequestStatus = "completed"
	ServiceRequestCancelled ServiceRequestStatus = "cancelled"
)

// Terminal reports whether no further resolution is allowed.
func (s ServiceRequestStatus) Terminal() bool {
	return s == ServiceRequestCompleted || s == ServiceRequestCancelled
}

// ServiceRequest is a waiter call raised from a table. Unlike orders, a call
// placed without a valid table secret is still recorded, just flagged as
// unverified so staff can judge it accordingly.
type ServiceRequest struct {
	gorm.Model
	VenueID       uint                 `json:"venue_id" gorm:"not null;index"`
	Venue         Venue                `json:"-"`
	TableLabel    string               `json:"table_label" gorm:"not null"`
	Message       string               `json:"message"`
	Status        ServiceRequestStatus `json:"status" gorm:"not null;index"`
	TokenVerified bool                 `json:"token_verified" gorm:"not null"`
}
