package models

import "time"

// ItemAssociation is one directed "ordered together" edge between two menu
// items. Edges are maintained symmetrically (A->B and B->A incremented in
// the same transaction) so a lookup by either endpoint needs no reversal.
// Frequency only ever grows; edges are never deleted.
type ItemAssociation struct {
	ItemID           uint      `json:"item_id" gorm:"primaryKey;autoIncrement:false"`
	AssociatedItemID uint      `json:"associated_item_id" gorm:"primaryKey;autoIncrement:false"`
	VenueID          uint      `json:"venue_id" gorm:"not null;index"`
	Frequency        int64     `json:"frequency" gorm:"not null"`
	LastUpdatedAt    time.Time `json:"last_updated_at" gorm:"not null"`
}
