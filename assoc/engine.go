// Package assoc maintains the "frequently ordered together" index. It
// learns pairwise co-occurrence from delivered orders only, so abandoned
// baskets never pollute the recommendations.
package assoc

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tableside-go/events"
	"tableside-go/models"
)

type Engine struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewEngine(db *gorm.DB, log *slog.Logger) *Engine {
	return &Engine{db: db, log: log}
}

// HandleOrderDelivered is the events.Subscriber hook. The lifecycle engine
// guarantees at most one event per order, so no dedup happens here.
func (e *Engine) HandleOrderDelivered(ctx context.Context, ev events.OrderDelivered) error {
	return e.Learn(ctx, ev.OrderID)
}

// Learn increments both directed edges for every unordered pair of distinct
// items in a delivered order. Each increment is a single atomic upsert
// (insert-or-increment), never a read-modify-write, so concurrent
// completions touching the same hot pair both land. O(n^2) in distinct
// items per order, which stays tiny in practice.
func (e *Engine) Learn(ctx context.Context, orderID uint) error {
	var order models.Order
	err := e.db.WithContext(ctx).Preload("OrderItems").First(&order, orderID).Error
	if err != nil {
		return fmt.Errorf("load order %d: %w", orderID, err)
	}

	if order.Status != models.OrderStatusDelivered {
		e.log.Warn("skipping association learning for undelivered order",
			"order_id", orderID, "status", order.Status)
		return nil
	}

	itemIDs := distinctItemIDs(order.OrderItems)
	if len(itemIDs) < 2 {
		return nil
	}

	now := time.Now()
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < len(itemIDs); i++ {
			for j := i + 1; j < len(itemIDs); j++ {
				if err := upsertEdge(tx, order.VenueID, itemIDs[i], itemIDs[j], now); err != nil {
					return err
				}
				if err := upsertEdge(tx, order.VenueID, itemIDs[j], itemIDs[i], now); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Recommendation is one ranked "ordered together" suggestion.
type Recommendation struct {
	Item      models.MenuItem `json:"item"`
	Frequency int64           `json:"frequency"`
}

// Recommend returns up to limit items most often ordered together with
// itemID, ranked by frequency, most recently reinforced first on ties.
// Discontinued and out-of-stock items never surface, however strong their
// historical edge.
func (e *Engine) Recommend(ctx context.Context, itemID uint, limit int) ([]Recommendation, error) {
	if limit <= 0 {
		limit = 5
	}

	var edges []models.ItemAssociation
	err := e.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("frequency DESC").
		Order("last_updated_at DESC").
		Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("load associations for item %d: %w", itemID, err)
	}
	if len(edges) == 0 {
		return []Recommendation{}, nil
	}

	associatedIDs := make([]uint, 0, len(edges))
	for _, edge := range edges {
		associatedIDs = append(associatedIDs, edge.AssociatedItemID)
	}

	var items []models.MenuItem
	err = e.db.WithContext(ctx).
		Where("id IN ? AND is_available = ?", associatedIDs, true).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("load recommended items: %w", err)
	}

	available := make(map[uint]models.MenuItem, len(items))
	for _, item := range items {
		available[item.ID] = item
	}

	recs := make([]Recommendation, 0, limit)
	for _, edge := range edges {
		item, ok := available[edge.AssociatedItemID]
		if !ok {
			continue
		}
		recs = append(recs, Recommendation{Item: item, Frequency: edge.Frequency})
		if len(recs) == limit {
			break
		}
	}
	return recs, nil
}

func upsertEdge(tx *gorm.DB, venueID, itemID, associatedID uint, now time.Time) error {
	edge := models.ItemAssociation{
		ItemID:           itemID,
		AssociatedItemID: associatedID,
		VenueID:          venueID,
		Frequency:        1,
		LastUpdatedAt:    now,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "item_id"}, {Name: "associated_item_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"frequency":       gorm.Expr("frequency + 1"),
			"last_updated_at": now,
		}),
	}).Create(&edge).Error
}

func distinctItemIDs(items []models.OrderItem) []uint {
	seen := make(map[uint]struct{}, len(items))
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if _, dup := seen[item.MenuItemID]; dup {
			continue
		}
		seen[item.MenuItemID] = struct{}{}
		ids = append(ids, item.MenuItemID)
	}
	// Deterministic pair order keeps transaction lock order stable across
	// concurrent completions.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
