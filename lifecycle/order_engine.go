// Package lifecycle owns the order and waiter-call state machines. Orders
// move strictly forward (placed -> preparing -> ready -> delivered), waiter
// calls resolve from pending into one of two terminal outcomes. All
// mutations that race with each other are arbitrated by conditional
// updates, not read-then-write.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"tableside-go/events"
	"tableside-go/models"
	"tableside-go/tokens"
)

// Principal is the authenticated staff identity supplied by the auth
// middleware. Venue scope is checked against venue ownership, the scoping
// claim itself is trusted as-is.
type Principal struct {
	UserID uint
}

// DeliveryPublisher receives the OrderDelivered event from the single
// winning transition into the terminal state.
type DeliveryPublisher interface {
	OrderDelivered(ctx context.Context, ev events.OrderDelivered)
}

type OrderEngine struct {
	db       *gorm.DB
	tokens   *tokens.Authority
	events   DeliveryPublisher
	prepTime time.Duration
	log      *slog.Logger
}

func NewOrderEngine(db *gorm.DB, auth *tokens.Authority, pub DeliveryPublisher, prepTime time.Duration, log *slog.Logger) *OrderEngine {
	return &OrderEngine{
		db:       db,
		tokens:   auth,
		events:   pub,
		prepTime: prepTime,
		log:      log,
	}
}

type LineItemInput struct {
	MenuItemID uint
	VariantID  *uint
	AddonIDs   []uint
	Quantity   int64
	Notes      string
}

type CreateOrderInput struct {
	VenueID     uint
	TableLabel  string
	TableSecret string
	Items       []LineItemInput
	Notes       string
}

// Create is the only way an order comes into existence: token validation is
// part of the constructor, so no code path can place an order without
// proving the table binding. The total is computed here from current
// catalog prices; client-submitted totals are never trusted.
func (e *OrderEngine) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrMalformedRequest)
	}
	for _, line := range in.Items {
		if line.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", ErrMalformedRequest)
		}
	}

	token, ok, err := e.tokens.Validate(ctx, in.VenueID, in.TableLabel, in.TableSecret)
	if err != nil {
		// Ambiguous token state rejects the order; validation never fails open.
		return nil, fmt.Errorf("%w: validate table token: %v", ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, ErrInvalidTableToken
	}

	var venue models.Venue
	if err := e.db.WithContext(ctx).First(&venue, in.VenueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: venue %d", ErrNotFound, in.VenueID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	itemIDs := make([]uint, 0, len(in.Items))
	for _, line := range in.Items {
		itemIDs = append(itemIDs, line.MenuItemID)
	}

	var menuItems []models.MenuItem
	if err := e.db.WithContext(ctx).
		Where("id IN ? AND venue_id = ?", itemIDs, venue.ID).
		Find(&menuItems).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	menuItemMap := make(map[uint]models.MenuItem, len(menuItems))
	for _, item := range menuItems {
		menuItemMap[item.ID] = item
	}

	var orderItems []models.OrderItem
	var totalInCents int64
	for _, line := range in.Items {
		menuItem, exists := menuItemMap[line.MenuItemID]
		if !exists {
			return nil, fmt.Errorf("%w: item %d not on this venue's menu", ErrItemUnavailable, line.MenuItemID)
		}
		if !menuItem.IsAvailable {
			return nil, fmt.Errorf("%w: %s", ErrItemUnavailable, menuItem.Name)
		}

		orderItems = append(orderItems, models.OrderItem{
			MenuItemID:          menuItem.ID,
			VariantID:           line.VariantID,
			AddonIDs:            line.AddonIDs,
			Quantity:            line.Quantity,
			Notes:               line.Notes,
			PriceInCentsAtOrder: menuItem.PriceInCents,
		})
		totalInCents += menuItem.PriceInCents * line.Quantity
	}

	order := &models.Order{
		VenueID:      venue.ID,
		TableLabel:   token.TableLabel,
		TableTokenID: token.ID,
		Status:       models.OrderStatusPlaced,
		Notes:        in.Notes,
		TotalInCents: totalInCents,
		OrderItems:   orderItems,
	}

	if err := e.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.tokens.Touch(ctx, token); err != nil {
		e.log.Warn("failed to touch table token", "token_id", token.ID, "error", err)
	}

	return order, nil
}

// Get loads an order with its line items. Used by the customer tracker
// poll, so it stays cheap.
func (e *OrderEngine) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := e.db.WithContext(ctx).
		Preload("OrderItems").
		First(&order, orderID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &order, nil
}

// ListForVenue returns a venue's orders, newest first, optionally filtered
// by status. The dashboard feed.
func (e *OrderEngine) ListForVenue(ctx context.Context, venueID uint, status models.OrderStatus) ([]models.Order, error) {
	query := e.db.WithContext(ctx).Where("venue_id = ?", venueID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Preload("OrderItems.MenuItem").Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// Advance moves an order to the immediate successor of its current status.
// Re-requesting the current status is an idempotent no-op; anything else
// out of sequence is rejected. The status write is conditional on the
// status the caller observed, so two concurrent advances cannot both win,
// and only the winner of the transition into delivered publishes the
// OrderDelivered event.
func (e *OrderEngine) Advance(ctx context.Context, orderID uint, target models.OrderStatus, p Principal) (*models.Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrMalformedRequest, target)
	}

	var order models.Order
	if err := e.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.checkVenueScope(ctx, order.VenueID, p); err != nil {
		return nil, err
	}

	// Replay of the current status is a no-op, not an error: pollers and
	// retrying staff clients re-send the same action.
	if order.Status == target {
		return e.Get(ctx, orderID)
	}

	next, hasNext := order.Status.Next()
	if !hasNext || target != next {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}

	res := e.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, order.Status).
		Update("status", target)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}

	if res.RowsAffected == 0 {
		// Lost the race. If the concurrent writer applied the same
		// transition, this call degrades to a replay no-op.
		current, err := e.Get(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if current.Status == target {
			return current, nil
		}
		return nil, fmt.Errorf("%w: order moved to %s concurrently", ErrInvalidTransition, current.Status)
	}

	if target == models.OrderStatusDelivered {
		e.events.OrderDelivered(ctx, events.OrderDelivered{
			OrderID:     order.ID,
			VenueID:     order.VenueID,
			TableLabel:  order.TableLabel,
			DeliveredAt: time.Now(),
		})
	}

	return e.Get(ctx, orderID)
}

// EstimateRemaining is UI sugar for the customer progress bar: configured
// prep time minus elapsed, clamped at zero. Never authoritative, never
// fails.
func (e *OrderEngine) EstimateRemaining(order *models.Order) time.Duration {
	if order.Status == models.OrderStatusDelivered {
		return 0
	}
	remaining := e.prepTime - time.Since(order.CreatedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (e *OrderEngine) checkVenueScope(ctx context.Context, venueID uint, p Principal) error {
	var venue models.Venue
	if err := e.db.WithContext(ctx).First(&venue, venueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return fmt.Errorf("%w: venue %d", ErrNotFound, venueID)
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if venue.MerchantID != p.UserID {
		return ErrUnauthorized
	}
	return nil
}
