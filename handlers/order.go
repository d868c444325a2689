package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tableside-go/lifecycle"
	"tableside-go/models"
	"tableside-go/poller"
)

// OrderItemRequest is part of PlaceOrderRequest
type OrderItemRequest struct {
	MenuItemID uint   `json:"menu_item_id" binding:"required"`
	VariantID  *uint  `json:"variant_id"`
	AddonIDs   []uint `json:"addon_ids"`
	Quantity   int64  `json:"quantity" binding:"required,gt=0"`
	Notes      string `json:"notes"`
}

// PlaceOrderRequest defines the request body (JSON) for a diner placing an
// order. The table label and secret are the two QR code parameters; both
// must be present and match together.
type PlaceOrderRequest struct {
	VenueID     uint               `json:"venue_id" binding:"required"`
	TableLabel  string             `json:"table_label" binding:"required"`
	TableSecret string             `json:"table_secret" binding:"required"`
	Items       []OrderItemRequest `json:"items" binding:"required,min=1"`
	Notes       string             `json:"notes"`
}

// UpdateOrderStatusRequest defines the request body for staff advancing an order
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// PlaceOrderHandler handles a diner placing a new order from a table session
func PlaceOrderHandler(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]lifecycle.LineItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, lifecycle.LineItemInput{
			MenuItemID: item.MenuItemID,
			VariantID:  item.VariantID,
			AddonIDs:   item.AddonIDs,
			Quantity:   item.Quantity,
			Notes:      item.Notes,
		})
	}

	order, err := Orders.Create(c.Request.Context(), lifecycle.CreateOrderInput{
		VenueID:     req.VenueID,
		TableLabel:  req.TableLabel,
		TableSecret: req.TableSecret,
		Items:       items,
		Notes:       req.Notes,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// TrackOrderHandler is the customer tracker's poll target: current order
// state plus the non-authoritative remaining-time estimate for the
// progress bar.
func TrackOrderHandler(c *gin.Context) {
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}

	order, err := Orders.Get(c.Request.Context(), orderID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"snapshot": poller.OrderSnapshot{
			Status:             order.Status,
			EstimatedRemaining: Orders.EstimateRemaining(order),
		},
		"poll_seconds": PollHints.OrderTrackerSeconds,
	})
}

func GetMerchantOrdersHandler(c *gin.Context) {
	venueIDStr := c.Param("venue_id")
	venue, owned := CheckVenueOwnership(c, venueIDStr)
	if !owned {
		return
	}

	orders, err := Orders.ListForVenue(c.Request.Context(), venue.ID, models.OrderStatus(c.Query("status")))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "poll_seconds": PollHints.DashboardOrdersSeconds})
}

func UpdateOrderStatusHandler(c *gin.Context) {
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}

	var request UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userClaims, ok := currentClaims(c)
	if !ok {
		return
	}

	order, err := Orders.Advance(c.Request.Context(), orderID, request.Status,
		lifecycle.Principal{UserID: userClaims.UserID})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
