package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tableside-go/models"
)

type CreateMenuItemRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description" binding:"required"`
	PriceInCents int64  `json:"price_in_cents" binding:"required,gt=0"`
	Category     string `json:"category" binding:"required"`
}

type UpdateMenuItemRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	PriceInCents *int64  `json:"price_in_cents" binding:"omitempty,gt=0"`
	Category     *string `json:"category"`
	IsAvailable  *bool   `json:"is_available"`
}

func CreateMenuItemHandler(c *gin.Context) {
	venueIdString := c.Param("venue_id")
	venue, owned := CheckVenueOwnership(c, venueIdString)
	if !owned {
		return // Error response already sent by CheckVenueOwnership
	}

	var request CreateMenuItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	menuItem := &models.MenuItem{
		Name:         request.Name,
		Description:  request.Description,
		PriceInCents: request.PriceInCents,
		Category:     request.Category,
		IsAvailable:  true,
		VenueId:      venue.ID,
	}

	if err := DB.Create(&menuItem).Error; err != nil {
		slog.Error("failed to create menu item", "venue_id", venue.ID, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, menuItem)
}

func GetMenuItemsForVenueHandler(c *gin.Context) {
	venueIdString := c.Param("venue_id")
	venue, owned := CheckVenueOwnership(c, venueIdString)
	if !owned {
		return
	}

	var menuItems []models.MenuItem
	if err := DB.Where("venue_id = ?", venue.ID).Find(&menuItems).Error; err != nil {
		slog.Error("failed to get menu items", "venue_id", venue.ID, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to get menu items: " + err.Error()})
		return
	}

	if menuItems == nil {
		menuItems = []models.MenuItem{}
	}

	c.JSON(http.StatusOK, menuItems)
}

// Path: merchant/venues/:venue_id/menuitems/:item_id
func UpdateMenuItemHandler(c *gin.Context) {
	venueIdString := c.Param("venue_id")
	itemIdString := c.Param("item_id")

	venue, owned := CheckVenueOwnership(c, venueIdString)
	if !owned {
		return
	}

	var request UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var menuItem models.MenuItem
	if err := DB.Where("id = ? AND venue_id = ?", itemIdString, venue.ID).First(&menuItem).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
			return
		}

		slog.Error("failed to load menu item", "item_id", itemIdString, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Menu item not found"})
		return
	}

	// Build map for updates to handle partial updates correctly with pointers
	updates := make(map[string]interface{})

	if request.Name != nil {
		updates["name"] = *request.Name
	}

	if request.Description != nil {
		updates["description"] = *request.Description
	}

	if request.PriceInCents != nil {
		updates["price_in_cents"] = *request.PriceInCents
	}

	if request.Category != nil {
		updates["category"] = *request.Category
	}

	if request.IsAvailable != nil {
		updates["is_available"] = *request.IsAvailable
	}

	if len(updates) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "No update fields provided"})
		return
	}

	if err := DB.Model(&menuItem).Updates(updates).Error; err != nil {
		slog.Error("failed to update menu item", "item_id", menuItem.ID, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, menuItem)
}

func DeleteMenuItemHandler(c *gin.Context) {
	venueIdString := c.Param("venue_id")
	itemIdString := c.Param("item_id")

	venue, owned := CheckVenueOwnership(c, venueIdString)
	if !owned {
		return
	}

	var menuItem models.MenuItem
	if err := DB.Where("id = ? AND venue_id = ?", itemIdString, venue.ID).First(&menuItem).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
			return
		}

		slog.Error("failed to load menu item", "item_id", itemIdString, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Menu item not found"})
		return
	}

	if err := DB.Delete(&menuItem).Error; err != nil {
		slog.Error("failed to delete menu item", "item_id", menuItem.ID, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete menu item: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Deleted menu item"})
}

// GetVenueMenuForDinersHandler serves the public menu a diner sees after
// scanning a table code. Only currently-available items are listed.
func GetVenueMenuForDinersHandler(c *gin.Context) {
	venueIdString := c.Param("venue_id")

	var venue models.Venue
	if err := DB.Where("id = ?", venueIdString).First(&venue).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Venue not found"})
			return
		}
		slog.Error("failed to load venue", "venue_id", venueIdString, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed retrieving Venue: " + err.Error()})
		return
	}

	var menuItems []models.MenuItem
	if err := DB.Where("venue_id = ? AND is_available = ?", venue.ID, true).Find(&menuItems).Error; err != nil {
		slog.Error("failed to get menu items", "venue_id", venue.ID, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to get menu items"})
		return
	}

	if menuItems == nil {
		menuItems = []models.MenuItem{}
	}

	c.JSON(http.StatusOK, menuItems)
}
