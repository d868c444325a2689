package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tableside-go/models"
)

// CreateVenueRequest defines the request body (JSON) for creating a new venue
type CreateVenueRequest struct {
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address" binding:"required"`
	Description string `json:"description" binding:"required"`
	CuisineType string `json:"cuisine_type" binding:"required"`
}

type UpdateVenueRequest struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	LatLong     string `json:"lat_long"`
	Description string `json:"description"`
	CuisineType string `json:"cuisine_type"`
}

// CheckVenueOwnership loads a venue and verifies the authenticated staff
// account owns it. On failure the error response has already been written.
func CheckVenueOwnership(c *gin.Context, venueIdString string) (*models.Venue, bool) {
	userClaims, ok := currentClaims(c)
	if !ok {
		return nil, false
	}

	var venue models.Venue
	if err := DB.First(&venue, venueIdString).Error; err != nil {

		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Venue not found"})
			return nil, false
		}

		slog.Error("failed to load venue", "venue_id", venueIdString, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Venue not found"})
		return nil, false
	}

	if venue.MerchantID != userClaims.UserID {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You don't own this venue"})
		return nil, false
	}

	return &venue, true
}

func CreateVenueHandler(c *gin.Context) {
	var request CreateVenueRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userClaims, ok := currentClaims(c)
	if !ok {
		return
	}

	venue := models.Venue{
		Name:        request.Name,
		Address:     request.Address,
		Description: request.Description,
		CuisineType: request.CuisineType,
		MerchantID:  userClaims.UserID,
	}

	if err := DB.Create(&venue).Error; err != nil {
		slog.Error("failed to create venue", "name", venue.Name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create venue: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"venue": venue})
}

func GetMerchantVenuesHandler(c *gin.Context) {
	userClaims, ok := currentClaims(c)
	if !ok {
		return
	}

	var venues []models.Venue
	if err := DB.Where("merchant_id = ?", userClaims.UserID).Find(&venues).Error; err != nil {
		slog.Error("failed to get venues", "merchant_id", userClaims.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get venues: " + err.Error()})
		return
	}

	if venues == nil {
		venues = []models.Venue{}
	}

	c.JSON(http.StatusOK, gin.H{"venues": venues})
}

func GetVenueHandler(c *gin.Context) {
	venueId := c.Param("venue_id")

	var venue models.Venue
	if err := DB.Where("id = ?", venueId).First(&venue).Error; err != nil {

		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Venue not found"})
			return
		}

		slog.Error("failed to get venue", "venue_id", venueId, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get venue: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"venue": venue})
}

func UpdateVenueHandler(c *gin.Context) {
	venueId := c.Param("venue_id")

	var request UpdateVenueRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "JSON error: " + err.Error()})
		return
	}

	venue, owned := CheckVenueOwnership(c, venueId)
	if !owned {
		return
	}

	updateData := models.Venue{
		Name:        request.Name,
		Address:     request.Address,
		LatLong:     request.LatLong,
		Description: request.Description,
		CuisineType: request.CuisineType,
	}

	if err := DB.Model(venue).Updates(updateData).Error; err != nil {
		slog.Error("failed to update venue", "venue_id", venueId, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update venue: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"venue": venue})
}

func DeleteVenueHandler(c *gin.Context) {
	venueId := c.Param("venue_id")

	venue, owned := CheckVenueOwnership(c, venueId)
	if !owned {
		return
	}

	if err := DB.Delete(venue).Error; err != nil {
		slog.Error("failed to delete venue", "venue_id", venueId, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete venue: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Venue deleted successfully"})
}

func ListVenuesHandler(c *gin.Context) {
	var venues []models.Venue
	query := DB.Model(&models.Venue{})

	// Simple search by name, case-insensitive partial match
	if nameQuery := c.Query("name"); nameQuery != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+nameQuery+"%")
	}

	if cuisineQuery := c.Query("cuisine"); cuisineQuery != "" {
		query = query.Where("LOWER(cuisine_type) LIKE LOWER(?)", "%"+cuisineQuery+"%")
	}

	if err := query.Find(&venues).Error; err != nil {
		slog.Error("failed to list venues", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list venues: " + err.Error()})
		return
	}

	if venues == nil {
		venues = []models.Venue{}
	}

	c.JSON(http.StatusOK, gin.H{"venues": venues})
}
