package handlers

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tableside-go/models"
)

type IssueTableTokenRequest struct {
	TableLabel string `json:"table_label" binding:"required"`
}

// qrURL builds the printable URL embedded in the table's QR code. Both
// query parameters must travel together; a URL carrying only one of the
// two is as invalid as no token at all.
func qrURL(token *models.TableToken) string {
	return fmt.Sprintf("/public/venues/%d/menu?table=%s&secret=%s",
		token.VenueID, url.QueryEscape(token.TableLabel), url.QueryEscape(token.Secret))
}

// IssueTableTokenHandler creates a fresh token for a table. Any previously
// active token for that table stops validating immediately.
func IssueTableTokenHandler(c *gin.Context) {
	venueIDStr := c.Param("venue_id")
	venue, owned := CheckVenueOwnership(c, venueIDStr)
	if !owned {
		return
	}

	var req IssueTableTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := Tokens.Issue(c.Request.Context(), venue.ID, req.TableLabel)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue table token: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"token": token, "qr_url": qrURL(token)})
}

func ListTableTokensHandler(c *gin.Context) {
	venueIDStr := c.Param("venue_id")
	venue, owned := CheckVenueOwnership(c, venueIDStr)
	if !owned {
		return
	}

	tokens, err := Tokens.ListForVenue(c.Request.Context(), venue.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list table tokens: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

func DeactivateTableTokenHandler(c *gin.Context) {
	venueIDStr := c.Param("venue_id")
	venue, owned := CheckVenueOwnership(c, venueIDStr)
	if !owned {
		return
	}

	tokenID, ok := parseIDParam(c, "token_id")
	if !ok {
		return
	}

	if err := Tokens.Deactivate(c.Request.Context(), venue.ID, tokenID); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Active token not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate table token: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Table token deactivated"})
}
