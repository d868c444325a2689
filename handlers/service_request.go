package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tableside-go/lifecycle"
	"tableside-go/models"
)

// CreateCallRequest raises a waiter call from a table. The secret is
// optional: a call without one is still recorded, just unverified.
type CreateCallRequest struct {
	VenueID     uint   `json:"venue_id" binding:"required"`
	TableLabel  string `json:"table_label" binding:"required"`
	TableSecret string `json:"table_secret"`
	Message     string `json:"message"`
}

type ResolveCallRequest struct {
	Outcome models.ServiceRequestStatus `json:"outcome" binding:"required"`
}

func CreateCallHandler(c *gin.Context) {
	var req CreateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	call, err := Calls.Create(c.Request.Context(), lifecycle.CreateCallInput{
		VenueID:     req.VenueID,
		TableLabel:  req.TableLabel,
		TableSecret: req.TableSecret,
		Message:     req.Message,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, call)
}

// GetMerchantCallsHandler is the dashboard's fast poll target. With
// ?status=pending the response count doubles as the alert edge-detection
// input on the client.
func GetMerchantCallsHandler(c *gin.Context) {
	venueIDStr := c.Param("venue_id")
	venue, owned := CheckVenueOwnership(c, venueIDStr)
	if !owned {
		return
	}

	calls, err := Calls.ListForVenue(c.Request.Context(), venue.ID, models.ServiceRequestStatus(c.Query("status")))
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": calls, "count": len(calls), "poll_seconds": PollHints.DashboardCallsSeconds})
}

func ResolveCallHandler(c *gin.Context) {
	callID, ok := parseIDParam(c, "call_id")
	if !ok {
		return
	}

	var req ResolveCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userClaims, ok := currentClaims(c)
	if !ok {
		return
	}

	call, err := Calls.Resolve(c.Request.Context(), callID, req.Outcome,
		lifecycle.Principal{UserID: userClaims.UserID})
	if err != nil {
		respondDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, call)
}
