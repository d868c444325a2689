package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetRecommendationsHandler serves the "frequently ordered together" strip
// on the menu UI for one item.
func GetRecommendationsHandler(c *gin.Context) {
	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		return
	}

	limit := 5
	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	recs, err := Recommender.Recommend(c.Request.Context(), itemID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load recommendations: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}
