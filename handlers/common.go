package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tableside-go/assoc"
	"tableside-go/lifecycle"
	"tableside-go/tokens"
)

// Engines wired in by main at startup.
var (
	Tokens      *tokens.Authority
	Orders      *lifecycle.OrderEngine
	Calls       *lifecycle.ServiceRequestEngine
	Recommender *assoc.Engine
)

// PollHints are the server-suggested poll intervals echoed on the polled
// endpoints, so clients pick their cadence up from config instead of
// hardcoding it. Overridden from config by main.
var PollHints = struct {
	OrderTrackerSeconds    int
	DashboardOrdersSeconds int
	DashboardCallsSeconds  int
}{
	OrderTrackerSeconds:    10,
	DashboardOrdersSeconds: 30,
	DashboardCallsSeconds:  3,
}

// respondDomainError maps the lifecycle error taxonomy onto HTTP. Each kind
// gets a distinct status and a machine-readable kind so the UI can react
// differently: an invalid table token means "rescan the QR code", which is
// a different recovery from every other failure.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidTableToken):
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid table code. Please rescan the QR code at your table.",
			"kind":  "invalid_table_token",
		})
	case errors.Is(err, lifecycle.ErrItemUnavailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "One or more items are no longer available.",
			"kind":  "item_unavailable",
		})
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Requested status change is not allowed from the current status.",
			"kind":  "invalid_transition",
		})
	case errors.Is(err, lifecycle.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{
			"error": "You don't have access to this venue.",
			"kind":  "unauthorized",
		})
	case errors.Is(err, lifecycle.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Not found.",
			"kind":  "not_found",
		})
	case errors.Is(err, lifecycle.ErrMalformedRequest):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
			"kind":  "malformed_request",
		})
	case errors.Is(err, lifecycle.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Temporary problem, please retry.",
			"kind":  "transient",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
