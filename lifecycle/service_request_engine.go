package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"tableside-go/models"
	"tableside-go/tokens"
)

// ServiceRequestEngine handles waiter calls. Same lifecycle shape as orders
// but simpler: pending resolves into completed or cancelled, both terminal.
// A false waiter call has low abuse value, so creation tolerates a missing
// or stale table secret and just records the request as unverified.
type ServiceRequestEngine struct {
	db     *gorm.DB
	tokens *tokens.Authority
	log    *slog.Logger
}

func NewServiceRequestEngine(db *gorm.DB, auth *tokens.Authority, log *slog.Logger) *ServiceRequestEngine {
	return &ServiceRequestEngine{db: db, tokens: auth, log: log}
}

type CreateCallInput struct {
	VenueID     uint
	TableLabel  string
	TableSecret string
	Message     string
}

func (e *ServiceRequestEngine) Create(ctx context.Context, in CreateCallInput) (*models.ServiceRequest, error) {
	if in.TableLabel == "" {
		return nil, fmt.Errorf("%w: table label is required", ErrMalformedRequest)
	}

	var venue models.Venue
	if err := e.db.WithContext(ctx).First(&venue, in.VenueID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: venue %d", ErrNotFound, in.VenueID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	verified := false
	if in.TableSecret != "" {
		token, ok, err := e.tokens.Validate(ctx, in.VenueID, in.TableLabel, in.TableSecret)
		if err != nil {
			return nil, fmt.Errorf("%w: validate table token: %v", ErrStoreUnavailable, err)
		}
		verified = ok
		if ok {
			if err := e.tokens.Touch(ctx, token); err != nil {
				e.log.Warn("failed to touch table token", "token_id", token.ID, "error", err)
			}
		}
	}

	call := &models.ServiceRequest{
		VenueID:       venue.ID,
		TableLabel:    in.TableLabel,
		Message:       in.Message,
		Status:        models.ServiceRequestPending,
		TokenVerified: verified,
	}
	if err := e.db.WithContext(ctx).Create(call).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return call, nil
}

// ListForVenue returns a venue's waiter calls, newest first, optionally
// filtered by status. Polled every few seconds by the dashboard, so no
// preloading beyond the row itself.
func (e *ServiceRequestEngine) ListForVenue(ctx context.Context, venueID uint, status models.ServiceRequestStatus) ([]models.ServiceRequest, error) {
	query := e.db.WithContext(ctx).Where("venue_id = ?", venueID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var calls []models.ServiceRequest
	if err := query.Order("created_at DESC").Find(&calls).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if calls == nil {
		calls = []models.ServiceRequest{}
	}
	return calls, nil
}

// Resolve moves a pending call to completed or cancelled. Replaying the
// outcome a call already has is a no-op; resolving an already-terminal call
// to a different outcome is rejected. The write is conditional on pending
// so two concurrent resolutions cannot both win.
func (e *ServiceRequestEngine) Resolve(ctx context.Context, callID uint, outcome models.ServiceRequestStatus, p Principal) (*models.ServiceRequest, error) {
	if !outcome.Terminal() {
		return nil, fmt.Errorf("%w: outcome must be %s or %s", ErrMalformedRequest,
			models.ServiceRequestCompleted, models.ServiceRequestCancelled)
	}

	var call models.ServiceRequest
	if err := e.db.WithContext(ctx).First(&call, callID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: service request %d", ErrNotFound, callID)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := e.checkVenueScope(ctx, call.VenueID, p); err != nil {
		return nil, err
	}

	if call.Status == outcome {
		return &call, nil
	}
	if call.Status.Terminal() {
		return nil, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, call.Status)
	}

	res := e.db.WithContext(ctx).Model(&models.ServiceRequest{}).
		Where("id = ? AND status = ?", callID, models.ServiceRequestPending).
		Update("status", outcome)
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}

	if res.RowsAffected == 0 {
		var current models.ServiceRequest
		if err := e.db.WithContext(ctx).First(&current, callID).Error; err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if current.Status == outcome {
			return &current, nil
		}
		return nil, fmt.Errorf("%w: call resolved to %s concurrently", ErrInvalidTransition, current.Status)
	}

	call.Status = outcome
	return &call, nil
}

func (e *ServiceRequestEngine) checkVenueScope(ctx context.Context, venueID uint, p Principal) error {
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
