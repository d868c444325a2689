package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tableside-go/models"
	"tableside-go/tokens"
)

func newCallEngine(t *testing.T) (*ServiceRequestEngine, *tokens.Authority, models.Venue) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Venue{}, &models.TableToken{}, &models.ServiceRequest{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	venue := models.Venue{Name: "Testaurant", MerchantID: 1}
	if err := db.Create(&venue).Error; err != nil {
		t.Fatalf("seed venue: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	authority := tokens.NewAuthority(db)
	return NewServiceRequestEngine(db, authority, log), authority, venue
}

func TestCreateCallRecordsTableBinding(t *testing.T) {
	engine, authority, venue := newCallEngine(t)
	ctx := context.Background()

	token, err := authority.Issue(ctx, venue.ID, "12")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	call, err := engine.Create(ctx, CreateCallInput{
		VenueID:     venue.ID,
		TableLabel:  "12",
		TableSecret: token.Secret,
		Message:     "more napkins please",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if call.Status != models.ServiceRequestPending {
		t.Errorf("status = %s, want pending", call.Status)
	}
	if call.TableLabel != "12" {
		t.Errorf("table label = %s, want 12", call.TableLabel)
	}
	if !call.TokenVerified {
		t.Error("expected call with a valid secret to be marked verified")
	}
}

func TestCreateCallToleratesMissingOrStaleSecret(t *testing.T) {
	engine, authority, venue := newCallEngine(t)
	ctx := context.Background()

	// No secret at all: recorded, unverified.
	call, err := engine.Create(ctx, CreateCallInput{VenueID: venue.ID, TableLabel: "7"})
	if err != nil {
		t.Fatalf("create without secret: %v", err)
	}
	if call.TokenVerified {
		t.Error("call without a secret must not be verified")
	}

	// Stale secret after rotation: still recorded, unverified.
	old, err := authority.Issue(ctx, venue.ID, "12")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := authority.Issue(ctx, venue.ID, "12"); err != nil {
		t.Fatalf("reissue: %v", err)
	}
	stale, err := engine.Create(ctx, CreateCallInput{
		VenueID:     venue.ID,
		TableLabel:  "12",
		TableSecret: old.Secret,
	})
	if err != nil {
		t.Fatalf("create with stale secret: %v", err)
	}
	if stale.TokenVerified {
		t.Error("call with a stale secret must not be verified")
	}
}

func TestCreateCallRequiresTableLabel(t *testing.T) {
	engine, _, venue := newCallEngine(t)

	_, err := engine.Create(context.Background(), CreateCallInput{VenueID: venue.ID})
	if !errors.Is(err, ErrMalformedRequest) {
		t.Errorf("err = %v, want ErrMalformedRequest", err)
	}
}

func TestResolveIsTerminal(t *testing.T) {
	engine, _, venue := newCallEngine(t)
	ctx := context.Background()
	staff := Principal{UserID: 1}

	call, err := engine.Create(ctx, CreateCallInput{VenueID: venue.ID, TableLabel: "12"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resolved, err := engine.Resolve(ctx, call.ID, models.ServiceRequestCompleted, staff)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != models.ServiceRequestCompleted {
		t.Fatalf("status = %s, want completed", resolved.Status)
	}

	// Replaying the same outcome is a no-op.
	if _, err := engine.Resolve(ctx, call.ID, models.ServiceRequestCompleted, staff); err != nil {
		t.Errorf("replay completed: %v", err)
	}

	// Flipping a terminal call to the other outcome is rejected.
	_, err = engine.Resolve(ctx, call.ID, models.ServiceRequestCancelled, staff)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed -> cancelled: err = %v, want ErrInvalidTransition", err)
	}
}

func TestConcurrentResolveHasOneWinner(t *testing.T) {
	engine, _, venue := newCallEngine(t)
	ctx := context.Background()
	staff := Principal{UserID: 1}

	sqlDB, err := engine.db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	call, err := engine.Create(ctx, CreateCallInput{VenueID: venue.ID, TableLabel: "12"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for j := range errs {
		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			<-start
			_, errs[j] = engine.Resolve(ctx, call.ID, models.ServiceRequestCompleted, staff)
		}(j)
	}
	close(start)
	wg.Wait()

	// The conditional update picks one winner; the loser sees the call
	// already completed and degrades to a replay no-op.
	for j, err := range errs {
		if err != nil {
			t.Errorf("resolve %d: %v", j, err)
		}
	}

	var final models.ServiceRequest
	if err := engine.db.First(&final, call.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if final.Status != models.ServiceRequestCompleted {
		t.Errorf("status = %s, want completed", final.Status)
	}
}

func TestResolveValidatesOutcomeAndScope(t *testing.T) {
	engine, _, venue := newCallEngine(t)
	ctx := context.Background()

	call, err := engine.Create(ctx, CreateCallInput{VenueID: venue.ID, TableLabel: "12"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = engine.Resolve(ctx, call.ID, models.ServiceRequestPending, Principal{UserID: 1})
	if !errors.Is(err, ErrMalformedRequest) {
		t.Errorf("pending outcome: err = %v, want ErrMalformedRequest", err)
	}

	_, err = engine.Resolve(ctx, call.ID, models.ServiceRequestCompleted, Principal{UserID: 99})
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("foreign staff: err = %v, want ErrUnauthorized", err)
	}
}
