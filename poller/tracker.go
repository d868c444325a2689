package poller

import (
	"context"
	"log/slog"
	"time"

	"tableside-go/models"
)

// OrderSnapshot is what the customer tracker fetches each cycle.
type OrderSnapshot struct {
	Status             models.OrderStatus `json:"status"`
	EstimatedRemaining time.Duration      `json:"estimated_remaining"`
}

// OrderTracker follows a single order for the diner who placed it. The
// first poll only establishes the baseline; afterwards every observed
// status change fires onChange exactly once. Seeing no change between
// polls is the normal case and a no-op.
type OrderTracker struct {
	cfg      Config
	log      *slog.Logger
	fetch    func(ctx context.Context) (OrderSnapshot, error)
	onChange func(prev, current models.OrderStatus)

	last   models.OrderStatus
	primed bool
}

func NewOrderTracker(cfg Config, log *slog.Logger, fetch func(ctx context.Context) (OrderSnapshot, error), onChange func(prev, current models.OrderStatus)) *OrderTracker {
	return &OrderTracker{
		cfg:      cfg,
		log:      log,
		fetch:    fetch,
		onChange: onChange,
	}
}

// Run blocks until the context is cancelled (component teardown) or polling
// suspends. Cancellation is the owner's responsibility: a torn-down tracker
// must not keep a timer alive against a stale table context.
func (t *OrderTracker) Run(ctx context.Context) error {
	return Run(ctx, t.cfg, t.log, t.step)
}

// Last returns the most recently observed status. The second return is
// false before the first successful poll.
func (t *OrderTracker) Last() (models.OrderStatus, bool) {
	return t.last, t.primed
}

func (t *OrderTracker) step(ctx context.Context) error {
	snapshot, err := t.fetch(ctx)
	if err != nil {
		return err
	}

	if !t.primed {
		t.last = snapshot.Status
		t.primed = true
		return nil
	}

	if snapshot.Status != t.last {
		prev := t.last
		t.last = snapshot.Status
		if t.onChange != nil {
			t.onChange(prev, snapshot.Status)
		}
	}
	return nil
}
