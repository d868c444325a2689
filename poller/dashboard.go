package poller

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"tableside-go/models"
)

type DashboardConfig struct {
	Orders Config
	Calls  Config
}

func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Orders: Config{Interval: 30 * time.Second, FailureBudget: 5},
		Calls:  Config{Interval: 3 * time.Second, FailureBudget: 5},
	}
}

// DashboardWatcher drives one venue dashboard session: a slow order feed
// and a fast pending-call feed. The audible alert is client-side edge
// detection, an *increase* in the pending-call count versus the previous
// poll. The baseline is whatever the server reports on the session's first
// poll, never assumed zero, so closing and reopening the dashboard does not
// replay alerts for calls that were already pending.
type DashboardWatcher struct {
	cfg DashboardConfig
	log *slog.Logger

	fetchOrders func(ctx context.Context) ([]models.Order, error)
	onOrders    func(orders []models.Order)

	fetchPendingCalls func(ctx context.Context) (int, error)
	onCalls           func(count int)
	onCallAlert       func(prev, current int)

	baseline int
	primed   bool
}

func NewDashboardWatcher(
	cfg DashboardConfig,
	log *slog.Logger,
	fetchOrders func(ctx context.Context) ([]models.Order, error),
	onOrders func(orders []models.Order),
	fetchPendingCalls func(ctx context.Context) (int, error),
	onCalls func(count int),
	onCallAlert func(prev, current int),
) *DashboardWatcher {
	return &DashboardWatcher{
		cfg:               cfg,
		log:               log,
		fetchOrders:       fetchOrders,
		onOrders:          onOrders,
		fetchPendingCalls: fetchPendingCalls,
		onCalls:           onCalls,
		onCallAlert:       onCallAlert,
	}
}

// Run drives both feeds until the context is cancelled or one of them
// suspends; suspension of either feed tears down the whole session, and the
// next mount starts a fresh watcher with a fresh baseline.
func (w *DashboardWatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return Run(ctx, w.cfg.Orders, w.log, w.ordersStep)
	})
	g.Go(func() error {
		return Run(ctx, w.cfg.Calls, w.log, w.callsStep)
	})
	return g.Wait()
}

func (w *DashboardWatcher) ordersStep(ctx context.Context) error {
	orders, err := w.fetchOrders(ctx)
	if err != nil {
		return err
	}
	if w.onOrders != nil {
		w.onOrders(orders)
	}
	return nil
}

func (w *DashboardWatcher) callsStep(ctx context.Context) error {
	count, err := w.fetchPendingCalls(ctx)
	if err != nil {
		return err
	}

	if !w.primed {
		w.baseline = count
		w.primed = true
	} else {
		if count > w.baseline && w.onCallAlert != nil {
			w.onCallAlert(w.baseline, count)
		}
		w.baseline = count
	}

	if w.onCalls != nil {
		w.onCalls(count)
	}
	return nil
}
