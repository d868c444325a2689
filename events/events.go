// Package events carries the domain events emitted by the order lifecycle.
// Keeping delivery side effects behind an explicit event keeps the
// association learning decoupled from the status-advance path while the
// engine still controls the exactly-once emission.
package events

import (
	"context"
	"log/slog"
	"time"
)

// OrderDelivered fires exactly once per order, when the winning status
// update moves it into its terminal state.
type OrderDelivered struct {
	OrderID     uint      `json:"order_id"`
	VenueID     uint      `json:"venue_id"`
	TableLabel  string    `json:"table_label"`
	DeliveredAt time.Time `json:"delivered_at"`
}

type Subscriber interface {
	HandleOrderDelivered(ctx context.Context, ev OrderDelivered) error
}

// Fanout delivers an event to every subscriber in turn. Subscriber failures
// are logged and do not affect the request that triggered the event, nor
// the remaining subscribers.
type Fanout struct {
	log  *slog.Logger
	subs []Subscriber
}

func NewFanout(log *slog.Logger, subs ...Subscriber) *Fanout {
	return &Fanout{log: log, subs: subs}
}

func (f *Fanout) Subscribe(s Subscriber) {
	f.subs = append(f.subs, s)
}

func (f *Fanout) OrderDelivered(ctx context.Context, ev OrderDelivered) {
	for _, s := range f.subs {
		if err := s.HandleOrderDelivered(ctx, ev); err != nil {
			f.log.Error("order delivered subscriber failed",
				"order_id", ev.OrderID, "error", err)
		}
	}
}
