// tablectl is the operator tool for table QR codes: issue a fresh token for
// a table, retire one, list a venue's tokens with their printable URLs, or
// watch a venue's live order and waiter-call activity from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tableside-go/events"
	"tableside-go/lifecycle"
	"tableside-go/models"
	"tableside-go/poller"
	"tableside-go/tokens"
)

func main() {
	var (
		dbPath     = flag.String("db", "test.db", "path to the sqlite database")
		venueID    = flag.Uint("venue", 0, "venue id (required)")
		issueLabel = flag.String("issue", "", "issue a new token for this table label")
		deactivate = flag.Uint("deactivate", 0, "deactivate the token with this id")
		watch      = flag.Bool("watch", false, "poll the venue's orders and pending calls until interrupted")
		baseURL    = flag.String("base", "http://localhost:8080", "base URL printed into QR links")
	)
	flag.Parse()

	if *venueID == 0 {
		flag.Usage()
		os.Exit(2)
	}

	db, err := gorm.Open(sqlite.Open(*dbPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("open database: %v", err)
	}

	authority := tokens.NewAuthority(db)
	ctx := context.Background()

	if *watch {
		if err := watchVenue(db, authority, *venueID); err != nil {
			log.Fatalf("watch: %v", err)
		}
		return
	}

	switch {
	case *issueLabel != "":
		token, err := authority.Issue(ctx, *venueID, *issueLabel)
		if err != nil {
			log.Fatalf("issue token: %v", err)
		}
		fmt.Printf("Issued token %d for table %q\n", token.ID, token.TableLabel)

	case *deactivate != 0:
		if err := authority.Deactivate(ctx, *venueID, *deactivate); err != nil {
			log.Fatalf("deactivate token: %v", err)
		}
		fmt.Printf("Deactivated token %d\n", *deactivate)
	}

	list, err := authority.ListForVenue(ctx, *venueID)
	if err != nil {
		log.Fatalf("list tokens: %v", err)
	}

	table := tablewriter.NewTable(os.Stdout)
	table.Header("ID", "Table", "Active", "Issued", "Last Used", "QR URL")
	for _, token := range list {
		lastUsed := "-"
		if token.LastUsedAt != nil {
			lastUsed = token.LastUsedAt.Format("2006-01-02 15:04")
		}
		qr := "-"
		if token.IsActive {
			qr = fmt.Sprintf("%s/public/venues/%d/menu?table=%s&secret=%s",
				*baseURL, token.VenueID, url.QueryEscape(token.TableLabel), url.QueryEscape(token.Secret))
		}
		table.Append([]string{
			fmt.Sprintf("%d", token.ID),
			token.TableLabel,
			fmt.Sprintf("%t", token.IsActive),
			token.IssuedAt.Format("2006-01-02 15:04"),
			lastUsed,
			qr,
		})
	}
	table.Render()
}

// watchVenue runs a terminal dashboard session over the database: the order
// feed redraws on every cycle, and an increase in pending waiter calls
// prints an alert line. Ctrl-C ends the session.
func watchVenue(db *gorm.DB, authority *tokens.Authority, venueID uint) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	orders := lifecycle.NewOrderEngine(db, authority, events.NewFanout(logger), 20*time.Minute, logger)
	calls := lifecycle.NewServiceRequestEngine(db, authority, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := poller.NewDashboardWatcher(
		poller.DefaultDashboardConfig(),
		logger,
		func(ctx context.Context) ([]models.Order, error) {
			return orders.ListForVenue(ctx, venueID, "")
		},
		renderOrders,
		func(ctx context.Context) (int, error) {
			pending, err := calls.ListForVenue(ctx, venueID, models.ServiceRequestPending)
			if err != nil {
				return 0, err
			}
			return len(pending), nil
		},
		nil,
		func(prev, current int) {
			fmt.Printf("\a*** %d new waiter call(s), %d pending ***\n", current-prev, current)
		},
	)

	err := watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func renderOrders(orders []models.Order) {
	table := tablewriter.NewTable(os.Stdout)
	table.Header("ID", "Table", "Status", "Total (cents)", "Placed")
	for _, order := range orders {
		table.Append([]string{
			fmt.Sprintf("%d", order.ID),
			order.TableLabel,
			string(order.Status),
			fmt.Sprintf("%d", order.TotalInCents),
			order.CreatedAt.Format("15:04:05"),
		})
	}
	table.Render()
}
