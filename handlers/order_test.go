package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"tableside-go/assoc"
	"tableside-go/events"
	"tableside-go/lifecycle"
	"tableside-go/models"
	"tableside-go/tokens"
	"tableside-go/utils"
)

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
	venue  models.Venue
	burger models.MenuItem
	token  *models.TableToken
	jwt    string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{}, &models.Venue{}, &models.MenuItem{}, &models.TableToken{},
		&models.Order{}, &models.OrderItem{}, &models.ServiceRequest{}, &models.ItemAssociation{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	authority := tokens.NewAuthority(db)
	associations := assoc.NewEngine(db, log)

	DB = db
	Tokens = authority
	Orders = lifecycle.NewOrderEngine(db, authority, events.NewFanout(log, associations), 20*time.Minute, log)
	Calls = lifecycle.NewServiceRequestEngine(db, authority, log)
	Recommender = associations

	router := gin.New()
	router.GET("/public/venues/:venue_id/menu", GetVenueMenuForDinersHandler)
	router.GET("/public/venues/:venue_id/menu/:item_id/recommendations", GetRecommendationsHandler)
	router.POST("/table/orders", PlaceOrderHandler)
	router.GET("/table/orders/:order_id", TrackOrderHandler)
	router.POST("/table/calls", CreateCallHandler)
	merchant := router.Group("/merchant", AuthMiddleware())
	merchant.PUT("/orders/:order_id/status", UpdateOrderStatusHandler)
	merchant.GET("/venues/:venue_id/orders", GetMerchantOrdersHandler)
	merchant.GET("/venues/:venue_id/calls", GetMerchantCallsHandler)

	app := &testApp{router: router, db: db}

	staff := models.User{Email: "owner@example.com"}
	if err := staff.HashPassword("hunter2-hunter2"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := db.Create(&staff).Error; err != nil {
		t.Fatalf("seed staff: %v", err)
	}

	app.venue = models.Venue{Name: "Testaurant", MerchantID: staff.ID}
	if err := db.Create(&app.venue).Error; err != nil {
		t.Fatalf("seed venue: %v", err)
	}

	app.burger = models.MenuItem{Name: "Burger", PriceInCents: 50, IsAvailable: true, VenueId: app.venue.ID}
	if err := db.Create(&app.burger).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	token, err := authority.Issue(context.Background(), app.venue.ID, "12")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	app.token = token

	jwt, err := utils.GenerateToken(staff.ID)
	if err != nil {
		t.Fatalf("generate jwt: %v", err)
	}
	app.jwt = jwt

	return app
}

func (a *testApp) do(t *testing.T, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestPlaceOrderComputesServerSideTotal(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPost, "/table/orders", "", gin.H{
		"venue_id":     app.venue.ID,
		"table_label":  "12",
		"table_secret": app.token.Secret,
		"items":        []gin.H{{"menu_item_id": app.burger.ID, "quantity": 2}},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var order models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if order.TotalInCents != 100 {
		t.Errorf("total = %d, want 100", order.TotalInCents)
	}
	if order.Status != models.OrderStatusPlaced {
		t.Errorf("status = %s, want placed", order.Status)
	}
}

func TestPlaceOrderWithStaleSecretSaysRescan(t *testing.T) {
	app := newTestApp(t)

	// Rotate the table's token; the printed code in the diner's hand is
	// now stale.
	if _, err := Tokens.Issue(context.Background(), app.venue.ID, "12"); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	w := app.do(t, http.MethodPost, "/table/orders", "", gin.H{
		"venue_id":     app.venue.ID,
		"table_label":  "12",
		"table_secret": app.token.Secret,
		"items":        []gin.H{{"menu_item_id": app.burger.ID, "quantity": 1}},
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401; body = %s", w.Code, w.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["kind"] != "invalid_table_token" {
		t.Errorf("kind = %q, want invalid_table_token", body["kind"])
	}
}

func TestPlaceOrderRequiresBothQRParameters(t *testing.T) {
	app := newTestApp(t)

	// A URL carrying only one of the two parameters binds as a 400 before
	// the engine is even reached.
	w := app.do(t, http.MethodPost, "/table/orders", "", gin.H{
		"venue_id":    app.venue.ID,
		"table_label": "12",
		"items":       []gin.H{{"menu_item_id": app.burger.ID, "quantity": 1}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing secret: status = %d, want 400", w.Code)
	}
}

func TestAdvanceStatusOverHTTP(t *testing.T) {
	app := newTestApp(t)

	placed := app.do(t, http.MethodPost, "/table/orders", "", gin.H{
		"venue_id":     app.venue.ID,
		"table_label":  "12",
		"table_secret": app.token.Secret,
		"items":        []gin.H{{"menu_item_id": app.burger.ID, "quantity": 1}},
	})
	if placed.Code != http.StatusCreated {
		t.Fatalf("place: %d %s", placed.Code, placed.Body.String())
	}
	var order models.Order
	if err := json.Unmarshal(placed.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode: %v", err)
	}
	statusPath := fmt.Sprintf("/merchant/orders/%d/status", order.ID)

	// No JWT: rejected by the middleware.
	if w := app.do(t, http.MethodPut, statusPath, "", gin.H{"status": "preparing"}); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated advance: status = %d, want 401", w.Code)
	}

	// Skipping a step: 409 with the invalid_transition kind.
	w := app.do(t, http.MethodPut, statusPath, app.jwt, gin.H{"status": "ready"})
	if w.Code != http.StatusConflict {
		t.Errorf("skip ahead: status = %d, want 409; body = %s", w.Code, w.Body.String())
	}

	w = app.do(t, http.MethodPut, statusPath, app.jwt, gin.H{"status": "preparing"})
	if w.Code != http.StatusOK {
		t.Fatalf("advance: status = %d, body = %s", w.Code, w.Body.String())
	}
	var advanced models.Order
	if err := json.Unmarshal(w.Body.Bytes(), &advanced); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if advanced.Status != models.OrderStatusPreparing {
		t.Errorf("status = %s, want preparing", advanced.Status)
	}
}

func TestTrackOrderReturnsSnapshot(t *testing.T) {
	app := newTestApp(t)

	placed := app.do(t, http.MethodPost, "/table/orders", "", gin.H{
		"venue_id":     app.venue.ID,
		"table_label":  "12",
		"table_secret": app.token.Secret,
		"items":        []gin.H{{"menu_item_id": app.burger.ID, "quantity": 1}},
	})
	var order models.Order
	if err := json.Unmarshal(placed.Body.Bytes(), &order); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w := app.do(t, http.MethodGet, fmt.Sprintf("/table/orders/%d", order.ID), "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("track: status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Snapshot struct {
			Status models.OrderStatus `json:"status"`
		} `json:"snapshot"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Snapshot.Status != models.OrderStatusPlaced {
		t.Errorf("snapshot status = %s, want placed", body.Snapshot.Status)
	}
}

func TestMerchantFeedsAdvertisePollCadence(t *testing.T) {
	app := newTestApp(t)

	placed := app.do(t, http.MethodPost, "/table/orders", "", gin.H{
		"venue_id":     app.venue.ID,
		"table_label":  "12",
		"table_secret": app.token.Secret,
		"items":        []gin.H{{"menu_item_id": app.burger.ID, "quantity": 1}},
	})
	if placed.Code != http.StatusCreated {
		t.Fatalf("place: %d %s", placed.Code, placed.Body.String())
	}

	w := app.do(t, http.MethodGet, fmt.Sprintf("/merchant/venues/%d/orders", app.venue.ID), app.jwt, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("orders feed: %d %s", w.Code, w.Body.String())
	}
	var ordersBody struct {
		Orders      []models.Order `json:"orders"`
		PollSeconds int            `json:"poll_seconds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &ordersBody); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ordersBody.Orders) != 1 {
		t.Errorf("orders = %d, want 1", len(ordersBody.Orders))
	}
	if ordersBody.PollSeconds != PollHints.DashboardOrdersSeconds {
		t.Errorf("orders poll_seconds = %d, want %d", ordersBody.PollSeconds, PollHints.DashboardOrdersSeconds)
	}

	w = app.do(t, http.MethodGet, fmt.Sprintf("/merchant/venues/%d/calls", app.venue.ID), app.jwt, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("calls feed: %d %s", w.Code, w.Body.String())
	}
	var callsBody struct {
		PollSeconds int `json:"poll_seconds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &callsBody); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if callsBody.PollSeconds != PollHints.DashboardCallsSeconds {
		t.Errorf("calls poll_seconds = %d, want %d", callsBody.PollSeconds, PollHints.DashboardCallsSeconds)
	}
}

func TestCallFeedCountsPendingCalls(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 2; i++ {
		w := app.do(t, http.MethodPost, "/table/calls", "", gin.H{
			"venue_id":    app.venue.ID,
			"table_label": "12",
			"message":     "water please",
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create call: %d %s", w.Code, w.Body.String())
		}
	}

	path := fmt.Sprintf("/merchant/venues/%d/calls?status=pending", app.venue.ID)
	w := app.do(t, http.MethodGet, path, app.jwt, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list calls: %d %s", w.Code, w.Body.String())
	}

	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 {
		t.Errorf("pending count = %d, want 2", body.Count)
	}
}
