package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	tables := []string{
		`CREATE TABLE IF NOT EXISTS "users" (
			"id" TEXT PRIMARY KEY, "email" TEXT NOT NULL UNIQUE, "password" TEXT NOT NULL,
			"name" TEXT, "role" TEXT DEFAULT 'customer', "phone" TEXT, "birth_date" DATE,
			"is_blocked" INTEGER DEFAULT 0,
			"created_at" DATETIME, "updated_at" DATETIME, "deleted_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "orders" (
			"id" TEXT PRIMARY KEY, "customer_id" TEXT NOT NULL, "order_number" TEXT NOT NULL UNIQUE,
			"status" TEXT NOT NULL DEFAULT 'pending', "subtotal" NUMERIC NOT NULL, "discount" NUMERIC NOT NULL DEFAULT 0,
			"total" NUMERIC NOT NULL, "points_applied" INTEGER NOT NULL DEFAULT 0,
			"points_committed" INTEGER NOT NULL DEFAULT 0, "cancellation_reason" TEXT,
			"created_at" DATETIME, "updated_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "order_items" (
			"id" TEXT PRIMARY KEY, "order_id" TEXT NOT NULL, "item_id" TEXT NOT NULL, "name" TEXT,
			"image_url" TEXT, "quantity" INTEGER NOT NULL, "price" NUMERIC NOT NULL, "created_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "order_timeline_entries" (
			"id" TEXT PRIMARY KEY, "order_id" TEXT NOT NULL, "status" TEXT NOT NULL,
			"reason" TEXT, "created_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "loyalty_histories" (
			"id" TEXT PRIMARY KEY, "customer_id" TEXT NOT NULL, "points" INTEGER NOT NULL,
			"type" TEXT NOT NULL, "reason" TEXT NOT NULL, "token" TEXT UNIQUE, "order_id" TEXT,
			"created_at" DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS "notifications" (
			"id" TEXT PRIMARY KEY, "recipient_id" TEXT, "is_global" INTEGER DEFAULT 0,
			"type" TEXT NOT NULL, "title" TEXT NOT NULL, "body" TEXT, "link" TEXT,
			"payload" TEXT, "is_read" INTEGER DEFAULT 0, "created_at" DATETIME
		)`,
	}

	for _, sql := range tables {
		if err := db.Exec(sql).Error; err != nil {
			t.Fatal(err)
		}
	}
	return db
}

// ==================== BeforeCreate Hook Tests ====================

func TestUserBeforeCreateGeneratesUUID(t *testing.T) {
	db := setupTestDB(t)
	user := User{Email: "test@test.com", Password: "hash", Name: "Test"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	if user.ID == uuid.Nil {
		t.Error("UUID should have been generated")
	}
}

func TestUserBeforeCreatePreservesUUID(t *testing.T) {
	db := setupTestDB(t)
	existingID := uuid.New()
	user := User{ID: existingID, Email: "preserve@test.com", Password: "hash", Name: "Test"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatal(err)
	}
	if user.ID != existingID {
		t.Error("UUID should have been preserved")
	}
}

func TestOrderBeforeCreateGeneratesNumberAndChildIDs(t *testing.T) {
	db := setupTestDB(t)
	order := Order{
		CustomerID: uuid.New(),
		Status:     OrderStatusPending,
		Subtotal:   decimal.NewFromFloat(12.5),
		Total:      decimal.NewFromFloat(12.5),
		Items: []OrderItem{
			{ItemID: "burger", Name: "Burger", Quantity: 1, Price: decimal.NewFromFloat(12.5)},
		},
		Timeline: []OrderTimelineEntry{{Status: OrderStatusPending, CreatedAt: time.Now()}},
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatal(err)
	}
	if order.ID == uuid.Nil {
		t.Error("UUID should have been generated")
	}
	if !strings.HasPrefix(order.OrderNumber, "ORD") {
		t.Errorf("expected order number with ORD prefix, got %q", order.OrderNumber)
	}
	if order.Items[0].ID == uuid.Nil || order.Timeline[0].ID == uuid.Nil {
		t.Error("child rows should have generated UUIDs")
	}

	var loaded Order
	if err := db.Preload("Items").First(&loaded, "id = ?", order.ID).Error; err != nil {
		t.Fatal(err)
	}
	if !loaded.Subtotal.Equal(decimal.NewFromFloat(12.5)) {
		t.Errorf("expected subtotal 12.5 after round trip, got %s", loaded.Subtotal)
	}
}

func TestLoyaltyHistoryBeforeCreate(t *testing.T) {
	db := setupTestDB(t)
	h := LoyaltyHistory{CustomerID: uuid.New(), Points: 50, Type: HistoryEarned, Reason: "Tried 1 new item(s)"}
	if err := db.Create(&h).Error; err != nil {
		t.Fatal(err)
	}
	if h.ID == uuid.Nil {
		t.Error("UUID should have been generated")
	}
}

func TestLoyaltyHistoryTokenUnique(t *testing.T) {
	db := setupTestDB(t)
	token := "order:1:new-items"
	first := LoyaltyHistory{CustomerID: uuid.New(), Points: 50, Type: HistoryEarned, Reason: "a", Token: &token}
	if err := db.Create(&first).Error; err != nil {
		t.Fatal(err)
	}
	second := LoyaltyHistory{CustomerID: first.CustomerID, Points: 50, Type: HistoryEarned, Reason: "b", Token: &token}
	if err := db.Create(&second).Error; err == nil {
		t.Error("expected unique violation for a repeated token")
	}
}

func TestNotificationPayloadRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	recipient := uuid.New()
	n := Notification{
		RecipientID: &recipient,
		Type:        NotificationOrderCancelled,
		Title:       "Order cancelled",
		Payload:     map[string]interface{}{"reason": "Out of stock"},
	}
	if err := db.Create(&n).Error; err != nil {
		t.Fatal(err)
	}

	var loaded Notification
	if err := db.First(&loaded, "id = ?", n.ID).Error; err != nil {
		t.Fatal(err)
	}
	if loaded.Payload["reason"] != "Out of stock" {
		t.Errorf("expected payload reason, got %v", loaded.Payload["reason"])
	}
}

// ==================== State Machine Tests ====================

func TestOrderTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		expected bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusReady, false},
		{OrderStatusConfirmed, OrderStatusReady, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusReady, OrderStatusCompleted, true},
		{OrderStatusReady, OrderStatusCancelled, true},
		{OrderStatusCompleted, OrderStatusReady, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatus("unknown"), OrderStatusPending, false},
	}
	for _, tc := range tests {
		if got := IsValidTransition(tc.from, tc.to); got != tc.expected {
			t.Errorf("IsValidTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.expected)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !OrderTransitions.IsTerminal(OrderStatusCompleted) || !OrderTransitions.IsTerminal(OrderStatusCancelled) {
		t.Error("completed and cancelled orders should be terminal")
	}
	if OrderTransitions.IsTerminal(OrderStatusReady) {
		t.Error("ready should not be terminal")
	}
	if !ReservationTransitions.IsTerminal(ReservationStatusCancelled) {
		t.Error("cancelled reservation should be terminal")
	}
	if !ReservationTransitions.Allows(ReservationStatusUpcoming, ReservationStatusCompleted) {
		t.Error("upcoming reservation should be completable")
	}
	if ReservationTransitions.Known("pending") {
		t.Error("reservations have no pending status")
	}
}

// ==================== Loyalty Record Tests ====================

func TestLoyaltyRecordValidate(t *testing.T) {
	rec := NewLoyaltyRecord(uuid.New())
	rec.History = append(rec.History,
		LoyaltyHistory{Points: 100},
		LoyaltyHistory{Points: -40},
	)
	rec.Balance = 60
	if err := rec.Validate(); err != nil {
		t.Errorf("expected valid record, got %v", err)
	}

	rec.Balance = 100
	if err := rec.Validate(); err == nil {
		t.Error("expected error when balance drifts from history")
	}
}

func TestLoyaltyRecordHelpers(t *testing.T) {
	token := "review:abc"
	rec := NewLoyaltyRecord(uuid.New())
	rec.ItemsTried = []LoyaltyItemTried{{ItemID: "A"}, {ItemID: "B"}}
	rec.History = []LoyaltyHistory{{Points: 25, Token: &token}}

	if !rec.HasTried("A") || rec.HasTried("C") {
		t.Error("HasTried mismatch")
	}
	if got := rec.DistinctItemsTried(); len(got) != 2 || got[0] != "A" {
		t.Errorf("unexpected tried items %v", got)
	}
	if !rec.HasToken(token) || rec.HasToken("") || rec.HasToken("other") {
		t.Error("HasToken mismatch")
	}
}

func TestOrderItemIDsDistinct(t *testing.T) {
	o := Order{Items: []OrderItem{{ItemID: "A"}, {ItemID: "B"}, {ItemID: "A"}, {ItemID: ""}}}
	ids := o.ItemIDs()
	if len(ids) != 2 || ids[0] != "A" || ids[1] != "B" {
		t.Errorf("expected [A B], got %v", ids)
	}
}

func TestNewOrderNumberUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := NewOrderNumber()
		if seen[n] {
			t.Fatalf("duplicate order number %s", n)
		}
		seen[n] = true
	}
}

func TestSetOrderNumberNode(t *testing.T) {
	if err := SetOrderNumberNode(4096); err == nil {
		t.Error("expected error for node id outside the snowflake range")
	}
	if err := SetOrderNumberNode(7); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	defer SetOrderNumberNode(1)
	if n := NewOrderNumber(); !strings.HasPrefix(n, "ORD") {
		t.Errorf("unexpected order number %s", n)
	}
}
