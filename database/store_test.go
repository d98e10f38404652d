package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"grabbi-loyalty/loyalty"
	"grabbi-loyalty/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func credit(points int, token string) loyalty.DeltaFunc {
	return func(*models.LoyaltyRecord) (loyalty.Delta, error) {
		return loyalty.Delta{Points: points, Reason: fmt.Sprintf("credit %d", points), Token: token}, nil
	}
}

func seedOrder(t *testing.T, store *Store, customer uuid.UUID, pointsApplied int) *models.Order {
	t.Helper()
	id := uuid.New()
	now := time.Now().UTC()
	order := &models.Order{
		ID:            id,
		CustomerID:    customer,
		OrderNumber:   models.NewOrderNumber(),
		Status:        models.OrderStatusPending,
		Subtotal:      decimal.RequireFromString("9.00"),
		Discount:      decimal.Zero,
		Total:         decimal.RequireFromString("9.00"),
		PointsApplied: pointsApplied,
		Items: []models.OrderItem{
			{ID: uuid.New(), OrderID: id, ItemID: "burger", Name: "Burger", Quantity: 2, Price: decimal.RequireFromString("4.50"), CreatedAt: now},
		},
		Timeline:  []models.OrderTimelineEntry{{ID: uuid.New(), OrderID: id, Seq: 1, Status: models.OrderStatusPending, CreatedAt: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateOrder(context.Background(), order); err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func TestGetLoyaltyRecordNotFound(t *testing.T) {
	store := NewStore(setupTestDB(t))
	_, err := store.GetLoyaltyRecord(context.Background(), uuid.New())
	if !errors.Is(err, loyalty.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateLoyaltyRecordIfAbsentIsIdempotent(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	customer := uuid.New()

	if _, err := store.CreateLoyaltyRecordIfAbsent(ctx, customer); err != nil {
		t.Fatal(err)
	}
	store.ApplyDelta(ctx, customer, credit(30, "c1"))

	rec, err := store.CreateLoyaltyRecordIfAbsent(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Balance != 30 {
		t.Errorf("second create reset the record: balance %d", rec.Balance)
	}
}

func TestApplyDeltaPersistsEverythingTogether(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	customer := uuid.New()
	year := 2026

	rec, entry, err := store.ApplyDelta(ctx, customer, func(r *models.LoyaltyRecord) (loyalty.Delta, error) {
		return loyalty.Delta{
			Points:       75,
			Reason:       "welcome",
			Token:        "welcome:" + customer.String(),
			AddItems:     []string{"burger", "fries"},
			IncReviews:   true,
			BirthdayYear: &year,
		}, nil
	})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if entry == nil || entry.Points != 75 || entry.Type != models.HistoryEarned {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if rec.Balance != 75 {
		t.Errorf("expected returned balance 75, got %d", rec.Balance)
	}

	loaded, err := store.GetLoyaltyRecord(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	if err := loaded.Validate(); err != nil {
		t.Error(err)
	}
	if loaded.Balance != 75 || len(loaded.History) != 1 || len(loaded.ItemsTried) != 2 {
		t.Errorf("unexpected stored record: balance %d, %d entries, %d items", loaded.Balance, len(loaded.History), len(loaded.ItemsTried))
	}
	if loaded.ReviewsRewarded != 1 || loaded.LastBirthdayRewardYear == nil || *loaded.LastBirthdayRewardYear != 2026 {
		t.Errorf("counters not stored: %+v", loaded)
	}
}

func TestApplyDeltaTokenReplayIsNoOp(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	customer := uuid.New()

	store.ApplyDelta(ctx, customer, credit(50, "order:1:new-items"))
	rec, entry, err := store.ApplyDelta(ctx, customer, credit(50, "order:1:new-items"))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if entry != nil {
		t.Errorf("replay wrote an entry: %+v", entry)
	}
	if rec.Balance != 50 || len(rec.History) != 1 {
		t.Errorf("expected balance 50 with 1 entry, got %d with %d", rec.Balance, len(rec.History))
	}
}

func TestApplyDeltaSameTokenForDifferentCustomers(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	if _, _, err := store.ApplyDelta(ctx, alice, credit(25, "review:42")); err != nil {
		t.Fatalf("alice: %v", err)
	}
	rec, entry, err := store.ApplyDelta(ctx, bob, credit(25, "review:42"))
	if err != nil {
		t.Fatalf("bob: %v", err)
	}
	if entry == nil || rec.Balance != 25 {
		t.Errorf("expected bob to earn 25, got balance %d entry %+v", rec.Balance, entry)
	}

	_, entry, err = store.ApplyDelta(ctx, bob, credit(25, "review:42"))
	if err != nil || entry != nil {
		t.Errorf("expected replay for bob to be a no-op, got entry %+v err %v", entry, err)
	}
}

func TestApplyDeltaInsufficientPointsRollsBack(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	customer := uuid.New()
	store.ApplyDelta(ctx, customer, credit(20, "c1"))

	_, _, err := store.ApplyDelta(ctx, customer, credit(-21, "d1"))
	if !errors.Is(err, loyalty.ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}

	var count int64
	db.Model(&models.LoyaltyHistory{}).Where("customer_id = ?", customer).Count(&count)
	if count != 1 {
		t.Errorf("expected 1 history row, got %d", count)
	}
	rec, _ := store.GetLoyaltyRecord(ctx, customer)
	if rec.Balance != 20 {
		t.Errorf("expected balance 20, got %d", rec.Balance)
	}
}

func TestApplyDeltaZeroWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	customer := uuid.New()

	_, entry, err := store.ApplyDelta(context.Background(), customer, credit(0, ""))
	if err != nil || entry != nil {
		t.Fatalf("expected no entry and no error, got %+v, %v", entry, err)
	}
	var count int64
	db.Model(&models.LoyaltyHistory{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no history rows, got %d", count)
	}
}

func TestApplyDeltaPlanErrorIsReturned(t *testing.T) {
	store := NewStore(setupTestDB(t))
	boom := errors.New("boom")
	_, _, err := store.ApplyDelta(context.Background(), uuid.New(), func(*models.LoyaltyRecord) (loyalty.Delta, error) {
		return loyalty.Delta{}, boom
	})
	if !errors.Is(err, boom) || errors.Is(err, loyalty.ErrStoreUnavailable) {
		t.Errorf("expected the plan error unwrapped, got %v", err)
	}
}

func TestStoreErrorsAreUnavailable(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	sqlDB, _ := db.DB()
	sqlDB.Close()

	_, err := store.GetOrder(context.Background(), uuid.New())
	if !errors.Is(err, loyalty.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestOrderRoundTrip(t *testing.T) {
	store := NewStore(setupTestDB(t))
	customer := uuid.New()
	order := seedOrder(t, store, customer, 0)

	loaded, err := store.GetOrder(context.Background(), order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.OrderNumber != order.OrderNumber || len(loaded.Items) != 1 || len(loaded.Timeline) != 1 {
		t.Errorf("unexpected order %+v", loaded)
	}
	if !loaded.Items[0].Price.Equal(decimal.RequireFromString("4.50")) {
		t.Errorf("price lost precision: %s", loaded.Items[0].Price)
	}

	list, err := store.ListOrders(context.Background(), customer)
	if err != nil || len(list) != 1 {
		t.Errorf("expected 1 listed order, got %d (%v)", len(list), err)
	}
}

func TestApplyOrderTransitionGuardsCurrentStatus(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	order := seedOrder(t, store, uuid.New(), 0)
	at := time.Now().UTC()

	updated, err := store.ApplyOrderTransition(ctx, order.ID, loyalty.OrderChange{
		From: models.OrderStatusPending, To: models.OrderStatusConfirmed, At: at, CommitPoints: true,
	})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if updated.Status != models.OrderStatusConfirmed || !updated.PointsCommitted || len(updated.Timeline) != 2 {
		t.Errorf("unexpected order after transition: %+v", updated)
	}

	// A stale writer still believes the order is pending.
	_, err = store.ApplyOrderTransition(ctx, order.ID, loyalty.OrderChange{
		From: models.OrderStatusPending, To: models.OrderStatusCancelled, Reason: "late", At: at,
	})
	if !errors.Is(err, loyalty.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	_, err = store.ApplyOrderTransition(ctx, uuid.New(), loyalty.OrderChange{From: models.OrderStatusPending, To: models.OrderStatusConfirmed, At: at})
	if !errors.Is(err, loyalty.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	loaded, _ := store.GetOrder(ctx, order.ID)
	if len(loaded.Timeline) != 2 || loaded.CancellationReason != nil {
		t.Errorf("rejected transition changed the order: %+v", loaded)
	}
}

func TestCancelStoresReason(t *testing.T) {
	store := NewStore(setupTestDB(t))
	order := seedOrder(t, store, uuid.New(), 0)

	updated, err := store.ApplyOrderTransition(context.Background(), order.ID, loyalty.OrderChange{
		From: models.OrderStatusPending, To: models.OrderStatusCancelled, Reason: "Out of stock", At: time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.CancellationReason == nil || *updated.CancellationReason != "Out of stock" {
		t.Errorf("reason not stored")
	}
	if updated.LastTimelineStatus() != models.OrderStatusCancelled || updated.Timeline[1].Reason != "Out of stock" {
		t.Errorf("timeline not updated: %+v", updated.Timeline)
	}
}

func TestReservationTransition(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()
	id := uuid.New()
	r := &models.Reservation{
		ID: id, CustomerID: uuid.New(), PartySize: 3, ReservedFor: now.Add(24 * time.Hour),
		Status:   models.ReservationStatusUpcoming,
		Timeline: []models.ReservationTimelineEntry{{ID: uuid.New(), ReservationID: id, Seq: 1, Status: models.ReservationStatusUpcoming, CreatedAt: now}},
	}
	if err := store.CreateReservation(ctx, r); err != nil {
		t.Fatal(err)
	}

	updated, err := store.ApplyReservationTransition(ctx, id, loyalty.ReservationChange{
		From: models.ReservationStatusUpcoming, To: models.ReservationStatusCancelled, Reason: "Closed", At: now,
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != models.ReservationStatusCancelled || len(updated.Timeline) != 2 || *updated.CancellationReason != "Closed" {
		t.Errorf("unexpected reservation %+v", updated)
	}

	_, err = store.ApplyReservationTransition(ctx, id, loyalty.ReservationChange{
		From: models.ReservationStatusUpcoming, To: models.ReservationStatusCompleted, At: now,
	})
	if !errors.Is(err, loyalty.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	list, _ := store.ListReservations(ctx, r.CustomerID)
	if len(list) != 1 {
		t.Errorf("expected 1 reservation, got %d", len(list))
	}
}

func TestListNotificationsIncludesGlobal(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	me, other := uuid.New(), uuid.New()

	for i, n := range []models.Notification{
		{RecipientID: &me, Type: models.NotificationOrderStatus, Title: "mine"},
		{RecipientID: &other, Type: models.NotificationOrderStatus, Title: "theirs"},
		{IsGlobal: true, Type: "announcement", Title: "everyone"},
	} {
		n.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if err := store.CreateNotification(ctx, &n); err != nil {
			t.Fatal(err)
		}
	}

	list, err := store.ListNotifications(ctx, me, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Title != "everyone" || list[1].Title != "mine" {
		t.Errorf("unexpected notifications %+v", list)
	}
}

func TestEngineOnSQLStore(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	customer := uuid.New()
	engine := loyalty.NewEngine(
		loyalty.Stores{Ledger: store, Orders: store, Reservations: store},
		loyalty.NewNotifier(store, nil),
		loyalty.DefaultRules(),
		nil,
	)
	fixed := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	engine.Now = func() time.Time { return fixed }

	store.ApplyDelta(ctx, customer, credit(100, "seed"))
	order, err := engine.CreateOrder(ctx, loyalty.NewOrder{
		CustomerID:      customer,
		Items:           []loyalty.LineItem{{ItemID: "pizza", Name: "Pizza", Quantity: 1, Price: decimal.RequireFromString("8.00")}},
		PointsRequested: 60,
	})
	if err != nil {
		t.Fatal(err)
	}

	steps := []struct {
		to      models.OrderStatus
		entries int
	}{
		{models.OrderStatusConfirmed, 2},
		{models.OrderStatusConfirmed, 2},
		{models.OrderStatusReady, 3},
		{models.OrderStatusCompleted, 4},
	}
	for _, step := range steps {
		updated, err := engine.TransitionOrder(ctx, order.ID, step.to, "")
		if err != nil {
			t.Fatalf("%s: %v", step.to, err)
		}
		if len(updated.Timeline) != step.entries || updated.LastTimelineStatus() != updated.Status {
			t.Fatalf("%s: timeline %+v, want %d entries ending in %s", step.to, updated.Timeline, step.entries, updated.Status)
		}
	}
	reloaded, err := store.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Timeline) != 4 || reloaded.LastTimelineStatus() != models.OrderStatusCompleted {
		t.Errorf("reloaded timeline %+v", reloaded.Timeline)
	}

	rec, err := store.GetLoyaltyRecord(ctx, customer)
	if err != nil {
		t.Fatal(err)
	}
	// 100 seeded, 60 redeemed, 50 for the new pizza.
	if rec.Balance != 90 {
		t.Errorf("expected balance 90, got %d", rec.Balance)
	}
	if err := rec.Validate(); err != nil {
		t.Error(err)
	}

	notes, _ := store.ListNotifications(ctx, customer, 10)
	if len(notes) != 3 {
		t.Errorf("expected 3 notifications, got %d", len(notes))
	}
}

func TestTimelineOrderSurvivesEqualTimestamps(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	engine := loyalty.NewEngine(
		loyalty.Stores{Ledger: store, Orders: store, Reservations: store},
		nil,
		loyalty.DefaultRules(),
		nil,
	)
	fixed := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	engine.Now = func() time.Time { return fixed }

	chain := []models.OrderStatus{models.OrderStatusPending, models.OrderStatusConfirmed, models.OrderStatusReady, models.OrderStatusCompleted}
	for i := 0; i < 20; i++ {
		order, err := engine.CreateOrder(ctx, loyalty.NewOrder{
			CustomerID: uuid.New(),
			Items:      []loyalty.LineItem{{ItemID: "soup", Quantity: 1, Price: decimal.NewFromInt(3)}},
		})
		if err != nil {
			t.Fatal(err)
		}
		for _, to := range chain[1:] {
			if _, err := engine.TransitionOrder(ctx, order.ID, to, ""); err != nil {
				t.Fatalf("%s: %v", to, err)
			}
		}

		reloaded, err := store.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(reloaded.Timeline) != len(chain) {
			t.Fatalf("expected %d entries, got %d", len(chain), len(reloaded.Timeline))
		}
		for j, entry := range reloaded.Timeline {
			if entry.Status != chain[j] || entry.Seq != j+1 {
				t.Fatalf("order %d entry %d: got %s seq %d", i, j, entry.Status, entry.Seq)
			}
		}
	}

	r, err := engine.CreateReservation(ctx, loyalty.NewReservation{CustomerID: uuid.New(), PartySize: 2, ReservedFor: fixed.Add(time.Hour)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.TransitionReservation(ctx, r.ID, models.ReservationStatusCompleted, ""); err != nil {
		t.Fatal(err)
	}
	reloaded, err := store.GetReservation(ctx, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Timeline) != 2 || reloaded.LastTimelineStatus() != models.ReservationStatusCompleted {
		t.Errorf("unexpected reservation timeline %+v", reloaded.Timeline)
	}
}
