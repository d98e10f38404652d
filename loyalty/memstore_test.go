package loyalty

import (
	"context"
	"errors"
	"sync"
	"time"

	"grabbi-loyalty/models"

	"github.com/google/uuid"
)

// memStore is an in-memory implementation of every store interface.
// Hooks let tests inject failures and competing writers. lostReplies fail a
// transition after it has been written.
type memStore struct {
	mu            sync.Mutex
	records       map[uuid.UUID]*models.LoyaltyRecord
	orders        map[uuid.UUID]*models.Order
	reservations  map[uuid.UUID]*models.Reservation
	notifications []models.Notification

	applyErr        error
	notifyErr       error
	transitionErrs  []error
	lostReplies     []error
	beforeOrderMove func(o *models.Order)
}

func newMemStore() *memStore {
	return &memStore{
		records:      map[uuid.UUID]*models.LoyaltyRecord{},
		orders:       map[uuid.UUID]*models.Order{},
		reservations: map[uuid.UUID]*models.Reservation{},
	}
}

func (m *memStore) stores() Stores {
	return Stores{Ledger: m, Orders: m, Reservations: m}
}

func cloneRecord(r *models.LoyaltyRecord) *models.LoyaltyRecord {
	c := *r
	c.History = append([]models.LoyaltyHistory{}, r.History...)
	c.ItemsTried = append([]models.LoyaltyItemTried{}, r.ItemsTried...)
	return &c
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = append([]models.OrderItem{}, o.Items...)
	c.Timeline = append([]models.OrderTimelineEntry{}, o.Timeline...)
	return &c
}

func cloneReservation(r *models.Reservation) *models.Reservation {
	c := *r
	c.Timeline = append([]models.ReservationTimelineEntry{}, r.Timeline...)
	return &c
}

func (m *memStore) GetLoyaltyRecord(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[customerID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (m *memStore) CreateLoyaltyRecordIfAbsent(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[customerID]; ok {
		return cloneRecord(rec), nil
	}
	rec := models.NewLoyaltyRecord(customerID)
	m.records[customerID] = rec
	return cloneRecord(rec), nil
}

func (m *memStore) ApplyDelta(ctx context.Context, customerID uuid.UUID, plan DeltaFunc) (*models.LoyaltyRecord, *models.LoyaltyHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return nil, nil, Unavailable("apply delta", m.applyErr)
	}
	rec := models.NewLoyaltyRecord(customerID)
	if existing, ok := m.records[customerID]; ok {
		rec = cloneRecord(existing)
	}
	applied, err := Apply(rec, plan, time.Now().UTC())
	if err != nil {
		return nil, nil, err
	}
	if applied == nil {
		return rec, nil, nil
	}
	m.records[customerID] = cloneRecord(rec)
	return rec, applied.Entry, nil
}

func (m *memStore) CreateOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = cloneOrder(order)
	return nil
}

func (m *memStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneOrder(o), nil
}

func (m *memStore) ListOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.CustomerID == customerID {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (m *memStore) ApplyOrderTransition(ctx context.Context, id uuid.UUID, change OrderChange) (*models.Order, error) {
	if hook := m.beforeOrderMove; hook != nil {
		m.beforeOrderMove = nil
		m.mu.Lock()
		hook(m.orders[id])
		m.mu.Unlock()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.transitionErrs) > 0 {
		err := m.transitionErrs[0]
		m.transitionErrs = m.transitionErrs[1:]
		if err != nil {
			return nil, Unavailable("apply order transition", err)
		}
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status != change.From {
		return nil, ErrInvalidTransition
	}
	o.Status = change.To
	o.UpdatedAt = change.At
	o.Timeline = append(o.Timeline, models.OrderTimelineEntry{
		ID: uuid.New(), OrderID: id, Seq: len(o.Timeline) + 1, Status: change.To, Reason: change.Reason, CreatedAt: change.At,
	})
	if change.To == models.OrderStatusCancelled {
		reason := change.Reason
		o.CancellationReason = &reason
	}
	if change.CommitPoints {
		o.PointsCommitted = true
	}
	if len(m.lostReplies) > 0 {
		err := m.lostReplies[0]
		m.lostReplies = m.lostReplies[1:]
		if err != nil {
			return nil, Unavailable("apply order transition", err)
		}
	}
	return cloneOrder(o), nil
}

func (m *memStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reservations[r.ID] = cloneReservation(r)
	return nil
}

func (m *memStore) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReservation(r), nil
}

func (m *memStore) ListReservations(ctx context.Context, customerID uuid.UUID) ([]models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Reservation
	for _, r := range m.reservations {
		if r.CustomerID == customerID {
			out = append(out, *cloneReservation(r))
		}
	}
	return out, nil
}

func (m *memStore) ApplyReservationTransition(ctx context.Context, id uuid.UUID, change ReservationChange) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reservations[id]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != change.From {
		return nil, ErrInvalidTransition
	}
	r.Status = change.To
	r.Timeline = append(r.Timeline, models.ReservationTimelineEntry{
		ID: uuid.New(), ReservationID: id, Seq: len(r.Timeline) + 1, Status: change.To, Reason: change.Reason, CreatedAt: change.At,
	})
	if change.To == models.ReservationStatusCancelled {
		reason := change.Reason
		r.CancellationReason = &reason
	}
	return cloneReservation(r), nil
}

func (m *memStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notifyErr != nil {
		return Unavailable("create notification", m.notifyErr)
	}
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *memStore) ListNotifications(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.IsGlobal || (n.RecipientID != nil && *n.RecipientID == recipientID) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) notificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

// recordingChannel remembers deliveries and can be told to fail.
type recordingChannel struct {
	name      string
	err       error
	delivered []models.Notification
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Deliver(ctx context.Context, n models.Notification) error {
	if c.err != nil {
		return c.err
	}
	c.delivered = append(c.delivered, n)
	return nil
}

type failingEmitter struct{ calls int }

func (f *failingEmitter) Emit(ctx context.Context, ev Event) error {
	f.calls++
	return errors.New("emitter down")
}

func newTestEngine(store *memStore) *Engine {
	return NewEngine(store.stores(), NewNotifier(store, nil), DefaultRules(), nil)
}

// seedPoints credits points through the ledger so history and balance agree.
func seedPoints(store *memStore, customerID uuid.UUID, points int) {
	_, _, err := store.ApplyDelta(context.Background(), customerID, func(*models.LoyaltyRecord) (Delta, error) {
		return Delta{Points: points, Reason: "seed"}, nil
	})
	if err != nil {
		panic(err)
	}
}
