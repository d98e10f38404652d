package loyalty

import (
	"context"
	"time"

	"grabbi-loyalty/models"

	"github.com/google/uuid"
)

// Delta describes one ledger mutation. Everything in it is applied atomically
// together with exactly one history entry.
type Delta struct {
	Points  int
	Reason  string
	Refund  bool
	Token   string
	OrderID *uuid.UUID

	AddItems     []string
	IncReviews   bool
	IncReferrals bool
	BirthdayYear *int
}

// IsZero reports whether the delta changes nothing. Stores write nothing for it.
func (d Delta) IsZero() bool {
	return d.Points == 0 && len(d.AddItems) == 0 && !d.IncReviews && !d.IncReferrals && d.BirthdayYear == nil
}

// DeltaFunc computes a delta from the record as read inside the store's
// atomic section. It may run more than once when the store retries.
type DeltaFunc func(rec *models.LoyaltyRecord) (Delta, error)

// LedgerStore owns LoyaltyRecords.
//
// ApplyDelta reads the record (an absent one counts as empty) inside one
// atomic unit, evaluates plan through Apply and persists what Apply changed.
// Balance, history entry and counters land together or not at all. The
// returned entry is nil when nothing was written.
type LedgerStore interface {
	GetLoyaltyRecord(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyRecord, error)
	CreateLoyaltyRecordIfAbsent(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyRecord, error)
	ApplyDelta(ctx context.Context, customerID uuid.UUID, plan DeltaFunc) (*models.LoyaltyRecord, *models.LoyaltyHistory, error)
}

// OrderChange is a status move guarded by the status the caller observed.
type OrderChange struct {
	From         models.OrderStatus
	To           models.OrderStatus
	Reason       string
	At           time.Time
	CommitPoints bool
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error)
	// ApplyOrderTransition writes status, timeline entry and cancellation
	// reason atomically. It fails with ErrInvalidTransition when the stored
	// status is no longer change.From.
	ApplyOrderTransition(ctx context.Context, id uuid.UUID, change OrderChange) (*models.Order, error)
}

type ReservationChange struct {
	From   models.ReservationStatus
	To     models.ReservationStatus
	Reason string
	At     time.Time
}

type ReservationStore interface {
	CreateReservation(ctx context.Context, r *models.Reservation) error
	GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	ListReservations(ctx context.Context, customerID uuid.UUID) ([]models.Reservation, error)
	ApplyReservationTransition(ctx context.Context, id uuid.UUID, change ReservationChange) (*models.Reservation, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error)
}
