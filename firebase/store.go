package firebase

import (
	"context"
	"errors"
	"sort"
	"time"

	"grabbi-loyalty/loyalty"
	"grabbi-loyalty/models"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	loyaltyCollection      = "loyalty"
	ordersCollection       = "orders"
	reservationsCollection = "reservations"
	notificationCollection = "notifications"
)

// LoyaltyStore keeps the ledger, orders, reservations and notifications in
// Firestore. Every multi-field change runs in a Firestore transaction.
type LoyaltyStore struct {
	client *firestore.Client
}

var (
	_ loyalty.LedgerStore       = (*LoyaltyStore)(nil)
	_ loyalty.OrderStore        = (*LoyaltyStore)(nil)
	_ loyalty.ReservationStore  = (*LoyaltyStore)(nil)
	_ loyalty.NotificationStore = (*LoyaltyStore)(nil)
)

func NewLoyaltyStore(client *firestore.Client) *LoyaltyStore {
	return &LoyaltyStore{client: client}
}

func (s *LoyaltyStore) Close() error {
	return s.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return loyalty.ErrNotFound
	case errors.Is(err, loyalty.ErrNotFound),
		errors.Is(err, loyalty.ErrInvalidTransition),
		errors.Is(err, loyalty.ErrInsufficientPoints),
		errors.Is(err, loyalty.ErrStoreUnavailable):
		return err
	default:
		return loyalty.Unavailable(op, err)
	}
}

// ==================== Ledger ====================

func (s *LoyaltyStore) loyaltyRef(customerID uuid.UUID) *firestore.DocumentRef {
	return s.client.Collection(loyaltyCollection).Doc(customerID.String())
}

func (s *LoyaltyStore) GetLoyaltyRecord(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyRecord, error) {
	snap, err := s.loyaltyRef(customerID).Get(ctx)
	if err != nil {
		return nil, translate("get loyalty record", err)
	}
	var doc loyaltyDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, translate("decode loyalty record", err)
	}
	return fromLoyaltyDoc(customerID, doc)
}

func (s *LoyaltyStore) CreateLoyaltyRecordIfAbsent(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyRecord, error) {
	now := time.Now().UTC()
	rec := models.NewLoyaltyRecord(customerID)
	rec.CreatedAt, rec.UpdatedAt = now, now

	_, err := s.loyaltyRef(customerID).Create(ctx, toLoyaltyDoc(rec))
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return nil, translate("create loyalty record", err)
	}
	return s.GetLoyaltyRecord(ctx, customerID)
}

// ApplyDelta reads and rewrites the whole ledger document in one
// transaction. Firestore may rerun the function, so the outputs are reset on
// every attempt.
func (s *LoyaltyStore) ApplyDelta(ctx context.Context, customerID uuid.UUID, plan loyalty.DeltaFunc) (*models.LoyaltyRecord, *models.LoyaltyHistory, error) {
	ref := s.loyaltyRef(customerID)
	var (
		rec      *models.LoyaltyRecord
		entry    *models.LoyaltyHistory
		applyErr error
	)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		rec, entry, applyErr = nil, nil, nil

		snap, err := tx.Get(ref)
		switch {
		case isNotFound(err):
			rec = models.NewLoyaltyRecord(customerID)
		case err != nil:
			return err
		default:
			var doc loyaltyDoc
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			if rec, err = fromLoyaltyDoc(customerID, doc); err != nil {
				return err
			}
		}

		applied, err := loyalty.Apply(rec, plan, time.Now().UTC())
		if err != nil {
			applyErr = err
			return err
		}
		if applied == nil {
			return nil
		}
		entry = applied.Entry
		return tx.Set(ref, toLoyaltyDoc(rec))
	})
	if applyErr != nil {
		return nil, nil, applyErr
	}
	if err != nil {
		return nil, nil, translate("apply delta", err)
	}
	return rec, entry, nil
}

// ==================== Orders ====================

func (s *LoyaltyStore) orderRef(id uuid.UUID) *firestore.DocumentRef {
	return s.client.Collection(ordersCollection).Doc(id.String())
}

func (s *LoyaltyStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.OrderNumber == "" {
		order.OrderNumber = models.NewOrderNumber()
	}
	_, err := s.orderRef(order.ID).Create(ctx, toOrderDoc(order))
	return translate("create order", err)
}

func (s *LoyaltyStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	snap, err := s.orderRef(id).Get(ctx)
	if err != nil {
		return nil, translate("get order", err)
	}
	return decodeOrder(snap)
}

func decodeOrder(snap *firestore.DocumentSnapshot) (*models.Order, error) {
	id, err := uuid.Parse(snap.Ref.ID)
	if err != nil {
		return nil, translate("decode order", err)
	}
	var doc orderDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, translate("decode order", err)
	}
	o, err := fromOrderDoc(id, doc)
	if err != nil {
		return nil, translate("decode order", err)
	}
	return o, nil
}

func (s *LoyaltyStore) ListOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	snaps, err := s.client.Collection(ordersCollection).
		Where("customer_id", "==", customerID.String()).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, translate("list orders", err)
	}
	orders := make([]models.Order, 0, len(snaps))
	for _, snap := range snaps {
		o, err := decodeOrder(snap)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	// Sorted here so the query needs no composite index.
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (s *LoyaltyStore) ApplyOrderTransition(ctx context.Context, id uuid.UUID, change loyalty.OrderChange) (*models.Order, error) {
	ref := s.orderRef(id)
	var order *models.Order
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		order = nil
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		o, err := decodeOrder(snap)
		if err != nil {
			return err
		}
		if o.Status != change.From {
			return loyalty.ErrInvalidTransition
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
		order = o
		return tx.Set(ref, toOrderDoc(o))
	})
	if err != nil {
		return nil, translate("apply order transition", err)
	}
	return order, nil
}

// ==================== Reservations ====================

func (s *LoyaltyStore) reservationRef(id uuid.UUID) *firestore.DocumentRef {
	return s.client.Collection(reservationsCollection).Doc(id.String())
}

func (s *LoyaltyStore) CreateReservation(ctx context.Context, r *models.Reservation) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := s.reservationRef(r.ID).Create(ctx, toReservationDoc(r))
	return translate("create reservation", err)
}

func decodeReservation(snap *firestore.DocumentSnapshot) (*models.Reservation, error) {
	id, err := uuid.Parse(snap.Ref.ID)
	if err != nil {
		return nil, translate("decode reservation", err)
	}
	var doc reservationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, translate("decode reservation", err)
	}
	r, err := fromReservationDoc(id, doc)
	if err != nil {
		return nil, translate("decode reservation", err)
	}
	return r, nil
}

func (s *LoyaltyStore) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	snap, err := s.reservationRef(id).Get(ctx)
	if err != nil {
		return nil, translate("get reservation", err)
	}
	return decodeReservation(snap)
}

func (s *LoyaltyStore) ListReservations(ctx context.Context, customerID uuid.UUID) ([]models.Reservation, error) {
	snaps, err := s.client.Collection(reservationsCollection).
		Where("customer_id", "==", customerID.String()).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, translate("list reservations", err)
	}
	out := make([]models.Reservation, 0, len(snaps))
	for _, snap := range snaps {
		r, err := decodeReservation(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedFor.After(out[j].ReservedFor) })
	return out, nil
}

func (s *LoyaltyStore) ApplyReservationTransition(ctx context.Context, id uuid.UUID, change loyalty.ReservationChange) (*models.Reservation, error) {
	ref := s.reservationRef(id)
	var res *models.Reservation
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		res = nil
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		r, err := decodeReservation(snap)
		if err != nil {
			return err
		}
		if r.Status != change.From {
			return loyalty.ErrInvalidTransition
		}

		r.Status = change.To
		r.UpdatedAt = change.At
		r.Timeline = append(r.Timeline, models.ReservationTimelineEntry{
			ID: uuid.New(), ReservationID: id, Seq: len(r.Timeline) + 1, Status: change.To, Reason: change.Reason, CreatedAt: change.At,
		})
		if change.To == models.ReservationStatusCancelled {
			reason := change.Reason
			r.CancellationReason = &reason
		}
		res = r
		return tx.Set(ref, toReservationDoc(r))
	})
	if err != nil {
		return nil, translate("apply reservation transition", err)
	}
	return res, nil
}

// ==================== Notifications ====================

func (s *LoyaltyStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.client.Collection(notificationCollection).Doc(n.ID.String()).Create(ctx, toNotificationDoc(n))
	return translate("create notification", err)
}

// ListNotifications merges the recipient's own and global notifications,
// newest first.
func (s *LoyaltyStore) ListNotifications(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	col := s.client.Collection(notificationCollection)
	queries := []firestore.Query{
		col.Where("recipient_id", "==", recipientID.String()),
		col.Where("is_global", "==", true),
	}

	var out []models.Notification
	for _, q := range queries {
		snaps, err := q.Documents(ctx).GetAll()
		if err != nil {
			return nil, translate("list notifications", err)
		}
		for _, snap := range snaps {
			id, err := uuid.Parse(snap.Ref.ID)
			if err != nil {
				continue
			}
			var doc notificationDoc
			if err := snap.DataTo(&doc); err != nil {
				return nil, translate("decode notification", err)
			}
			out = append(out, fromNotificationDoc(id, doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
