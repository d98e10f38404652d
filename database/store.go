package database

import (
	"context"
	"errors"
	"time"

	"grabbi-loyalty/loyalty"
	"grabbi-loyalty/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store keeps users, the loyalty ledger, orders, reservations and
// notifications in SQL through gorm.
type Store struct {
	DB *gorm.DB
}

var (
	_ loyalty.LedgerStore       = (*Store)(nil)
	_ loyalty.OrderStore        = (*Store)(nil)
	_ loyalty.ReservationStore  = (*Store)(nil)
	_ loyalty.NotificationStore = (*Store)(nil)
)

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// translate maps gorm errors onto the loyalty sentinels.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
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

func historyOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

func timelineOrder(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// nextSeq returns the sequence number for the next timeline entry of parent.
func nextSeq(tx *gorm.DB, model interface{}, column string, parent uuid.UUID) (int, error) {
	var last int
	err := tx.Model(model).
		Where(column+" = ?", parent).
		Select("COALESCE(MAX(seq), 0)").
		Scan(&last).Error
	return last + 1, err
}

// ==================== Users ====================

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate("get user", err)
	}
	return &user, nil
}

// ==================== Ledger ====================

func (s *Store) GetLoyaltyRecord(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyRecord, error) {
	var rec models.LoyaltyRecord
	err := s.DB.WithContext(ctx).
		Preload("History", historyOrder).
		Preload("ItemsTried", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&rec, "customer_id = ?", customerID).Error
	if err != nil {
		return nil, translate("get loyalty record", err)
	}
	return &rec, nil
}

func (s *Store) CreateLoyaltyRecordIfAbsent(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyRecord, error) {
	if err := s.ensureRecord(s.DB.WithContext(ctx), customerID); err != nil {
		return nil, translate("create loyalty record", err)
	}
	return s.GetLoyaltyRecord(ctx, customerID)
}

func (s *Store) ensureRecord(db *gorm.DB, customerID uuid.UUID) error {
	now := time.Now().UTC()
	rec := models.LoyaltyRecord{CustomerID: customerID, CreatedAt: now, UpdatedAt: now}
	return db.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// ApplyDelta locks the record row, replays plan against it and writes the
// history entry, new items and counters in the same transaction.
func (s *Store) ApplyDelta(ctx context.Context, customerID uuid.UUID, plan loyalty.DeltaFunc) (*models.LoyaltyRecord, *models.LoyaltyHistory, error) {
	if err := s.ensureRecord(s.DB.WithContext(ctx), customerID); err != nil {
		return nil, nil, translate("apply delta", err)
	}

	var (
		rec      models.LoyaltyRecord
		applied  *loyalty.Applied
		applyErr error
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec = models.LoyaltyRecord{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&rec, "customer_id = ?", customerID).Error; err != nil {
			return err
		}
		if err := historyOrder(tx).Where("customer_id = ?", customerID).Find(&rec.History).Error; err != nil {
			return err
		}
		if err := tx.Where("customer_id = ?", customerID).Order("created_at ASC").Find(&rec.ItemsTried).Error; err != nil {
			return err
		}

		applied, applyErr = loyalty.Apply(&rec, plan, time.Now().UTC())
		if applyErr != nil {
			return applyErr
		}
		if applied == nil {
			return nil
		}

		if err := tx.Create(applied.Entry).Error; err != nil {
			return err
		}
		if len(applied.NewItems) > 0 {
			if err := tx.Create(&applied.NewItems).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.LoyaltyRecord{}).
			Where("customer_id = ?", customerID).
			Updates(map[string]interface{}{
				"balance":                   rec.Balance,
				"reviews_rewarded":          rec.ReviewsRewarded,
				"referrals_rewarded":        rec.ReferralsRewarded,
				"last_birthday_reward_year": rec.LastBirthdayRewardYear,
				"updated_at":                rec.UpdatedAt,
			}).Error
	})
	if applyErr != nil {
		return nil, nil, applyErr
	}
	if err != nil {
		return nil, nil, translate("apply delta", err)
	}
	if applied == nil {
		return &rec, nil, nil
	}
	return &rec, applied.Entry, nil
}

// ==================== Orders ====================

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return translate("create order", s.DB.WithContext(ctx).Create(order).Error)
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Timeline", timelineOrder)
}

func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := preloadOrder(s.DB.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, translate("get order", err)
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := preloadOrder(s.DB.WithContext(ctx)).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, translate("list orders", err)
	}
	return orders, nil
}

// ApplyOrderTransition updates the row only while it still holds change.From,
// so a concurrent writer makes this call fail instead of being overwritten.
// The order is read back in the same transaction.
func (s *Store) ApplyOrderTransition(ctx context.Context, id uuid.UUID, change loyalty.OrderChange) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     string(change.To),
			"updated_at": change.At,
		}
		if change.To == models.OrderStatusCancelled {
			updates["cancellation_reason"] = change.Reason
		}
		if change.CommitPoints {
			updates["points_committed"] = true
		}

		res := tx.Model(&models.Order{}).Where("id = ? AND status = ?", id, string(change.From)).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrMoved(tx, &models.Order{}, id)
		}
		seq, err := nextSeq(tx, &models.OrderTimelineEntry{}, "order_id", id)
		if err != nil {
			return err
		}
		if err := tx.Create(&models.OrderTimelineEntry{
			OrderID:   id,
			Seq:       seq,
			Status:    change.To,
			Reason:    change.Reason,
			CreatedAt: change.At,
		}).Error; err != nil {
			return err
		}
		return preloadOrder(tx).First(&order, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate("apply order transition", err)
	}
	return &order, nil
}

func missingOrMoved(tx *gorm.DB, model interface{}, id uuid.UUID) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return loyalty.ErrNotFound
	}
	return loyalty.ErrInvalidTransition
}

// ==================== Reservations ====================

func (s *Store) CreateReservation(ctx context.Context, r *models.Reservation) error {
	return translate("create reservation", s.DB.WithContext(ctx).Create(r).Error)
}

func (s *Store) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.DB.WithContext(ctx).Preload("Timeline", timelineOrder).First(&r, "id = ?", id).Error; err != nil {
		return nil, translate("get reservation", err)
	}
	return &r, nil
}

func (s *Store) ListReservations(ctx context.Context, customerID uuid.UUID) ([]models.Reservation, error) {
	var out []models.Reservation
	err := s.DB.WithContext(ctx).
		Preload("Timeline", timelineOrder).
		Where("customer_id = ?", customerID).
		Order("reserved_for DESC").
		Find(&out).Error
	if err != nil {
		return nil, translate("list reservations", err)
	}
	return out, nil
}

func (s *Store) ApplyReservationTransition(ctx context.Context, id uuid.UUID, change loyalty.ReservationChange) (*models.Reservation, error) {
	var r models.Reservation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     string(change.To),
			"updated_at": change.At,
		}
		if change.To == models.ReservationStatusCancelled {
			updates["cancellation_reason"] = change.Reason
		}

		res := tx.Model(&models.Reservation{}).Where("id = ? AND status = ?", id, string(change.From)).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrMoved(tx, &models.Reservation{}, id)
		}
		seq, err := nextSeq(tx, &models.ReservationTimelineEntry{}, "reservation_id", id)
		if err != nil {
			return err
		}
		if err := tx.Create(&models.ReservationTimelineEntry{
			ReservationID: id,
			Seq:           seq,
			Status:        change.To,
			Reason:        change.Reason,
			CreatedAt:     change.At,
		}).Error; err != nil {
			return err
		}
		return tx.Preload("Timeline", timelineOrder).First(&r, "id = ?", id).Error
	})
	if err != nil {
		return nil, translate("apply reservation transition", err)
	}
	return &r, nil
}

// ==================== Notifications ====================

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return translate("create notification", s.DB.WithContext(ctx).Create(n).Error)
}

// ListNotifications returns the recipient's own and global notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var out []models.Notification
	err := s.DB.WithContext(ctx).
		Where("recipient_id = ? OR is_global = ?", recipientID, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, translate("list notifications", err)
	}
	return out, nil
}
