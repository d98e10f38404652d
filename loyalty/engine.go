package loyalty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"grabbi-loyalty/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Stores bundles the persistence the engine needs. A single backend usually
// implements all three.
type Stores struct {
	Ledger       LedgerStore
	Orders       OrderStore
	Reservations ReservationStore
}

// Engine awards and redeems points and drives orders and reservations
// through their lifecycles. It holds no state of its own.
type Engine struct {
	ledger       LedgerStore
	orders       OrderStore
	reservations ReservationStore
	emitter      Emitter
	rules        Rules
	log          *zap.Logger

	// Now is the engine clock; tests replace it.
	Now func() time.Time
}

func NewEngine(stores Stores, emitter Emitter, rules Rules, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		ledger:       stores.Ledger,
		orders:       stores.Orders,
		reservations: stores.Reservations,
		emitter:      emitter,
		rules:        rules,
		log:          log,
		Now:          time.Now,
	}
}

func (e *Engine) Rules() Rules {
	return e.rules
}

// LineItem is a catalog item as the client saw it at checkout.
type LineItem struct {
	ItemID   string
	Name     string
	ImageURL string
	Quantity int
	Price    decimal.Decimal
}

type NewOrder struct {
	CustomerID uuid.UUID
	Items      []LineItem
	// PointsRequested is the redemption the customer chose. Zero redeems
	// nothing and ApplyAllPoints redeems as much as the order allows.
	PointsRequested int
}

type NewReservation struct {
	CustomerID  uuid.UUID
	PartySize   int
	ReservedFor time.Time
	Notes       string
}

// GetLoyaltyRecord reads the ledger directly. A customer who never earned
// anything gets an empty record with a zero balance.
func (e *Engine) GetLoyaltyRecord(ctx context.Context, customerID uuid.UUID) (*models.LoyaltyRecord, error) {
	rec, err := e.ledger.GetLoyaltyRecord(ctx, customerID)
	if errors.Is(err, ErrNotFound) {
		return models.NewLoyaltyRecord(customerID), nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// AwardNewItemBonus credits every item in itemIDs the customer has not been
// rewarded for yet and returns the points awarded.
func (e *Engine) AwardNewItemBonus(ctx context.Context, customerID uuid.UUID, token string, itemIDs []string) (int, error) {
	return e.award(ctx, customerID, token, func(rec *models.LoyaltyRecord) Delta {
		return e.rules.NewItemBonus(rec, itemIDs)
	})
}

func (e *Engine) AwardReviewBonus(ctx context.Context, customerID uuid.UUID, token string) (int, error) {
	return e.award(ctx, customerID, token, e.rules.ReviewBonus)
}

func (e *Engine) AwardReferralBonus(ctx context.Context, customerID uuid.UUID, token string) (int, error) {
	return e.award(ctx, customerID, token, e.rules.ReferralBonus)
}

// AwardBirthdayBonus is keyed by customer and year, so repeated calls on the
// same birthday award once.
func (e *Engine) AwardBirthdayBonus(ctx context.Context, customerID uuid.UUID, birthDate, today time.Time) (int, error) {
	if birthDate.IsZero() {
		return 0, fmt.Errorf("birthday bonus: %w: birth date is required", ErrInvalidInput)
	}
	token := fmt.Sprintf("birthday:%s:%d", customerID, today.Year())
	return e.award(ctx, customerID, token, func(rec *models.LoyaltyRecord) Delta {
		return e.rules.BirthdayBonus(rec, birthDate, today)
	})
}

func (e *Engine) award(ctx context.Context, customerID uuid.UUID, token string, rule func(*models.LoyaltyRecord) Delta) (int, error) {
	if customerID == uuid.Nil {
		return 0, fmt.Errorf("award: %w: customer id is required", ErrInvalidInput)
	}
	_, entry, err := e.ledger.ApplyDelta(ctx, customerID, func(rec *models.LoyaltyRecord) (Delta, error) {
		d := rule(rec)
		d.Token = token
		return d, nil
	})
	if err != nil {
		return 0, err
	}
	if entry == nil {
		return 0, nil
	}
	e.log.Info("loyalty points awarded",
		zap.String("customer_id", customerID.String()),
		zap.Int("points", entry.Points),
		zap.String("reason", entry.Reason))
	return entry.Points, nil
}

// ComputeRedemption quotes a discount against the current balance. It never
// writes to the ledger.
func (e *Engine) ComputeRedemption(ctx context.Context, customerID uuid.UUID, requested int, subtotal decimal.Decimal) (Redemption, error) {
	if subtotal.IsNegative() {
		return Redemption{}, fmt.Errorf("redemption: %w: negative subtotal", ErrInvalidInput)
	}
	rec, err := e.GetLoyaltyRecord(ctx, customerID)
	if err != nil {
		return Redemption{}, err
	}
	return Redeem(rec.Balance, requested, subtotal, e.rules.PointValue), nil
}

// CreateOrder snapshots the line items, prices the order and stores it as
// pending. Points are only reserved on the order here; the ledger is debited
// when the order is confirmed.
func (e *Engine) CreateOrder(ctx context.Context, in NewOrder) (*models.Order, error) {
	if in.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("create order: %w: customer id is required", ErrInvalidInput)
	}
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("create order: %w: order has no items", ErrInvalidInput)
	}
	if in.PointsRequested < ApplyAllPoints {
		return nil, fmt.Errorf("create order: %w: points requested %d", ErrInvalidInput, in.PointsRequested)
	}

	now := e.Now().UTC()
	orderID := uuid.New()
	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(in.Items))
	for _, li := range in.Items {
		if strings.TrimSpace(li.ItemID) == "" || li.Quantity <= 0 || li.Price.IsNegative() {
			return nil, fmt.Errorf("create order: %w: bad line item %q", ErrInvalidInput, li.ItemID)
		}
		subtotal = subtotal.Add(li.Price.Mul(decimal.NewFromInt(int64(li.Quantity))))
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			ItemID:    li.ItemID,
			Name:      li.Name,
			ImageURL:  li.ImageURL,
			Quantity:  li.Quantity,
			Price:     li.Price,
			CreatedAt: now,
		})
	}
	subtotal = subtotal.Round(2)

	redemption := Redemption{Discount: decimal.Zero}
	if in.PointsRequested != 0 {
		rec, err := e.GetLoyaltyRecord(ctx, in.CustomerID)
		if err != nil {
			return nil, err
		}
		if in.PointsRequested > rec.Balance {
			return nil, fmt.Errorf("create order: %w: requested %d, balance %d", ErrInsufficientPoints, in.PointsRequested, rec.Balance)
		}
		redemption = Redeem(rec.Balance, in.PointsRequested, subtotal, e.rules.PointValue)
	}

	order := &models.Order{
		ID:            orderID,
		CustomerID:    in.CustomerID,
		OrderNumber:   models.NewOrderNumber(),
		Status:        models.OrderStatusPending,
		Subtotal:      subtotal,
		Discount:      redemption.Discount,
		Total:         subtotal.Sub(redemption.Discount),
		PointsApplied: redemption.PointsApplied,
		Items:         items,
		Timeline: []models.OrderTimelineEntry{{
			ID:        uuid.New(),
			OrderID:   orderID,
			Seq:       1,
			Status:    models.OrderStatusPending,
			CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	e.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Int("points_applied", order.PointsApplied))
	return order, nil
}

func (e *Engine) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return e.orders.GetOrder(ctx, id)
}

func (e *Engine) ListOrders(ctx context.Context, customerID uuid.UUID) ([]models.Order, error) {
	return e.orders.ListOrders(ctx, customerID)
}

func (e *Engine) CreateReservation(ctx context.Context, in NewReservation) (*models.Reservation, error) {
	if in.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("create reservation: %w: customer id is required", ErrInvalidInput)
	}
	if in.PartySize <= 0 {
		return nil, fmt.Errorf("create reservation: %w: party size must be positive", ErrInvalidInput)
	}
	if in.ReservedFor.IsZero() {
		return nil, fmt.Errorf("create reservation: %w: reservation time is required", ErrInvalidInput)
	}

	now := e.Now().UTC()
	id := uuid.New()
	r := &models.Reservation{
		ID:          id,
		CustomerID:  in.CustomerID,
		PartySize:   in.PartySize,
		ReservedFor: in.ReservedFor.UTC(),
		Notes:       strings.TrimSpace(in.Notes),
		Status:      models.ReservationStatusUpcoming,
		Timeline: []models.ReservationTimelineEntry{{
			ID:            uuid.New(),
			ReservationID: id,
			Seq:           1,
			Status:        models.ReservationStatusUpcoming,
			CreatedAt:     now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.reservations.CreateReservation(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (e *Engine) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	return e.reservations.GetReservation(ctx, id)
}

func (e *Engine) ListReservations(ctx context.Context, customerID uuid.UUID) ([]models.Reservation, error) {
	return e.reservations.ListReservations(ctx, customerID)
}
