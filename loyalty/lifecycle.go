package loyalty

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"grabbi-loyalty/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func redeemToken(orderID uuid.UUID) string   { return "order:" + orderID.String() + ":redeem" }
func refundToken(orderID uuid.UUID) string   { return "order:" + orderID.String() + ":refund" }
func newItemsToken(orderID uuid.UUID) string { return "order:" + orderID.String() + ":new-items" }

// TransitionOrder moves an order to status.
//
// Moving to the current status writes nothing, but a repeated cancel or
// complete re-runs its token-guarded ledger step. Confirming an order with
// applied points debits the ledger before the status is written, keyed by the
// order, so a retried confirm never debits twice. Cancelling refunds committed
// points and completing awards the new-item bonus.
func (e *Engine) TransitionOrder(ctx context.Context, id uuid.UUID, status models.OrderStatus, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if status == models.OrderStatusCancelled && reason == "" {
		return nil, ErrMissingReason
	}
	if !models.OrderTransitions.Known(status) {
		return nil, fmt.Errorf("%w: unknown order status %q", ErrInvalidTransition, status)
	}

	order, err := e.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status == status {
		e.settle(ctx, order)
		return order, nil
	}
	if !models.IsValidTransition(order.Status, status) {
		return nil, fmt.Errorf("%w: order %s cannot move from %s to %s", ErrInvalidTransition, order.OrderNumber, order.Status, status)
	}

	change := OrderChange{From: order.Status, To: status, Reason: reason, At: e.Now().UTC()}
	if status == models.OrderStatusConfirmed && order.PointsApplied > 0 {
		if err := e.commitPoints(ctx, order); err != nil {
			return nil, err
		}
		change.CommitPoints = true
	}

	updated, err := e.orders.ApplyOrderTransition(ctx, id, change)
	if errors.Is(err, ErrInvalidTransition) {
		// Another writer moved the order first.
		current, getErr := e.orders.GetOrder(ctx, id)
		if getErr != nil {
			return nil, err
		}
		// A debit written for a confirm that lost the race is refunded by
		// settle once the order is cancelled.
		e.settle(ctx, current)
		if current.Status == status {
			return current, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	e.log.Info("order status changed",
		zap.String("order_id", updated.ID.String()),
		zap.String("from", string(change.From)),
		zap.String("to", string(status)))

	e.settle(ctx, updated)

	e.emit(ctx, Event{
		Subject:     SubjectOrder,
		SubjectID:   updated.ID,
		RecipientID: updated.CustomerID,
		Reference:   updated.OrderNumber,
		Status:      string(status),
		Reason:      reason,
	})
	return updated, nil
}

// settle runs the ledger step owed by a terminal order. Both steps are keyed
// by the order, so running them again is a no-op.
func (e *Engine) settle(ctx context.Context, order *models.Order) {
	switch order.Status {
	case models.OrderStatusCancelled:
		e.refundPoints(ctx, order)
	case models.OrderStatusCompleted:
		if _, err := e.AwardNewItemBonus(ctx, order.CustomerID, newItemsToken(order.ID), order.ItemIDs()); err != nil {
			e.log.Error("new item bonus failed",
				zap.String("order_id", order.ID.String()),
				zap.Error(err))
		}
	}
}

// commitPoints debits the points reserved on the order.
func (e *Engine) commitPoints(ctx context.Context, order *models.Order) error {
	orderID := order.ID
	_, _, err := e.ledger.ApplyDelta(ctx, order.CustomerID, func(rec *models.LoyaltyRecord) (Delta, error) {
		return Delta{
			Points:  -order.PointsApplied,
			Reason:  fmt.Sprintf("Redeemed on order %s", order.OrderNumber),
			Token:   redeemToken(orderID),
			OrderID: &orderID,
		}, nil
	})
	if err != nil {
		return fmt.Errorf("commit points for order %s: %w", order.OrderNumber, err)
	}
	return nil
}

// refundPoints credits back a committed redemption. The plan only refunds
// when the redeem entry exists, and the refund token makes repeats no-ops.
// The cancellation is already durable, so failures are logged and a retried
// cancel picks the refund up again.
func (e *Engine) refundPoints(ctx context.Context, order *models.Order) {
	if order.PointsApplied <= 0 {
		return
	}
	orderID := order.ID
	_, entry, err := e.ledger.ApplyDelta(ctx, order.CustomerID, func(rec *models.LoyaltyRecord) (Delta, error) {
		if !rec.HasToken(redeemToken(orderID)) {
			return Delta{}, nil
		}
		return Delta{
			Points:  order.PointsApplied,
			Refund:  true,
			Reason:  fmt.Sprintf("Refund for cancelled order %s", order.OrderNumber),
			Token:   refundToken(orderID),
			OrderID: &orderID,
		}, nil
	})
	if err != nil {
		e.log.Error("points refund failed",
			zap.String("order_id", orderID.String()),
			zap.Int("points", order.PointsApplied),
			zap.Error(err))
		return
	}
	if entry != nil {
		e.log.Info("points refunded",
			zap.String("order_id", orderID.String()),
			zap.Int("points", entry.Points))
	}
}

func (e *Engine) TransitionReservation(ctx context.Context, id uuid.UUID, status models.ReservationStatus, reason string) (*models.Reservation, error) {
	reason = strings.TrimSpace(reason)
	if status == models.ReservationStatusCancelled && reason == "" {
		return nil, ErrMissingReason
	}
	if !models.ReservationTransitions.Known(status) {
		return nil, fmt.Errorf("%w: unknown reservation status %q", ErrInvalidTransition, status)
	}

	r, err := e.reservations.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == status {
		return r, nil
	}
	if !models.ReservationTransitions.Allows(r.Status, status) {
		return nil, fmt.Errorf("%w: reservation cannot move from %s to %s", ErrInvalidTransition, r.Status, status)
	}

	change := ReservationChange{From: r.Status, To: status, Reason: reason, At: e.Now().UTC()}
	updated, err := e.reservations.ApplyReservationTransition(ctx, id, change)
	if errors.Is(err, ErrInvalidTransition) {
		if current, getErr := e.reservations.GetReservation(ctx, id); getErr == nil && current.Status == status {
			return current, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	e.log.Info("reservation status changed",
		zap.String("reservation_id", updated.ID.String()),
		zap.String("from", string(change.From)),
		zap.String("to", string(status)))

	e.emit(ctx, Event{
		Subject:     SubjectReservation,
		SubjectID:   updated.ID,
		RecipientID: updated.CustomerID,
		Reference:   updated.ReservedFor.Format("Mon 2 Jan 15:04"),
		Status:      string(status),
		Reason:      reason,
	})
	return updated, nil
}

// emit hands the event to the emitter. The transition is already stored, so
// an emitter failure is only logged.
func (e *Engine) emit(ctx context.Context, ev Event) {
	if e.emitter == nil {
		return
	}
	if err := e.emitter.Emit(ctx, ev); err != nil {
		e.log.Error("notification emit failed",
			zap.String("subject", string(ev.Subject)),
			zap.String("subject_id", ev.SubjectID.String()),
			zap.String("status", ev.Status),
			zap.Error(err))
	}
}
