package loyalty

import (
	"context"
	"fmt"
	"time"

	"grabbi-loyalty/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Subject string

const (
	SubjectOrder       Subject = "order"
	SubjectReservation Subject = "reservation"
)

// Event is a status change worth telling the customer about.
type Event struct {
	Subject     Subject
	SubjectID   uuid.UUID
	RecipientID uuid.UUID
	// Reference is the human handle: the order number or the reservation time.
	Reference string
	Status    string
	Reason    string
}

type Emitter interface {
	Emit(ctx context.Context, ev Event) error
}

// Channel delivers an already stored notification outside the app,
// for example by email or through a message queue.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n models.Notification) error
}

// Notifier stores the in-app notification and then fans out to channels.
type Notifier struct {
	store    NotificationStore
	channels []Channel
	log      *zap.Logger
	now      func() time.Time
}

func NewNotifier(store NotificationStore, log *zap.Logger, channels ...Channel) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{store: store, channels: channels, log: log, now: time.Now}
}

// Emit returns an error only when the in-app notification could not be
// stored. Channel failures are logged.
func (n *Notifier) Emit(ctx context.Context, ev Event) error {
	note := BuildNotification(ev, n.now().UTC())
	if err := n.store.CreateNotification(ctx, &note); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	for _, ch := range n.channels {
		if err := ch.Deliver(ctx, note); err != nil {
			n.log.Warn("notification delivery failed",
				zap.String("channel", ch.Name()),
				zap.String("notification_id", note.ID.String()),
				zap.Error(err))
		}
	}
	return nil
}

// BuildNotification renders the in-app message for ev.
func BuildNotification(ev Event, at time.Time) models.Notification {
	recipient := ev.RecipientID
	n := models.Notification{
		ID:          uuid.New(),
		RecipientID: &recipient,
		Payload: datatypes.JSONMap{
			"subject":    string(ev.Subject),
			"subject_id": ev.SubjectID.String(),
			"status":     ev.Status,
		},
		CreatedAt: at,
	}
	if ev.Reason != "" {
		n.Payload["reason"] = ev.Reason
	}

	cancelled := ev.Status == string(models.OrderStatusCancelled)
	switch ev.Subject {
	case SubjectReservation:
		n.Type = models.NotificationReservationStatus
		n.Link = "/reservations/" + ev.SubjectID.String()
		n.Title = "Reservation " + ev.Status
		n.Body = fmt.Sprintf("Your reservation for %s is now %s.", ev.Reference, ev.Status)
		if cancelled {
			n.Type = models.NotificationReservationCancelled
			n.Body = fmt.Sprintf("Your reservation for %s was cancelled: %s", ev.Reference, ev.Reason)
		}
	default:
		n.Type = models.NotificationOrderStatus
		n.Link = "/orders/" + ev.SubjectID.String()
		n.Title = fmt.Sprintf("Order %s %s", ev.Reference, ev.Status)
		n.Body = orderStatusBody(ev.Reference, ev.Status)
		if cancelled {
			n.Type = models.NotificationOrderCancelled
			n.Body = fmt.Sprintf("Order %s was cancelled: %s", ev.Reference, ev.Reason)
		}
	}
	return n
}

func orderStatusBody(number, status string) string {
	switch models.OrderStatus(status) {
	case models.OrderStatusConfirmed:
		return fmt.Sprintf("Order %s has been confirmed and is being prepared.", number)
	case models.OrderStatusReady:
		return fmt.Sprintf("Order %s is ready for pickup.", number)
	case models.OrderStatusCompleted:
		return fmt.Sprintf("Order %s is complete. Enjoy your meal!", number)
	default:
		return fmt.Sprintf("Order %s is now %s.", number, status)
	}
}
