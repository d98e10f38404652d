package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationOrderStatus          = "order_status"
	NotificationOrderCancelled       = "order_cancelled"
	NotificationReservationStatus    = "reservation_status"
	NotificationReservationCancelled = "reservation_cancelled"
)

// Notification is an in-app message. RecipientID is nil for global notices.
type Notification struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RecipientID *uuid.UUID        `gorm:"type:uuid;index" json:"recipient_id,omitempty"`
	IsGlobal    bool              `gorm:"default:false;index" json:"is_global"`
	Type        string            `gorm:"not null" json:"type"`
	Title       string            `gorm:"not null" json:"title"`
	Body        string            `json:"body"`
	Link        string            `json:"link,omitempty"`
	Payload     datatypes.JSONMap `gorm:"type:jsonb" json:"payload,omitempty"`
	IsRead      bool              `gorm:"default:false" json:"is_read"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
