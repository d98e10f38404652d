package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	HistoryEarned   = "earned"
	HistoryRedeemed = "redeemed"
	HistoryRefunded = "refunded"
)

// LoyaltyHistory is one append-only ledger entry. Points is signed.
// Token carries the caller's idempotency key; it is unique per customer.
type LoyaltyHistory struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CustomerID uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_loyalty_histories_customer_token" json:"customer_id"`
	Points     int        `gorm:"not null" json:"points"`
	Type       string     `gorm:"not null" json:"type"` // "earned", "redeemed" or "refunded"
	Reason     string     `gorm:"not null" json:"reason"`
	Token      *string    `gorm:"uniqueIndex:idx_loyalty_histories_customer_token" json:"-"`
	OrderID    *uuid.UUID `gorm:"type:uuid" json:"order_id,omitempty"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (h *LoyaltyHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// HistoryType classifies a signed delta for display.
func HistoryType(points int, refund bool) string {
	switch {
	case refund:
		return HistoryRefunded
	case points < 0:
		return HistoryRedeemed
	default:
		return HistoryEarned
	}
}
