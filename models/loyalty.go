package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LoyaltyRecord is the per-customer points account. Balance is a cached
// projection of History and must always equal HistoryTotal().
type LoyaltyRecord struct {
	CustomerID             uuid.UUID          `gorm:"type:uuid;primary_key" json:"customer_id"`
	Balance                int                `gorm:"not null;default:0" json:"balance"`
	ReviewsRewarded        int                `gorm:"not null;default:0" json:"reviews_rewarded"`
	ReferralsRewarded      int                `gorm:"not null;default:0" json:"referrals_rewarded"`
	LastBirthdayRewardYear *int               `json:"last_birthday_reward_year,omitempty"`
	History                []LoyaltyHistory   `gorm:"foreignKey:CustomerID;references:CustomerID" json:"history"`
	ItemsTried             []LoyaltyItemTried `gorm:"foreignKey:CustomerID;references:CustomerID" json:"items_tried"`
	CreatedAt              time.Time          `json:"created_at"`
	UpdatedAt              time.Time          `json:"updated_at"`
}

// LoyaltyItemTried marks an item that already earned the new-item bonus.
type LoyaltyItemTried struct {
	CustomerID uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	ItemID     string    `gorm:"primaryKey" json:"item_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func (LoyaltyItemTried) TableName() string {
	return "loyalty_items_tried"
}

// NewLoyaltyRecord returns an empty account for customerID.
func NewLoyaltyRecord(customerID uuid.UUID) *LoyaltyRecord {
	return &LoyaltyRecord{
		CustomerID: customerID,
		History:    []LoyaltyHistory{},
		ItemsTried: []LoyaltyItemTried{},
	}
}

func (r *LoyaltyRecord) HistoryTotal() int {
	total := 0
	for _, h := range r.History {
		total += h.Points
	}
	return total
}

func (r *LoyaltyRecord) HasTried(itemID string) bool {
	for _, it := range r.ItemsTried {
		if it.ItemID == itemID {
			return true
		}
	}
	return false
}

// DistinctItemsTried returns the tried item ids in insertion order.
func (r *LoyaltyRecord) DistinctItemsTried() []string {
	ids := make([]string, 0, len(r.ItemsTried))
	for _, it := range r.ItemsTried {
		ids = append(ids, it.ItemID)
	}
	return ids
}

// HasToken reports whether a history entry already carries token.
func (r *LoyaltyRecord) HasToken(token string) bool {
	if token == "" {
		return false
	}
	for _, h := range r.History {
		if h.Token != nil && *h.Token == token {
			return true
		}
	}
	return false
}

// Validate checks the record invariants at the store boundary.
func (r *LoyaltyRecord) Validate() error {
	if r.CustomerID == uuid.Nil {
		return fmt.Errorf("loyalty record has no customer id")
	}
	if total := r.HistoryTotal(); r.Balance != total {
		return fmt.Errorf("loyalty record %s: balance %d does not match history total %d", r.CustomerID, r.Balance, total)
	}
	if r.Balance < 0 {
		return fmt.Errorf("loyalty record %s: negative balance %d", r.CustomerID, r.Balance)
	}
	if r.ReviewsRewarded < 0 || r.ReferralsRewarded < 0 {
		return fmt.Errorf("loyalty record %s: negative counter", r.CustomerID)
	}
	return nil
}
