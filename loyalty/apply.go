package loyalty

import (
	"fmt"
	"time"

	"grabbi-loyalty/models"

	"github.com/google/uuid"
)

// Applied is what one effective ApplyDelta wrote.
type Applied struct {
	Entry    *models.LoyaltyHistory
	NewItems []models.LoyaltyItemTried
}

// Apply runs plan against rec and mutates rec in place. Stores call it inside
// their atomic section and then persist the result. A nil Applied means the
// delta was zero or its token was already recorded.
func Apply(rec *models.LoyaltyRecord, plan DeltaFunc, at time.Time) (*Applied, error) {
	rec.Balance = rec.HistoryTotal()

	d, err := plan(rec)
	if err != nil {
		return nil, err
	}
	if d.IsZero() || rec.HasToken(d.Token) {
		return nil, nil
	}
	if rec.Balance+d.Points < 0 {
		return nil, fmt.Errorf("%w: balance %d, delta %d", ErrInsufficientPoints, rec.Balance, d.Points)
	}

	entry := models.LoyaltyHistory{
		ID:         uuid.New(),
		CustomerID: rec.CustomerID,
		Points:     d.Points,
		Type:       models.HistoryType(d.Points, d.Refund),
		Reason:     d.Reason,
		OrderID:    d.OrderID,
		CreatedAt:  at,
	}
	if d.Token != "" {
		token := d.Token
		entry.Token = &token
	}
	rec.History = append(rec.History, entry)
	rec.Balance += d.Points

	var added []models.LoyaltyItemTried
	for _, id := range distinctIDs(d.AddItems) {
		if rec.HasTried(id) {
			continue
		}
		item := models.LoyaltyItemTried{CustomerID: rec.CustomerID, ItemID: id, CreatedAt: at}
		rec.ItemsTried = append(rec.ItemsTried, item)
		added = append(added, item)
	}
	if d.IncReviews {
		rec.ReviewsRewarded++
	}
	if d.IncReferrals {
		rec.ReferralsRewarded++
	}
	if d.BirthdayYear != nil {
		year := *d.BirthdayYear
		rec.LastBirthdayRewardYear = &year
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = at
	}
	rec.UpdatedAt = at

	return &Applied{Entry: &entry, NewItems: added}, nil
}
