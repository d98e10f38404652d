package loyalty

import (
	"fmt"
	"strings"
	"time"

	"grabbi-loyalty/models"

	"github.com/shopspring/decimal"
)

// Rules holds the accrual amounts, caps and the point value used for redemption.
type Rules struct {
	NewItemPoints  int
	ReviewPoints   int
	ReviewCap      int
	BirthdayPoints int
	ReferralPoints int
	ReferralCap    int
	// PointValue is the currency value of a single point.
	PointValue decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{
		NewItemPoints:  50,
		ReviewPoints:   25,
		ReviewCap:      8,
		BirthdayPoints: 200,
		ReferralPoints: 100,
		ReferralCap:    10,
		PointValue:     decimal.RequireFromString("0.05"),
	}
}

// NewItemBonus awards NewItemPoints for every ordered item the customer has
// never been rewarded for.
func (r Rules) NewItemBonus(rec *models.LoyaltyRecord, itemIDs []string) Delta {
	var fresh []string
	for _, id := range distinctIDs(itemIDs) {
		if !rec.HasTried(id) {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		return Delta{}
	}
	return Delta{
		Points:   r.NewItemPoints * len(fresh),
		Reason:   fmt.Sprintf("Tried %d new item(s)", len(fresh)),
		AddItems: fresh,
	}
}

// ReviewBonus is a zero delta once the review cap is reached.
func (r Rules) ReviewBonus(rec *models.LoyaltyRecord) Delta {
	if rec.ReviewsRewarded >= r.ReviewCap {
		return Delta{}
	}
	return Delta{
		Points:     r.ReviewPoints,
		Reason:     fmt.Sprintf("Submitted review #%d", rec.ReviewsRewarded+1),
		IncReviews: true,
	}
}

func (r Rules) ReferralBonus(rec *models.LoyaltyRecord) Delta {
	if rec.ReferralsRewarded >= r.ReferralCap {
		return Delta{}
	}
	return Delta{
		Points:       r.ReferralPoints,
		Reason:       fmt.Sprintf("Referral reward #%d", rec.ReferralsRewarded+1),
		IncReferrals: true,
	}
}

// BirthdayBonus fires once per calendar year on the customer's birthday.
// A 29 February birthday is celebrated on 28 February in common years.
func (r Rules) BirthdayBonus(rec *models.LoyaltyRecord, birthDate, today time.Time) Delta {
	if birthDate.IsZero() || !IsBirthday(birthDate, today) {
		return Delta{}
	}
	year := today.Year()
	if rec.LastBirthdayRewardYear != nil && *rec.LastBirthdayRewardYear == year {
		return Delta{}
	}
	return Delta{
		Points:       r.BirthdayPoints,
		Reason:       fmt.Sprintf("Happy birthday %d", year),
		BirthdayYear: &year,
	}
}

func IsBirthday(birthDate, today time.Time) bool {
	if birthDate.Month() == today.Month() && birthDate.Day() == today.Day() {
		return true
	}
	return birthDate.Month() == time.February && birthDate.Day() == 29 &&
		today.Month() == time.February && today.Day() == 28 && !isLeap(today.Year())
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func distinctIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
