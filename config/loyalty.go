package config

import (
	"fmt"

	"grabbi-loyalty/loyalty"

	"github.com/shopspring/decimal"
)

// LoadLoyaltyConfig builds the accrual rules from LOYALTY_* variables.
// Unset variables keep the defaults.
func LoadLoyaltyConfig() (loyalty.Rules, error) {
	rules := loyalty.DefaultRules()
	rules.NewItemPoints = envInt("LOYALTY_NEW_ITEM_POINTS", rules.NewItemPoints)
	rules.ReviewPoints = envInt("LOYALTY_REVIEW_POINTS", rules.ReviewPoints)
	rules.ReviewCap = envInt("LOYALTY_REVIEW_CAP", rules.ReviewCap)
	rules.BirthdayPoints = envInt("LOYALTY_BIRTHDAY_POINTS", rules.BirthdayPoints)
	rules.ReferralPoints = envInt("LOYALTY_REFERRAL_POINTS", rules.ReferralPoints)
	rules.ReferralCap = envInt("LOYALTY_REFERRAL_CAP", rules.ReferralCap)

	if v := GetEnv("LOYALTY_POINT_VALUE", ""); v != "" {
		pv, err := decimal.NewFromString(v)
		if err != nil {
			return rules, fmt.Errorf("invalid LOYALTY_POINT_VALUE %q: %w", v, err)
		}
		rules.PointValue = pv
	}
	if !rules.PointValue.IsPositive() {
		return rules, fmt.Errorf("LOYALTY_POINT_VALUE must be positive, got %s", rules.PointValue)
	}
	for name, n := range map[string]int{
		"LOYALTY_NEW_ITEM_POINTS": rules.NewItemPoints,
		"LOYALTY_REVIEW_POINTS":   rules.ReviewPoints,
		"LOYALTY_REVIEW_CAP":      rules.ReviewCap,
		"LOYALTY_BIRTHDAY_POINTS": rules.BirthdayPoints,
		"LOYALTY_REFERRAL_POINTS": rules.ReferralPoints,
		"LOYALTY_REFERRAL_CAP":    rules.ReferralCap,
	} {
		if n < 0 {
			return rules, fmt.Errorf("%s must not be negative, got %d", name, n)
		}
	}
	return rules, nil
}
