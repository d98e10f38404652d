package dtos

import (
	"github.com/shopspring/decimal"
)

type RedemptionQuoteRequest struct {
	Points   int             `json:"points" binding:"gte=-1"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type RedemptionQuoteResponse struct {
	Balance       int             `json:"balance"`
	PointsApplied int             `json:"points_applied"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
}

// ReviewRequest identifies the review being rewarded so retries do not pay twice.
type ReviewRequest struct {
	ReviewID string `json:"review_id" binding:"required"`
}

type ReferralRequest struct {
	ReferredCustomerID string `json:"referred_customer_id" binding:"required,uuid"`
}

type AwardResponse struct {
	PointsAwarded int `json:"points_awarded"`
	Balance       int `json:"balance"`
}
