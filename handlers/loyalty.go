package handlers

import (
	"context"
	"net/http"

	"grabbi-loyalty/dtos"
	"grabbi-loyalty/loyalty"
	"grabbi-loyalty/models"
	"grabbi-loyalty/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UserDirectory looks up account details the ledger does not own.
type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type LoyaltyHandler struct {
	Engine *loyalty.Engine
	Users  UserDirectory
}

// GetLoyalty returns the caller's balance, history and tried items.
func (h *LoyaltyHandler) GetLoyalty(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	rec, err := h.Engine.GetLoyaltyRecord(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch loyalty record")
		return
	}

	rules := h.Engine.Rules()
	c.JSON(http.StatusOK, gin.H{
		"balance":            rec.Balance,
		"history":            rec.History,
		"items_tried":        rec.DistinctItemsTried(),
		"reviews_rewarded":   rec.ReviewsRewarded,
		"reviews_remaining":  max(rules.ReviewCap-rec.ReviewsRewarded, 0),
		"referrals_rewarded": rec.ReferralsRewarded,
		"point_value":        rules.PointValue,
	})
}

func (h *LoyaltyHandler) QuoteRedemption(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req dtos.RedemptionQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	ctx := c.Request.Context()
	rec, err := h.Engine.GetLoyaltyRecord(ctx, userID)
	if err != nil {
		respondError(c, err, "Failed to fetch loyalty record")
		return
	}
	quote, err := h.Engine.ComputeRedemption(ctx, userID, req.Points, req.Subtotal)
	if err != nil {
		respondError(c, err, "Failed to compute redemption")
		return
	}

	c.JSON(http.StatusOK, dtos.RedemptionQuoteResponse{
		Balance:       rec.Balance,
		PointsApplied: quote.PointsApplied,
		Discount:      quote.Discount,
		Total:         req.Subtotal.Sub(quote.Discount),
	})
}

func (h *LoyaltyHandler) RewardReview(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req dtos.ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	points, err := h.Engine.AwardReviewBonus(c.Request.Context(), userID, "review:"+req.ReviewID)
	h.respondAward(c, userID, points, err)
}

// RewardBirthday credits the birthday bonus when today is the caller's
// birthday. Other days award nothing.
func (h *LoyaltyHandler) RewardBirthday(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	user, err := h.Users.GetUser(ctx, userID)
	if err != nil {
		respondError(c, err, "Failed to fetch user")
		return
	}
	if user.BirthDate == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Birth date is not set on your profile"})
		return
	}

	points, err := h.Engine.AwardBirthdayBonus(ctx, userID, *user.BirthDate, h.Engine.Now())
	h.respondAward(c, userID, points, err)
}

// RewardReferral is an admin action crediting the referrer once per
// referred customer.
func (h *LoyaltyHandler) RewardReferral(c *gin.Context) {
	customerID, ok := parseID(c, "customer_id")
	if !ok {
		return
	}

	var req dtos.ReferralRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	referred, err := uuid.Parse(req.ReferredCustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid referred_customer_id"})
		return
	}
	if referred == customerID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A customer cannot refer themselves"})
		return
	}

	points, err := h.Engine.AwardReferralBonus(c.Request.Context(), customerID, "referral:"+referred.String())
	h.respondAward(c, customerID, points, err)
}

func (h *LoyaltyHandler) respondAward(c *gin.Context, customerID uuid.UUID, points int, err error) {
	if err != nil {
		respondError(c, err, "Failed to award points")
		return
	}
	rec, err := h.Engine.GetLoyaltyRecord(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err, "Failed to fetch loyalty record")
		return
	}
	c.JSON(http.StatusOK, dtos.AwardResponse{PointsAwarded: points, Balance: rec.Balance})
}
