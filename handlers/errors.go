package handlers

import (
	"errors"
	"net/http"

	"grabbi-loyalty/loyalty"
	"grabbi-loyalty/models"
	"grabbi-loyalty/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// respondError maps engine errors to HTTP statuses. Unknown errors are
// logged and reported with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, loyalty.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, loyalty.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, loyalty.ErrMissingReason):
		c.JSON(http.StatusBadRequest, gin.H{"error": "A reason is required to cancel"})
	case errors.Is(err, loyalty.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, loyalty.ErrInsufficientPoints):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Insufficient loyalty points"})
	case errors.Is(err, loyalty.ErrStoreUnavailable):
		utils.Logger().Error("store unavailable", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
	default:
		utils.Logger().Error(fallback, zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

// currentUser reads the identity set by middleware.AuthMiddleware.
func currentUser(c *gin.Context) (uuid.UUID, string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, "", false
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, "", false
	}
	role, _ := c.Get("user_role")
	roleStr, _ := role.(string)
	return id, roleStr, true
}

func isStaff(role string) bool {
	return role == models.RoleStaff || role == models.RoleAdmin
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + param})
		return uuid.Nil, false
	}
	return id, true
}
