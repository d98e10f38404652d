package handlers

import (
	"net/http"
	"strconv"

	"grabbi-loyalty/loyalty"
	"grabbi-loyalty/models"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	Store loyalty.NotificationStore
}

// GetNotifications returns the caller's notifications and global notices,
// newest first.
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 200"})
			return
		}
		limit = n
	}

	list, err := h.Store.ListNotifications(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, err, "Failed to fetch notifications")
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	c.JSON(http.StatusOK, list)
}
