package handlers

import (
	"net/http"

	"grabbi-loyalty/dtos"
	"grabbi-loyalty/loyalty"
	"grabbi-loyalty/models"
	"grabbi-loyalty/utils"

	"github.com/gin-gonic/gin"
)

type ReservationHandler struct {
	Engine *loyalty.Engine
}

func (h *ReservationHandler) CreateReservation(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req dtos.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	if !req.ReservedFor.After(h.Engine.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reserved_for must be in the future"})
		return
	}

	r, err := h.Engine.CreateReservation(c.Request.Context(), loyalty.NewReservation{
		CustomerID:  userID,
		PartySize:   req.PartySize,
		ReservedFor: req.ReservedFor,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err, "Failed to create reservation")
		return
	}

	c.JSON(http.StatusCreated, r)
}

func (h *ReservationHandler) GetReservations(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	list, err := h.Engine.ListReservations(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "Failed to fetch reservations")
		return
	}
	if list == nil {
		list = []models.Reservation{}
	}
	c.JSON(http.StatusOK, list)
}

func (h *ReservationHandler) GetReservation(c *gin.Context) {
	r, ok := h.ownedReservation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) CancelReservation(c *gin.Context) {
	r, ok := h.ownedReservation(c)
	if !ok {
		return
	}

	var req dtos.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A reason is required to cancel"})
		return
	}

	updated, err := h.Engine.TransitionReservation(c.Request.Context(), r.ID, models.ReservationStatusCancelled, req.Reason)
	if err != nil {
		respondError(c, err, "Failed to cancel reservation")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *ReservationHandler) UpdateReservationStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dtos.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	r, err := h.Engine.TransitionReservation(c.Request.Context(), id, models.ReservationStatus(req.Status), req.Reason)
	if err != nil {
		respondError(c, err, "Failed to update reservation status")
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) ownedReservation(c *gin.Context) (*models.Reservation, bool) {
	userID, role, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	r, err := h.Engine.GetReservation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to fetch reservation")
		return nil, false
	}
	if r.CustomerID != userID && !isStaff(role) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return nil, false
	}
	return r, true
}
