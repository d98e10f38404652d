package handlers

import (
	"net/http"

	"grabbi-loyalty/dtos"
	"grabbi-loyalty/loyalty"
	"grabbi-loyalty/models"
	"grabbi-loyalty/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	Engine *loyalty.Engine
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req dtos.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	items := make([]loyalty.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, loyalty.LineItem{
			ItemID:   it.ItemID,
			Name:     it.Name,
			ImageURL: it.ImageURL,
			Quantity: it.Quantity,
			Price:    it.Price,
		})
	}

	order, err := h.Engine.CreateOrder(c.Request.Context(), loyalty.NewOrder{
		CustomerID:      userID,
		Items:           items,
		PointsRequested: req.PointsToRedeem,
	})
	if err != nil {
		respondError(c, err, "Failed to create order")
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrders lists the caller's orders. Staff may pass customer_id to list
// another customer's orders.
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	customerID := userID
	if q := c.Query("customer_id"); q != "" && isStaff(role) {
		id, err := uuid.Parse(q)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer_id"})
			return
		}
		customerID = id
	}

	orders, err := h.Engine.ListOrders(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err, "Failed to fetch orders")
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

// CancelOrder lets a customer withdraw their own order before the kitchen
// confirms it.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	order, ok := h.ownedOrder(c)
	if !ok {
		return
	}

	var req dtos.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A reason is required to cancel"})
		return
	}

	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusCancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Order can no longer be cancelled"})
		return
	}

	updated, err := h.Engine.TransitionOrder(c.Request.Context(), order.ID, models.OrderStatusCancelled, req.Reason)
	if err != nil {
		respondError(c, err, "Failed to cancel order")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dtos.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	order, err := h.Engine.TransitionOrder(c.Request.Context(), orderID, models.OrderStatus(req.Status), req.Reason)
	if err != nil {
		respondError(c, err, "Failed to update order status")
		return
	}

	c.JSON(http.StatusOK, order)
}

// GetOrderTransitions returns the valid status transitions map for the frontend.
func (h *OrderHandler) GetOrderTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, models.OrderTransitions)
}

func (h *OrderHandler) ownedOrder(c *gin.Context) (*models.Order, bool) {
	userID, role, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	order, err := h.Engine.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "Failed to fetch order")
		return nil, false
	}
	if order.CustomerID != userID && !isStaff(role) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return nil, false
	}
	return order, true
}
