package dtos

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemRequest is one cart line. Price is the checkout price the client
// was shown; it is copied onto the order as a snapshot.
type OrderItemRequest struct {
	ItemID   string          `json:"item_id" binding:"required"`
	Name     string          `json:"name" binding:"required"`
	ImageURL string          `json:"image_url"`
	Quantity int             `json:"quantity" binding:"required,gt=0"`
	Price    decimal.Decimal `json:"price"`
}

type CreateOrderRequest struct {
	Items []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	// PointsToRedeem of -1 applies as many points as the order allows.
	PointsToRedeem int `json:"points_to_redeem" binding:"gte=-1"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type CreateReservationRequest struct {
	PartySize   int       `json:"party_size" binding:"required,gte=1"`
	ReservedFor time.Time `json:"reserved_for" binding:"required"`
	Notes       string    `json:"notes"`
}
