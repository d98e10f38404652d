package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID                 uuid.UUID            `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CustomerID         uuid.UUID            `gorm:"type:uuid;not null;index" json:"customer_id"`
	OrderNumber        string               `gorm:"uniqueIndex;not null" json:"order_number"`
	Status             OrderStatus          `gorm:"not null;default:pending;index" json:"status"`
	Subtotal           decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Discount           decimal.Decimal      `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	Total              decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"total"`
	PointsApplied      int                  `gorm:"not null;default:0" json:"points_applied"`
	PointsCommitted    bool                 `gorm:"not null;default:false" json:"points_committed"`
	CancellationReason *string              `json:"cancellation_reason,omitempty"`
	Items              []OrderItem          `gorm:"foreignKey:OrderID" json:"items"`
	Timeline           []OrderTimelineEntry `gorm:"foreignKey:OrderID" json:"timeline"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

// OrderItem is a snapshot of the catalog item at order time. It is never a
// live reference, so later catalog edits leave historical orders untouched.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ItemID    string          `gorm:"not null;index" json:"item_id"`
	Name      string          `json:"name"`      // Snapshot of item name at time of order
	ImageURL  string          `json:"image_url"` // Snapshot of primary image at time of order
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderTimelineEntry is one status change. Seq orders the entries of an
// order; timestamps alone can tie.
type OrderTimelineEntry struct {
	ID        uuid.UUID   `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrderID   uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_order_timeline_seq" json:"order_id"`
	Seq       int         `gorm:"not null;uniqueIndex:idx_order_timeline_seq" json:"seq"`
	Status    OrderStatus `gorm:"not null" json:"status"`
	Reason    string      `json:"reason,omitempty"`
	CreatedAt time.Time   `gorm:"index" json:"created_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = NewOrderNumber()
	}
	return nil
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (e *OrderTimelineEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// ItemIDs returns the distinct catalog ids on the order.
func (o *Order) ItemIDs() []string {
	seen := make(map[string]bool, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		if it.ItemID == "" || seen[it.ItemID] {
			continue
		}
		seen[it.ItemID] = true
		ids = append(ids, it.ItemID)
	}
	return ids
}

// LastTimelineStatus returns the most recent timeline status, or "" when empty.
func (o *Order) LastTimelineStatus() OrderStatus {
	if len(o.Timeline) == 0 {
		return ""
	}
	return o.Timeline[len(o.Timeline)-1].Status
}

// OrderTransitions defines the valid order status state machine.
var OrderTransitions = Transitions[OrderStatus]{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusReady, OrderStatusCancelled},
	OrderStatusReady:     {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted: {},
	OrderStatusCancelled: {},
}

// IsValidTransition checks if a status transition is allowed.
func IsValidTransition(from, to OrderStatus) bool {
	return OrderTransitions.Allows(from, to)
}
