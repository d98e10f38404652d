package firebase

import (
	"fmt"
	"time"

	"grabbi-loyalty/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Firestore documents embed their history and timelines, so one document
// read or write covers a whole record. Money is stored as decimal strings.

type historyDoc struct {
	ID        string    `firestore:"id"`
	Points    int       `firestore:"points"`
	Type      string    `firestore:"type"`
	Reason    string    `firestore:"reason"`
	Token     string    `firestore:"token,omitempty"`
	OrderID   string    `firestore:"order_id,omitempty"`
	CreatedAt time.Time `firestore:"created_at"`
}

type itemTriedDoc struct {
	ItemID    string    `firestore:"item_id"`
	CreatedAt time.Time `firestore:"created_at"`
}

type loyaltyDoc struct {
	Balance                int            `firestore:"balance"`
	ReviewsRewarded        int            `firestore:"reviews_rewarded"`
	ReferralsRewarded      int            `firestore:"referrals_rewarded"`
	LastBirthdayRewardYear *int           `firestore:"last_birthday_reward_year"`
	History                []historyDoc   `firestore:"history"`
	ItemsTried             []itemTriedDoc `firestore:"items_tried"`
	CreatedAt              time.Time      `firestore:"created_at"`
	UpdatedAt              time.Time      `firestore:"updated_at"`
}

type orderItemDoc struct {
	ID        string    `firestore:"id"`
	ItemID    string    `firestore:"item_id"`
	Name      string    `firestore:"name"`
	ImageURL  string    `firestore:"image_url"`
	Quantity  int       `firestore:"quantity"`
	Price     string    `firestore:"price"`
	CreatedAt time.Time `firestore:"created_at"`
}

type timelineDoc struct {
	ID        string    `firestore:"id"`
	Status    string    `firestore:"status"`
	Reason    string    `firestore:"reason,omitempty"`
	CreatedAt time.Time `firestore:"created_at"`
}

type orderDoc struct {
	CustomerID         string         `firestore:"customer_id"`
	OrderNumber        string         `firestore:"order_number"`
	Status             string         `firestore:"status"`
	Subtotal           string         `firestore:"subtotal"`
	Discount           string         `firestore:"discount"`
	Total              string         `firestore:"total"`
	PointsApplied      int            `firestore:"points_applied"`
	PointsCommitted    bool           `firestore:"points_committed"`
	CancellationReason *string        `firestore:"cancellation_reason"`
	Items              []orderItemDoc `firestore:"items"`
	Timeline           []timelineDoc  `firestore:"timeline"`
	CreatedAt          time.Time      `firestore:"created_at"`
	UpdatedAt          time.Time      `firestore:"updated_at"`
}

type reservationDoc struct {
	CustomerID         string        `firestore:"customer_id"`
	PartySize          int           `firestore:"party_size"`
	ReservedFor        time.Time     `firestore:"reserved_for"`
	Notes              string        `firestore:"notes"`
	Status             string        `firestore:"status"`
	CancellationReason *string       `firestore:"cancellation_reason"`
	Timeline           []timelineDoc `firestore:"timeline"`
	CreatedAt          time.Time     `firestore:"created_at"`
	UpdatedAt          time.Time     `firestore:"updated_at"`
}

type notificationDoc struct {
	RecipientID string                 `firestore:"recipient_id"`
	IsGlobal    bool                   `firestore:"is_global"`
	Type        string                 `firestore:"type"`
	Title       string                 `firestore:"title"`
	Body        string                 `firestore:"body"`
	Link        string                 `firestore:"link"`
	Payload     map[string]interface{} `firestore:"payload"`
	IsRead      bool                   `firestore:"is_read"`
	CreatedAt   time.Time              `firestore:"created_at"`
}

func toLoyaltyDoc(rec *models.LoyaltyRecord) loyaltyDoc {
	doc := loyaltyDoc{
		Balance:                rec.Balance,
		ReviewsRewarded:        rec.ReviewsRewarded,
		ReferralsRewarded:      rec.ReferralsRewarded,
		LastBirthdayRewardYear: rec.LastBirthdayRewardYear,
		History:                make([]historyDoc, 0, len(rec.History)),
		ItemsTried:             make([]itemTriedDoc, 0, len(rec.ItemsTried)),
		CreatedAt:              rec.CreatedAt,
		UpdatedAt:              rec.UpdatedAt,
	}
	for _, h := range rec.History {
		hd := historyDoc{ID: h.ID.String(), Points: h.Points, Type: h.Type, Reason: h.Reason, CreatedAt: h.CreatedAt}
		if h.Token != nil {
			hd.Token = *h.Token
		}
		if h.OrderID != nil {
			hd.OrderID = h.OrderID.String()
		}
		doc.History = append(doc.History, hd)
	}
	for _, it := range rec.ItemsTried {
		doc.ItemsTried = append(doc.ItemsTried, itemTriedDoc{ItemID: it.ItemID, CreatedAt: it.CreatedAt})
	}
	return doc
}

func fromLoyaltyDoc(customerID uuid.UUID, doc loyaltyDoc) (*models.LoyaltyRecord, error) {
	rec := models.NewLoyaltyRecord(customerID)
	rec.Balance = doc.Balance
	rec.ReviewsRewarded = doc.ReviewsRewarded
	rec.ReferralsRewarded = doc.ReferralsRewarded
	rec.LastBirthdayRewardYear = doc.LastBirthdayRewardYear
	rec.CreatedAt = doc.CreatedAt
	rec.UpdatedAt = doc.UpdatedAt
	for _, hd := range doc.History {
		id, err := uuid.Parse(hd.ID)
		if err != nil {
			return nil, fmt.Errorf("loyalty %s: history id: %w", customerID, err)
		}
		h := models.LoyaltyHistory{
			ID: id, CustomerID: customerID, Points: hd.Points, Type: hd.Type,
			Reason: hd.Reason, CreatedAt: hd.CreatedAt,
		}
		if hd.Token != "" {
			token := hd.Token
			h.Token = &token
		}
		if hd.OrderID != "" {
			orderID, err := uuid.Parse(hd.OrderID)
			if err != nil {
				return nil, fmt.Errorf("loyalty %s: history order id: %w", customerID, err)
			}
			h.OrderID = &orderID
		}
		rec.History = append(rec.History, h)
	}
	for _, it := range doc.ItemsTried {
		rec.ItemsTried = append(rec.ItemsTried, models.LoyaltyItemTried{CustomerID: customerID, ItemID: it.ItemID, CreatedAt: it.CreatedAt})
	}
	return rec, nil
}

func toOrderDoc(o *models.Order) orderDoc {
	doc := orderDoc{
		CustomerID:         o.CustomerID.String(),
		OrderNumber:        o.OrderNumber,
		Status:             string(o.Status),
		Subtotal:           o.Subtotal.String(),
		Discount:           o.Discount.String(),
		Total:              o.Total.String(),
		PointsApplied:      o.PointsApplied,
		PointsCommitted:    o.PointsCommitted,
		CancellationReason: o.CancellationReason,
		Items:              make([]orderItemDoc, 0, len(o.Items)),
		Timeline:           make([]timelineDoc, 0, len(o.Timeline)),
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	for _, it := range o.Items {
		doc.Items = append(doc.Items, orderItemDoc{
			ID: it.ID.String(), ItemID: it.ItemID, Name: it.Name, ImageURL: it.ImageURL,
			Quantity: it.Quantity, Price: it.Price.String(), CreatedAt: it.CreatedAt,
		})
	}
	for _, e := range o.Timeline {
		doc.Timeline = append(doc.Timeline, timelineDoc{ID: e.ID.String(), Status: string(e.Status), Reason: e.Reason, CreatedAt: e.CreatedAt})
	}
	return doc
}

func fromOrderDoc(id uuid.UUID, doc orderDoc) (*models.Order, error) {
	customerID, err := uuid.Parse(doc.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("order %s: customer id: %w", id, err)
	}
	o := &models.Order{
		ID:                 id,
		CustomerID:         customerID,
		OrderNumber:        doc.OrderNumber,
		Status:             models.OrderStatus(doc.Status),
		PointsApplied:      doc.PointsApplied,
		PointsCommitted:    doc.PointsCommitted,
		CancellationReason: doc.CancellationReason,
		Items:              make([]models.OrderItem, 0, len(doc.Items)),
		Timeline:           make([]models.OrderTimelineEntry, 0, len(doc.Timeline)),
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
	if o.Subtotal, err = decimal.NewFromString(doc.Subtotal); err != nil {
		return nil, fmt.Errorf("order %s: subtotal: %w", id, err)
	}
	if o.Discount, err = decimal.NewFromString(doc.Discount); err != nil {
		return nil, fmt.Errorf("order %s: discount: %w", id, err)
	}
	if o.Total, err = decimal.NewFromString(doc.Total); err != nil {
		return nil, fmt.Errorf("order %s: total: %w", id, err)
	}
	for _, it := range doc.Items {
		price, err := decimal.NewFromString(it.Price)
		if err != nil {
			return nil, fmt.Errorf("order %s: item price: %w", id, err)
		}
		itemID, _ := uuid.Parse(it.ID)
		o.Items = append(o.Items, models.OrderItem{
			ID: itemID, OrderID: id, ItemID: it.ItemID, Name: it.Name, ImageURL: it.ImageURL,
			Quantity: it.Quantity, Price: price, CreatedAt: it.CreatedAt,
		})
	}
	for i, e := range doc.Timeline {
		entryID, _ := uuid.Parse(e.ID)
		o.Timeline = append(o.Timeline, models.OrderTimelineEntry{
			ID: entryID, OrderID: id, Seq: i + 1, Status: models.OrderStatus(e.Status), Reason: e.Reason, CreatedAt: e.CreatedAt,
		})
	}
	return o, nil
}

func toReservationDoc(r *models.Reservation) reservationDoc {
	doc := reservationDoc{
		CustomerID:         r.CustomerID.String(),
		PartySize:          r.PartySize,
		ReservedFor:        r.ReservedFor,
		Notes:              r.Notes,
		Status:             string(r.Status),
		CancellationReason: r.CancellationReason,
		Timeline:           make([]timelineDoc, 0, len(r.Timeline)),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	for _, e := range r.Timeline {
		doc.Timeline = append(doc.Timeline, timelineDoc{ID: e.ID.String(), Status: string(e.Status), Reason: e.Reason, CreatedAt: e.CreatedAt})
	}
	return doc
}

func fromReservationDoc(id uuid.UUID, doc reservationDoc) (*models.Reservation, error) {
	customerID, err := uuid.Parse(doc.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("reservation %s: customer id: %w", id, err)
	}
	r := &models.Reservation{
		ID:                 id,
		CustomerID:         customerID,
		PartySize:          doc.PartySize,
		ReservedFor:        doc.ReservedFor,
		Notes:              doc.Notes,
		Status:             models.ReservationStatus(doc.Status),
		CancellationReason: doc.CancellationReason,
		Timeline:           make([]models.ReservationTimelineEntry, 0, len(doc.Timeline)),
		CreatedAt:          doc.CreatedAt,
		UpdatedAt:          doc.UpdatedAt,
	}
	for i, e := range doc.Timeline {
		entryID, _ := uuid.Parse(e.ID)
		r.Timeline = append(r.Timeline, models.ReservationTimelineEntry{
			ID: entryID, ReservationID: id, Seq: i + 1, Status: models.ReservationStatus(e.Status), Reason: e.Reason, CreatedAt: e.CreatedAt,
		})
	}
	return r, nil
}

func toNotificationDoc(n *models.Notification) notificationDoc {
	doc := notificationDoc{
		IsGlobal:  n.IsGlobal,
		Type:      n.Type,
		Title:     n.Title,
		Body:      n.Body,
		Link:      n.Link,
		Payload:   map[string]interface{}(n.Payload),
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.RecipientID != nil {
		doc.RecipientID = n.RecipientID.String()
	}
	return doc
}

func fromNotificationDoc(id uuid.UUID, doc notificationDoc) models.Notification {
	n := models.Notification{
		ID:        id,
		IsGlobal:  doc.IsGlobal,
		Type:      doc.Type,
		Title:     doc.Title,
		Body:      doc.Body,
		Link:      doc.Link,
		Payload:   doc.Payload,
		IsRead:    doc.IsRead,
		CreatedAt: doc.CreatedAt,
	}
	if recipient, err := uuid.Parse(doc.RecipientID); err == nil {
		n.RecipientID = &recipient
	}
	return n
}
