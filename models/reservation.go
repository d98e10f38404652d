package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationStatus string

const (
	ReservationStatusUpcoming  ReservationStatus = "upcoming"
	ReservationStatusCompleted ReservationStatus = "completed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

type Reservation struct {
	ID                 uuid.UUID                  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CustomerID         uuid.UUID                  `gorm:"type:uuid;not null;index" json:"customer_id"`
	PartySize          int                        `gorm:"not null" json:"party_size"`
	ReservedFor        time.Time                  `gorm:"not null;index" json:"reserved_for"`
	Notes              string                     `json:"notes"`
	Status             ReservationStatus          `gorm:"not null;default:upcoming;index" json:"status"`
	CancellationReason *string                    `json:"cancellation_reason,omitempty"`
	Timeline           []ReservationTimelineEntry `gorm:"foreignKey:ReservationID" json:"timeline"`
	CreatedAt          time.Time                  `json:"created_at"`
	UpdatedAt          time.Time                  `json:"updated_at"`
}

type ReservationTimelineEntry struct {
	ID            uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ReservationID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_reservation_timeline_seq" json:"reservation_id"`
	Seq           int               `gorm:"not null;uniqueIndex:idx_reservation_timeline_seq" json:"seq"`
	Status        ReservationStatus `gorm:"not null" json:"status"`
	Reason        string            `json:"reason,omitempty"`
	CreatedAt     time.Time         `gorm:"index" json:"created_at"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (e *ReservationTimelineEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (r *Reservation) LastTimelineStatus() ReservationStatus {
	if len(r.Timeline) == 0 {
		return ""
	}
	return r.Timeline[len(r.Timeline)-1].Status
}

// ReservationTransitions is the two-step variant of the order machine.
var ReservationTransitions = Transitions[ReservationStatus]{
	ReservationStatusUpcoming:  {ReservationStatusCompleted, ReservationStatusCancelled},
	ReservationStatusCompleted: {},
	ReservationStatusCancelled: {},
}
