package support

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
)

var transitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusResolved, StatusClosed},
	StatusInProgress: {StatusResolved, StatusClosed},
	StatusResolved:   {StatusClosed, StatusInProgress},
	StatusClosed:     nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanMoveTo reports whether a dispute in s may be moved to next.
// RESOLVED may be reopened to IN_PROGRESS; CLOSED is final.
func (s Status) CanMoveTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

type Dispute struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title            string     `gorm:"not null;column:title" json:"title"`
	Description      string     `gorm:"not null;column:description" json:"description"`
	Status           Status     `gorm:"not null;index;column:status" json:"status"`
	ResolutionNote   string     `gorm:"column:resolution_note" json:"resolution_note"`
	IsRead           bool       `gorm:"not null;column:is_read" json:"is_read"`
	RaisedByID       uuid.UUID  `gorm:"type:uuid;not null;index;column:raised_by_id" json:"raised_by_id"`
	ServiceRequestID *uuid.UUID `gorm:"type:uuid;index;column:service_request_id" json:"service_request_id,omitempty"`
	PaymentID        *uuid.UUID `gorm:"type:uuid;index;column:payment_id" json:"payment_id,omitempty"`
	// MunicipalityID is where the dispute arose; nil when raised by an admin with no linked request.
	MunicipalityID *uuid.UUID `gorm:"type:uuid;index;column:municipality_id" json:"municipality_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Dispute) TableName() string { return "dispute" }

func (d *Dispute) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
