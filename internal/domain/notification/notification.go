package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Type string

const (
	TypeAlert                Type = "ALERT"
	TypeInfo                 Type = "INFO"
	TypeReminder             Type = "REMINDER"
	TypeServiceRequestUpdate Type = "SERVICE_REQUEST_UPDATE"
	TypeSystemMessage        Type = "SYSTEM_MESSAGE"
	TypePaymentConfirmation  Type = "PAYMENT_CONFIRMATION"
	TypeDisputeUpdate        Type = "DISPUTE_UPDATE"
)

func (t Type) Valid() bool {
	switch t {
	case TypeAlert, TypeInfo, TypeReminder, TypeServiceRequestUpdate,
		TypeSystemMessage, TypePaymentConfirmation, TypeDisputeUpdate:
		return true
	}
	return false
}

// Emailed reports whether the type also goes out as an email copy.
func (t Type) Emailed() bool {
	return t == TypeAlert || t == TypeReminder
}

type Notification struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID      uuid.UUID      `gorm:"type:uuid;not null;index;column:recipient_id" json:"recipient_id"`
	Subject          string         `gorm:"not null;column:subject" json:"subject"`
	Message          string         `gorm:"not null;column:message" json:"message"`
	Type             Type           `gorm:"not null;column:type" json:"type"`
	IsRead           bool           `gorm:"not null;index;column:is_read" json:"is_read"`
	ReadAt           *time.Time     `gorm:"column:read_at" json:"read_at,omitempty"`
	ServiceRequestID *uuid.UUID     `gorm:"type:uuid;index;column:service_request_id" json:"service_request_id,omitempty"`
	PaymentID        *uuid.UUID     `gorm:"type:uuid;column:payment_id" json:"payment_id,omitempty"`
	DisputeID        *uuid.UUID     `gorm:"type:uuid;column:dispute_id" json:"dispute_id,omitempty"`
	Metadata         datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
