package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Method string

const (
	MethodCash         Method = "CASH"
	MethodCard         Method = "CARD"
	MethodMobileMoney  Method = "MOBILE_MONEY"
	MethodBankTransfer Method = "BANK_TRANSFER"
)

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodMobileMoney, MethodBankTransfer:
		return true
	}
	return false
}

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusSuccessful Status = "SUCCESSFUL"
	StatusFailed     Status = "FAILED"
	StatusRefunded   Status = "REFUNDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccessful, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

type Payment struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Amount           float64    `gorm:"not null;column:amount" json:"amount"`
	Method           Method     `gorm:"not null;column:method" json:"method"`
	Status           Status     `gorm:"not null;index;column:status" json:"status"`
	PaymentDate      time.Time  `gorm:"not null;index;column:payment_date" json:"payment_date"`
	TransactionRef   string     `gorm:"uniqueIndex;not null;column:transaction_ref" json:"transaction_ref"`
	ExternalRef      string     `gorm:"column:external_ref" json:"external_ref,omitempty"`
	HouseholdID      uuid.UUID  `gorm:"type:uuid;not null;index;column:household_id" json:"household_id"`
	ServiceRequestID uuid.UUID  `gorm:"type:uuid;not null;index;column:service_request_id" json:"service_request_id"`
	CollectorID      *uuid.UUID `gorm:"type:uuid;index;column:collector_id" json:"collector_id,omitempty"`
	MunicipalityID   uuid.UUID  `gorm:"type:uuid;not null;index;column:municipality_id" json:"municipality_id"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Payment) TableName() string { return "payment" }

func (p *Payment) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
