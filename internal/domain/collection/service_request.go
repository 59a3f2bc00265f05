package collection

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WasteType string

const (
	WasteGeneral    WasteType = "GENERAL"
	WasteOrganic    WasteType = "ORGANIC"
	WasteRecyclable WasteType = "RECYCLABLE"
	WasteElectronic WasteType = "ELECTRONIC"
	WasteHazardous  WasteType = "HAZARDOUS"
	WasteBulky      WasteType = "BULKY"
	WasteGarden     WasteType = "GARDEN"
	WasteOther      WasteType = "OTHER"
)

var WasteTypes = []WasteType{
	WasteGeneral, WasteOrganic, WasteRecyclable, WasteElectronic,
	WasteHazardous, WasteBulky, WasteGarden, WasteOther,
}

func (w WasteType) Valid() bool {
	for _, t := range WasteTypes {
		if t == w {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending    Status = StatePending
	StatusAccepted   Status = StateAccepted
	StatusInProgress Status = StateInProgress
	StatusCompleted  Status = StateCompleted
	StatusRejected   Status = StateRejected
	StatusCancelled  Status = StateCancelled
)

var Statuses = []Status{
	StatusPending, StatusAccepted, StatusInProgress,
	StatusCompleted, StatusRejected, StatusCancelled,
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Terminal statuses accept no further events.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// Open covers the statuses counted as outstanding work for a household.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusInProgress
}

type ServiceRequest struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Description     string     `gorm:"not null;column:description" json:"description"`
	WasteType       WasteType  `gorm:"not null;index;column:waste_type" json:"waste_type"`
	EstimatedVolume float64    `gorm:"not null;column:estimated_volume" json:"estimated_volume"`
	PreferredDate   *time.Time `gorm:"column:preferred_date" json:"preferred_date,omitempty"`
	Status          Status     `gorm:"not null;index;column:status" json:"status"`
	Address         string     `gorm:"not null;column:address" json:"address"`
	Phone           string     `gorm:"not null;column:phone" json:"phone"`
	Comment         string     `gorm:"column:comment" json:"comment"`

	HouseholdID    uuid.UUID  `gorm:"type:uuid;not null;index;column:household_id" json:"household_id"`
	CollectorID    *uuid.UUID `gorm:"type:uuid;index;column:collector_id" json:"collector_id,omitempty"`
	MunicipalityID uuid.UUID  `gorm:"type:uuid;not null;index;column:municipality_id" json:"municipality_id"`
	CancelledBy    *uuid.UUID `gorm:"type:uuid;column:cancelled_by" json:"cancelled_by,omitempty"`

	// Version increments on every status write.
	Version int `gorm:"not null;column:version" json:"version"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ServiceRequest) TableName() string { return "service_request" }

func (r *ServiceRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}

// AssignedTo reports whether userID is the collector on the request.
func (r *ServiceRequest) AssignedTo(userID uuid.UUID) bool {
	return r != nil && r.CollectorID != nil && *r.CollectorID == userID
}
