package collection

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WasteCollection is the record of a performed pickup. One per completed ServiceRequest.
type WasteCollection struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceRequestID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:service_request_id" json:"service_request_id"`
	CollectorID      uuid.UUID `gorm:"type:uuid;not null;index;column:collector_id" json:"collector_id"`
	HouseholdID      uuid.UUID `gorm:"type:uuid;not null;index;column:household_id" json:"household_id"`
	MunicipalityID   uuid.UUID `gorm:"type:uuid;not null;index;column:municipality_id" json:"municipality_id"`
	WasteType        WasteType `gorm:"not null;column:waste_type" json:"waste_type"`
	CollectionDate   time.Time `gorm:"not null;index;column:collection_date" json:"collection_date"`
	ActualWeight     float64   `gorm:"not null;column:actual_weight" json:"actual_weight"`
	Latitude         float64   `gorm:"column:latitude" json:"latitude"`
	Longitude        float64   `gorm:"column:longitude" json:"longitude"`
	Address          string    `gorm:"column:address" json:"address"`
	CollectorComment string    `gorm:"column:collector_comment" json:"collector_comment"`
	Status           Status    `gorm:"not null;column:status" json:"status"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (WasteCollection) TableName() string { return "waste_collection" }

func (w *WasteCollection) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// CollectorRating is the single store of household feedback on a completed request.
type CollectorRating struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceRequestID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex;column:service_request_id" json:"service_request_id"`
	CollectorID      uuid.UUID `gorm:"type:uuid;not null;index;column:collector_id" json:"collector_id"`
	HouseholdID      uuid.UUID `gorm:"type:uuid;not null;index;column:household_id" json:"household_id"`
	MunicipalityID   uuid.UUID `gorm:"type:uuid;not null;index;column:municipality_id" json:"municipality_id"`
	Rating           int       `gorm:"not null;column:rating" json:"rating"`
	Comment          string    `gorm:"column:comment" json:"comment"`
	RatingDate       time.Time `gorm:"not null;index;column:rating_date" json:"rating_date"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CollectorRating) TableName() string { return "collector_rating" }

func (c *CollectorRating) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

const (
	MinRating = 1
	MaxRating = 5
)
