package stats

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PeriodType string

const (
	PeriodDay   PeriodType = "DAY"
	PeriodWeek  PeriodType = "WEEK"
	PeriodMonth PeriodType = "MONTH"
	PeriodYear  PeriodType = "YEAR"
)

func (p PeriodType) Valid() bool {
	switch p {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// Window returns the period containing anchor as [start, end), in anchor's location.
// Weeks run Monday to Sunday.
func (p PeriodType) Window(anchor time.Time) Window {
	y, m, d := anchor.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, anchor.Location())
	switch p {
	case PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return Window{Start: start, End: start.AddDate(0, 0, 7)}
	case PeriodMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, anchor.Location())
		return Window{Start: start, End: start.AddDate(0, 1, 0)}
	case PeriodYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, anchor.Location())
		return Window{Start: start, End: start.AddDate(1, 0, 0)}
	default:
		return Window{Start: day, End: day.AddDate(0, 0, 1)}
	}
}

// Statistics is a persisted periodic snapshot for one municipality.
type Statistics struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	MunicipalityID    uuid.UUID      `gorm:"type:uuid;not null;index;column:municipality_id" json:"municipality_id"`
	PeriodType        PeriodType     `gorm:"not null;column:period_type" json:"period_type"`
	StartDate         time.Time      `gorm:"not null;index;column:start_date" json:"start_date"`
	EndDate           time.Time      `gorm:"not null;column:end_date" json:"end_date"`
	TotalRequests     int64          `gorm:"not null;column:total_requests" json:"total_requests"`
	CompletedRequests int64          `gorm:"not null;column:completed_requests" json:"completed_requests"`
	CancelledRequests int64          `gorm:"not null;column:cancelled_requests" json:"cancelled_requests"`
	TotalWeightKg     float64        `gorm:"not null;column:total_weight_kg" json:"total_weight_kg"`
	TotalRevenue      float64        `gorm:"not null;column:total_revenue" json:"total_revenue"`
	AverageRating     float64        `gorm:"not null;column:average_rating" json:"average_rating"`
	Breakdown         datatypes.JSON `gorm:"column:breakdown" json:"breakdown,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Statistics) TableName() string { return "statistics" }

func (s *Statistics) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
