package municipality

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Municipality struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"uniqueIndex;not null;column:name" json:"name"`
	Province    string     `gorm:"column:province" json:"province"`
	Country     string     `gorm:"column:country" json:"country"`
	Population  int64      `gorm:"column:population" json:"population"`
	WasteBudget float64    `gorm:"column:waste_budget" json:"waste_budget"`
	Enabled     bool       `gorm:"not null;column:enabled" json:"enabled"`
	ManagerID   *uuid.UUID `gorm:"type:uuid;index;column:manager_id" json:"manager_id,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Municipality) TableName() string { return "municipality" }

func (m *Municipality) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
