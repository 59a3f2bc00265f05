package user

import (
	"time"

	"github.com/google/uuid"
)

// RoleProfile is the role-specific payload owned 1:1 by a User.
// The set of implementations is closed: HouseholdProfile, CollectorProfile,
// ManagerProfile and AdminProfile.
type RoleProfile interface {
	ProfileRole() Role
	sealed()
}

type HouseholdProfile struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	MunicipalityID uuid.UUID `gorm:"type:uuid;not null;index;column:municipality_id" json:"municipality_id"`
	HouseholdSize  int       `gorm:"column:household_size" json:"household_size"`
	Latitude       *float64  `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude      *float64  `gorm:"column:longitude" json:"longitude,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (HouseholdProfile) TableName() string  { return "household_profile" }
func (*HouseholdProfile) ProfileRole() Role { return RoleHousehold }
func (*HouseholdProfile) sealed()           {}

type CollectorProfile struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	MunicipalityID uuid.UUID `gorm:"type:uuid;not null;index;column:municipality_id" json:"municipality_id"`
	VehicleType    string    `gorm:"column:vehicle_type" json:"vehicle_type"`
	VehiclePlate   string    `gorm:"column:vehicle_plate" json:"vehicle_plate"`
	ServiceArea    string    `gorm:"column:service_area" json:"service_area"`
	Available      bool      `gorm:"not null;column:available" json:"available"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (CollectorProfile) TableName() string  { return "collector_profile" }
func (*CollectorProfile) ProfileRole() Role { return RoleCollector }
func (*CollectorProfile) sealed()           {}

type ManagerProfile struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	MunicipalityID uuid.UUID `gorm:"type:uuid;not null;index;column:municipality_id" json:"municipality_id"`
	Title          string    `gorm:"column:title" json:"title"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (ManagerProfile) TableName() string  { return "manager_profile" }
func (*ManagerProfile) ProfileRole() Role { return RoleManager }
func (*ManagerProfile) sealed()           {}

type AdminProfile struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"user_id"`
	AccessLevel int       `gorm:"not null;column:access_level" json:"access_level"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (AdminProfile) TableName() string  { return "admin_profile" }
func (*AdminProfile) ProfileRole() Role { return RoleAdmin }
func (*AdminProfile) sealed()           {}
