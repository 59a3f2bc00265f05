package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleHousehold Role = "HOUSEHOLD"
	RoleCollector Role = "COLLECTOR"
	RoleManager   Role = "MUNICIPAL_MANAGER"
	RoleAdmin     Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleHousehold, RoleCollector, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on other users' records.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleManager
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string    `gorm:"not null;column:name" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash string    `gorm:"not null;column:password_hash" json:"-"`
	Phone        string    `gorm:"column:phone" json:"phone"`
	Address      string    `gorm:"column:address" json:"address"`
	Role         Role      `gorm:"not null;index;column:role" json:"role"`
	Enabled      bool      `gorm:"not null;column:enabled" json:"enabled"`
	Locked       bool      `gorm:"not null;column:locked" json:"locked"`

	Household *HouseholdProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"household,omitempty"`
	Collector *CollectorProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"collector,omitempty"`
	Manager   *ManagerProfile   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"manager,omitempty"`
	Admin     *AdminProfile     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"admin,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// CanSignIn is false for disabled or locked accounts.
func (u *User) CanSignIn() bool {
	return u != nil && u.Enabled && !u.Locked
}

// Profile returns the role payload matching u.Role, or nil when it was not loaded.
func (u *User) Profile() RoleProfile {
	if u == nil {
		return nil
	}
	switch u.Role {
	case RoleHousehold:
		if u.Household != nil {
			return u.Household
		}
	case RoleCollector:
		if u.Collector != nil {
			return u.Collector
		}
	case RoleManager:
		if u.Manager != nil {
			return u.Manager
		}
	case RoleAdmin:
		if u.Admin != nil {
			return u.Admin
		}
	}
	return nil
}

// MunicipalityID resolves the municipality the user is scoped to. Admins have none.
func (u *User) MunicipalityID() (uuid.UUID, bool) {
	switch p := u.Profile().(type) {
	case *HouseholdProfile:
		return p.MunicipalityID, p.MunicipalityID != uuid.Nil
	case *CollectorProfile:
		return p.MunicipalityID, p.MunicipalityID != uuid.Nil
	case *ManagerProfile:
		return p.MunicipalityID, p.MunicipalityID != uuid.Nil
	default:
		return uuid.Nil, false
	}
}
