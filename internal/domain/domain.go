package domain

import (
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/billing"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/municipality"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/domain/support"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
)

type (
	User             = user.User
	Role             = user.Role
	RoleProfile      = user.RoleProfile
	HouseholdProfile = user.HouseholdProfile
	CollectorProfile = user.CollectorProfile
	ManagerProfile   = user.ManagerProfile
	AdminProfile     = user.AdminProfile

	Municipality = municipality.Municipality

	ServiceRequest  = collection.ServiceRequest
	WasteCollection = collection.WasteCollection
	CollectorRating = collection.CollectorRating
	WasteType       = collection.WasteType
	RequestStatus   = collection.Status

	Payment       = billing.Payment
	PaymentMethod = billing.Method
	PaymentStatus = billing.Status

	Dispute       = support.Dispute
	DisputeStatus = support.Status

	Notification     = notification.Notification
	NotificationType = notification.Type

	UserToken = auth.UserToken

	Statistics = stats.Statistics
	PeriodType = stats.PeriodType
)

const (
	RoleHousehold = user.RoleHousehold
	RoleCollector = user.RoleCollector
	RoleManager   = user.RoleManager
	RoleAdmin     = user.RoleAdmin
)

// Models lists every persisted entity in migration order.
func Models() []any {
	return []any{
		&User{},
		&HouseholdProfile{},
		&CollectorProfile{},
		&ManagerProfile{},
		&AdminProfile{},
		&UserToken{},
		&Municipality{},
		&ServiceRequest{},
		&WasteCollection{},
		&CollectorRating{},
		&Payment{},
		&Dispute{},
		&Notification{},
		&Statistics{},
	}
}
