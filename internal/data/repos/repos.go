package repos

import (
	"github.com/yungbote/wastecollect-backend/internal/data/repos/auth"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/billing"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/collection"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/municipality"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/notification"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/stats"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/support"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type UserRepo = user.UserRepo
type UserFilter = user.Filter

type UserTokenRepo = auth.UserTokenRepo

type MunicipalityRepo = municipality.MunicipalityRepo

type ServiceRequestRepo = collection.ServiceRequestRepo
type RequestFilter = collection.RequestFilter
type WasteCollectionRepo = collection.WasteCollectionRepo
type CollectionFilter = collection.CollectionFilter
type CollectorRatingRepo = collection.CollectorRatingRepo
type RatingFilter = collection.RatingFilter

type PaymentRepo = billing.PaymentRepo
type PaymentFilter = billing.PaymentFilter

type DisputeRepo = support.DisputeRepo
type DisputeFilter = support.DisputeFilter

type NotificationRepo = notification.NotificationRepo

type StatisticsRepo = stats.StatisticsRepo
type AnalyticsRepo = stats.AnalyticsRepo
type HouseholdActivity = stats.HouseholdActivity

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }
func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return auth.NewUserTokenRepo(db, baseLog)
}
func NewMunicipalityRepo(db *gorm.DB, baseLog *logger.Logger) MunicipalityRepo {
	return municipality.NewMunicipalityRepo(db, baseLog)
}
func NewServiceRequestRepo(db *gorm.DB, baseLog *logger.Logger) ServiceRequestRepo {
	return collection.NewServiceRequestRepo(db, baseLog)
}
func NewWasteCollectionRepo(db *gorm.DB, baseLog *logger.Logger) WasteCollectionRepo {
	return collection.NewWasteCollectionRepo(db, baseLog)
}
func NewCollectorRatingRepo(db *gorm.DB, baseLog *logger.Logger) CollectorRatingRepo {
	return collection.NewCollectorRatingRepo(db, baseLog)
}
func NewPaymentRepo(db *gorm.DB, baseLog *logger.Logger) PaymentRepo {
	return billing.NewPaymentRepo(db, baseLog)
}
func NewDisputeRepo(db *gorm.DB, baseLog *logger.Logger) DisputeRepo {
	return support.NewDisputeRepo(db, baseLog)
}
func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return notification.NewNotificationRepo(db, baseLog)
}
func NewStatisticsRepo(db *gorm.DB, baseLog *logger.Logger) StatisticsRepo {
	return stats.NewStatisticsRepo(db, baseLog)
}
func NewAnalyticsRepo(db *gorm.DB, baseLog *logger.Logger) AnalyticsRepo {
	return stats.NewAnalyticsRepo(db, baseLog)
}

// Set bundles every table repo.
type Set struct {
	User            UserRepo
	UserToken       UserTokenRepo
	Municipality    MunicipalityRepo
	ServiceRequest  ServiceRequestRepo
	WasteCollection WasteCollectionRepo
	CollectorRating CollectorRatingRepo
	Payment         PaymentRepo
	Dispute         DisputeRepo
	Notification    NotificationRepo
	Statistics      StatisticsRepo
	Analytics       AnalyticsRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		User:            NewUserRepo(db, baseLog),
		UserToken:       NewUserTokenRepo(db, baseLog),
		Municipality:    NewMunicipalityRepo(db, baseLog),
		ServiceRequest:  NewServiceRequestRepo(db, baseLog),
		WasteCollection: NewWasteCollectionRepo(db, baseLog),
		CollectorRating: NewCollectorRatingRepo(db, baseLog),
		Payment:         NewPaymentRepo(db, baseLog),
		Dispute:         NewDisputeRepo(db, baseLog),
		Notification:    NewNotificationRepo(db, baseLog),
		Statistics:      NewStatisticsRepo(db, baseLog),
		Analytics:       NewAnalyticsRepo(db, baseLog),
	}
}
