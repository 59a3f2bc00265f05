package app

import (
	"gorm.io/gorm"

	httpH "github.com/yungbote/wastecollect-backend/internal/http/handlers"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
)

type Handlers struct {
	Auth           *httpH.AuthHandler
	User           *httpH.UserHandler
	Municipality   *httpH.MunicipalityHandler
	ServiceRequest *httpH.ServiceRequestHandler
	Rating         *httpH.RatingHandler
	Notification   *httpH.NotificationHandler
	Payment        *httpH.PaymentHandler
	Dispute        *httpH.DisputeHandler
	Analytics      *httpH.AnalyticsHandler
	Health         *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, db *gorm.DB, svc Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:           httpH.NewAuthHandler(log, svc.Auth),
		User:           httpH.NewUserHandler(log, svc.User),
		Municipality:   httpH.NewMunicipalityHandler(log, svc.Municipality),
		ServiceRequest: httpH.NewServiceRequestHandler(log, svc.ServiceRequest, svc.Collection),
		Rating:         httpH.NewRatingHandler(log, svc.Rating),
		Notification:   httpH.NewNotificationHandler(log, svc.Notification, hub),
		Payment:        httpH.NewPaymentHandler(log, svc.Payment),
		Dispute:        httpH.NewDisputeHandler(log, svc.Dispute),
		Analytics:      httpH.NewAnalyticsHandler(log, svc.Analytics, svc.Statistics, svc.Report),
		Health:         httpH.NewHealthHandler(db),
	}
}
