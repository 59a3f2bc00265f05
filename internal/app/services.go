package app

import (
	"gorm.io/gorm"

	dataagg "github.com/yungbote/wastecollect-backend/internal/data/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	"github.com/yungbote/wastecollect-backend/internal/observability"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/sendgrid"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

type Services struct {
	Auth           services.AuthService
	User           services.UserService
	Municipality   services.MunicipalityService
	ServiceRequest services.ServiceRequestService
	Collection     services.WasteCollectionService
	Rating         services.RatingService
	Dispute        services.DisputeService
	Payment        services.PaymentService
	Notification   services.NotificationService
	Analytics      services.AnalyticsService
	Statistics     services.StatisticsService
	Report         services.ReportService
}

// providers are the optional outward collaborators; any of them may be nil.
type providers struct {
	Publisher realtime.Publisher
	Mailer    sendgrid.Client
	Gateway   services.CardGateway
	Reports   services.ReportStore
	Metrics   *observability.Metrics
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, set repos.Set, p providers) Services {
	log.Info("Wiring services...")

	live := services.NewRealtimeNotifier(p.Publisher)
	runner := dataagg.NewGormTxRunner(db)

	notifications := services.NewNotificationService(services.NotificationServiceDeps{
		Log:           log,
		Notifications: set.Notification,
		Users:         set.User,
		Realtime:      live,
		Mailer:        p.Mailer,
		Metrics:       p.Metrics,
	})

	agg := dataagg.NewServiceRequestAggregate(dataagg.ServiceRequestAggregateDeps{
		Base: dataagg.BaseDeps{
			DB:     db,
			Log:    log,
			Runner: runner,
			Hooks:  dataagg.NewObservabilityHooks(p.Metrics),
		},
		Requests:      set.ServiceRequest,
		Collections:   set.WasteCollection,
		Notifications: set.Notification,
	})

	return Services{
		Auth: services.NewAuthService(services.AuthServiceDeps{
			Log:            log,
			Users:          set.User,
			Tokens:         set.UserToken,
			Municipalities: set.Municipality,
			JWTSecretKey:   cfg.JWTSecretKey,
			AccessTTL:      cfg.AccessTokenTTL,
			RefreshTTL:     cfg.RefreshTokenTTL,
		}),
		User: services.NewUserService(services.UserServiceDeps{
			Log:            log,
			Users:          set.User,
			Tokens:         set.UserToken,
			Municipalities: set.Municipality,
		}),
		Municipality: services.NewMunicipalityService(services.MunicipalityServiceDeps{
			Log:            log,
			Municipalities: set.Municipality,
			Requests:       set.ServiceRequest,
			Users:          set.User,
		}),
		ServiceRequest: services.NewServiceRequestService(services.ServiceRequestServiceDeps{
			Log:           log,
			Aggregate:     agg,
			Requests:      set.ServiceRequest,
			Users:         set.User,
			Notifications: notifications,
			Realtime:      live,
			Metrics:       p.Metrics,
		}),
		Collection: services.NewWasteCollectionService(services.WasteCollectionServiceDeps{
			Log:         log,
			Collections: set.WasteCollection,
			Requests:    set.ServiceRequest,
			Users:       set.User,
		}),
		Rating: services.NewRatingService(services.RatingServiceDeps{
			Log:           log,
			Runner:        runner,
			Requests:      set.ServiceRequest,
			Ratings:       set.CollectorRating,
			Notifications: notifications,
		}),
		Dispute: services.NewDisputeService(services.DisputeServiceDeps{
			Log:           log,
			Runner:        runner,
			Users:         set.User,
			Disputes:      set.Dispute,
			Requests:      set.ServiceRequest,
			Payments:      set.Payment,
			Notifications: notifications,
		}),
		Payment: services.NewPaymentService(services.PaymentServiceDeps{
			Log:           log,
			Runner:        runner,
			Payments:      set.Payment,
			Requests:      set.ServiceRequest,
			Users:         set.User,
			Notifications: notifications,
			Gateway:       p.Gateway,
		}),
		Notification: notifications,
		Analytics: services.NewAnalyticsService(services.AnalyticsServiceDeps{
			Log: log,
			Config: services.AnalyticsConfig{
				UnderservedDaysThreshold: cfg.UnderservedDaysThreshold,
				UnderservedMinPending:    cfg.UnderservedMinPending,
				ComparativeConcurrency:   cfg.ComparativeConcurrency,
			},
			Requests:       set.ServiceRequest,
			Collections:    set.WasteCollection,
			Ratings:        set.CollectorRating,
			Payments:       set.Payment,
			Disputes:       set.Dispute,
			Users:          set.User,
			Municipalities: set.Municipality,
			Analytics:      set.Analytics,
		}),
		Statistics: services.NewStatisticsService(services.StatisticsServiceDeps{
			Log:            log,
			Statistics:     set.Statistics,
			Requests:       set.ServiceRequest,
			Collections:    set.WasteCollection,
			Ratings:        set.CollectorRating,
			Payments:       set.Payment,
			Municipalities: set.Municipality,
			Analytics:      set.Analytics,
			Users:          set.User,
		}),
		Report: services.NewReportService(services.ReportServiceDeps{
			Log:      log,
			Store:    p.Reports,
			Requests: set.ServiceRequest,
			Users:    set.User,
		}),
	}
}
