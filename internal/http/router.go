package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	httpH "github.com/yungbote/wastecollect-backend/internal/http/handlers"
	httpMW "github.com/yungbote/wastecollect-backend/internal/http/middleware"
	"github.com/yungbote/wastecollect-backend/internal/observability"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	AuthHandler           *httpH.AuthHandler
	UserHandler           *httpH.UserHandler
	MunicipalityHandler   *httpH.MunicipalityHandler
	ServiceRequestHandler *httpH.ServiceRequestHandler
	RatingHandler         *httpH.RatingHandler
	NotificationHandler   *httpH.NotificationHandler
	PaymentHandler        *httpH.PaymentHandler
	DisputeHandler        *httpH.DisputeHandler
	AnalyticsHandler      *httpH.AnalyticsHandler
	HealthHandler         *httpH.HealthHandler
}

var (
	household = user.RoleHousehold
	collector = user.RoleCollector
	manager   = user.RoleManager
	admin     = user.RoleAdmin
)

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "wastecollect-api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
			api.POST("/logout", cfg.AuthHandler.Logout)
		}
		if cfg.HealthHandler != nil {
			api.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		}
		// Municipality choice on the registration form.
		if cfg.MunicipalityHandler != nil {
			api.GET("/municipalities", cfg.MunicipalityHandler.List)
		}
	}

	if cfg.AuthMiddleware == nil {
		return r
	}
	am := cfg.AuthMiddleware
	protected := api.Group("/")
	protected.Use(am.RequireAuth())

	// User (Me)
	if h := cfg.UserHandler; h != nil {
		protected.GET("/me", h.GetMe)
		protected.PATCH("/me", h.UpdateMe)

		adm := protected.Group("/admin", am.RequireRole(admin, manager))
		adm.GET("/users", h.List)
		adm.GET("/users/:id", h.Get)
		adm.POST("/staff", h.CreateStaff)
		adm.PATCH("/users/:id/status", am.RequireRole(admin), h.UpdateStatus)
	}

	// Municipalities
	if h := cfg.MunicipalityHandler; h != nil {
		protected.GET("/municipalities/:id", h.Get)
		protected.POST("/municipalities", am.RequireRole(admin), h.Create)
		protected.PATCH("/municipalities/:id", am.RequireRole(admin, manager), h.Update)
		protected.DELETE("/municipalities/:id", am.RequireRole(admin), h.Delete)
		protected.POST("/municipalities/:id/manager", am.RequireRole(admin), h.AssignManager)
	}

	// Service requests
	if h := cfg.ServiceRequestHandler; h != nil {
		protected.POST("/service-requests", am.RequireRole(household), h.Create)
		protected.GET("/service-requests", am.RequireRole(household), h.ListOwn)
		protected.GET("/service-requests/:id", h.Get)
		protected.GET("/service-requests/:id/collection", h.CollectionForRequest)
		protected.POST("/service-requests/:id/cancel", am.RequireRole(household, manager, admin), h.Cancel)

		col := protected.Group("/collector", am.RequireRole(collector))
		col.GET("/requests/available", h.ListAvailable)
		col.GET("/requests", h.ListAssigned)
		col.POST("/requests/:id/accept", h.Accept)
		col.POST("/requests/:id/reject", h.Reject)
		col.POST("/requests/:id/start", h.Start)
		col.POST("/requests/:id/complete", h.Complete)
		col.GET("/collections", h.CollectorCollections)

		protected.GET("/household/collections", am.RequireRole(household), h.HouseholdCollections)
		protected.POST("/admin/requests/:id/assign", am.RequireRole(admin, manager), h.Assign)

		staff := protected.Group("/municipalities/:id", am.RequireRole(admin, manager))
		staff.GET("/requests", h.ListForMunicipality)
		staff.GET("/collections", h.MunicipalityCollections)
	}

	// Ratings
	if h := cfg.RatingHandler; h != nil {
		protected.POST("/household/requests/:id/rate", am.RequireRole(household), h.Rate)
		protected.GET("/collector/ratings", am.RequireRole(collector), h.Mine)
		protected.GET("/collectors/:id/ratings", am.RequireRole(admin, manager), h.ForCollector)
	}

	// Analytics, statistics and reports
	if h := cfg.AnalyticsHandler; h != nil {
		protected.GET("/collector/dashboard", am.RequireRole(collector), h.CollectorDashboard)
		protected.GET("/admin/dashboard", am.RequireRole(admin), h.AdminDashboard)
		protected.POST("/admin/statistics/snapshot", am.RequireRole(admin), h.Snapshot)

		staff := protected.Group("/municipalities/:id", am.RequireRole(admin, manager))
		staff.GET("/dashboard", h.MunicipalityDashboard)
		staff.GET("/underserved", h.Underserved)
		staff.GET("/comparative", h.Comparative)
		staff.GET("/performance", h.Performance)
		staff.GET("/waste-types", h.WasteTypes)
		staff.GET("/trend", h.Trend)
		staff.GET("/statistics", h.Statistics)
		staff.POST("/reports", h.ExportReport)
		protected.GET("/reports/download", am.RequireRole(admin, manager), h.DownloadReport)
	}

	// Notifications
	if h := cfg.NotificationHandler; h != nil {
		protected.GET("/notifications", h.List)
		protected.GET("/notifications/unread-count", h.UnreadCount)
		protected.GET("/notifications/stream", h.Stream)
		protected.POST("/notifications/read-all", h.MarkAllRead)
		protected.POST("/notifications/send", am.RequireRole(admin, manager), h.Send)
		protected.POST("/notifications/:id/read", h.MarkRead)
		protected.POST("/notifications/:id/unread", h.MarkUnread)
		protected.DELETE("/notifications/:id", h.Delete)
	}

	// Payments
	if h := cfg.PaymentHandler; h != nil {
		protected.POST("/payment", am.RequireRole(household), h.Create)
		protected.GET("/payment", h.List)
		protected.GET("/payment/:id", h.Get)
		protected.PATCH("/payment/:id/status", am.RequireRole(admin, manager), h.UpdateStatus)
	}

	// Disputes
	if h := cfg.DisputeHandler; h != nil {
		protected.POST("/dispute", am.RequireRole(household, collector), h.Create)
		protected.GET("/dispute", h.List)
		protected.GET("/dispute/:id", h.Get)
		protected.PATCH("/dispute/:id/status", am.RequireRole(admin, manager), h.UpdateStatus)
		protected.POST("/dispute/:id/read", h.MarkRead)
	}

	return r
}
