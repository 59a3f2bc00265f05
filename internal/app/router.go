package app

import (
	httpserver "github.com/yungbote/wastecollect-backend/internal/http"
	httpMW "github.com/yungbote/wastecollect-backend/internal/http/middleware"
	"github.com/yungbote/wastecollect-backend/internal/observability"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, h Handlers, mw *httpMW.AuthMiddleware, metrics *observability.Metrics) *httpserver.Server {
	log.Info("Wiring router...")
	return httpserver.NewServer(httpserver.RouterConfig{
		Log:                   log,
		Metrics:               metrics,
		ServiceName:           cfg.ServiceName,
		CORSOrigins:           cfg.CORSOrigins,
		AuthMiddleware:        mw,
		AuthHandler:           h.Auth,
		UserHandler:           h.User,
		MunicipalityHandler:   h.Municipality,
		ServiceRequestHandler: h.ServiceRequest,
		RatingHandler:         h.Rating,
		NotificationHandler:   h.Notification,
		PaymentHandler:        h.Payment,
		DisputeHandler:        h.Dispute,
		AnalyticsHandler:      h.Analytics,
		HealthHandler:         h.Health,
	})
}
