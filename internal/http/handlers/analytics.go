package handlers

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/http/response"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

type AnalyticsHandler struct {
	log        *logger.Logger
	analytics  services.AnalyticsService
	statistics services.StatisticsService
	reports    services.ReportService
}

func NewAnalyticsHandler(log *logger.Logger, analytics services.AnalyticsService, statistics services.StatisticsService, reports services.ReportService) *AnalyticsHandler {
	return &AnalyticsHandler{
		log:        log.With("handler", "AnalyticsHandler"),
		analytics:  analytics,
		statistics: statistics,
		reports:    reports,
	}
}

// GET /collector/dashboard
func (h *AnalyticsHandler) CollectorDashboard(c *gin.Context) {
	d, err := h.analytics.CollectorDashboard(c.Request.Context(), identity(c))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, d)
}

// GET /admin/dashboard
func (h *AnalyticsHandler) AdminDashboard(c *gin.Context) {
	w, ok := window(c)
	if !ok {
		return
	}
	d, err := h.analytics.AdminDashboard(c.Request.Context(), identity(c), w)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, d)
}

// windowed runs fn for the municipality in the path and the window in the query.
func (h *AnalyticsHandler) windowed(c *gin.Context, fn func(id auth.Identity, mid uuid.UUID, w stats.Window) (any, error)) {
	mid, ok := pathID(c, "id")
	if !ok {
		return
	}
	w, ok := window(c)
	if !ok {
		return
	}
	out, err := fn(identity(c), mid, w)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /municipalities/:id/dashboard
func (h *AnalyticsHandler) MunicipalityDashboard(c *gin.Context) {
	h.windowed(c, func(id auth.Identity, mid uuid.UUID, w stats.Window) (any, error) {
		return h.analytics.MunicipalityDashboard(c.Request.Context(), id, mid, w)
	})
}

// GET /municipalities/:id/comparative
func (h *AnalyticsHandler) Comparative(c *gin.Context) {
	h.windowed(c, func(id auth.Identity, mid uuid.UUID, w stats.Window) (any, error) {
		return h.analytics.ComparativeData(c.Request.Context(), id, mid, w)
	})
}

// GET /municipalities/:id/performance
func (h *AnalyticsHandler) Performance(c *gin.Context) {
	h.windowed(c, func(id auth.Identity, mid uuid.UUID, w stats.Window) (any, error) {
		return h.analytics.PerformanceMetrics(c.Request.Context(), id, mid, w)
	})
}

// GET /municipalities/:id/waste-types
func (h *AnalyticsHandler) WasteTypes(c *gin.Context) {
	h.windowed(c, func(id auth.Identity, mid uuid.UUID, w stats.Window) (any, error) {
		rows, err := h.analytics.WasteTypeBreakdown(c.Request.Context(), id, mid, w)
		return gin.H{"items": rows}, err
	})
}

// GET /municipalities/:id/trend
func (h *AnalyticsHandler) Trend(c *gin.Context) {
	h.windowed(c, func(id auth.Identity, mid uuid.UUID, w stats.Window) (any, error) {
		rows, err := h.analytics.DailyTrend(c.Request.Context(), id, mid, w)
		return gin.H{"items": rows}, err
	})
}

// GET /municipalities/:id/underserved?days=&min_pending=
func (h *AnalyticsHandler) Underserved(c *gin.Context) {
	mid, ok := pathID(c, "id")
	if !ok {
		return
	}
	var q services.UnderservedQuery
	for _, f := range []struct {
		name string
		dst  **int
	}{{"days", &q.DaysThreshold}, {"min_pending", &q.MinPendingRequests}} {
		raw := strings.TrimSpace(c.Query(f.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "invalid_query", errors.New("invalid "+f.name))
			return
		}
		*f.dst = &n
	}
	rows, err := h.analytics.UnderservedAreas(c.Request.Context(), identity(c), mid, q)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"items": rows})
}

// GET /municipalities/:id/statistics?period=MONTH&limit=
func (h *AnalyticsHandler) Statistics(c *gin.Context) {
	mid, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	period := stats.PeriodType(strings.ToUpper(strings.TrimSpace(c.Query("period"))))
	rows, err := h.statistics.List(c.Request.Context(), identity(c), mid, period, limit)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"items": rows})
}

type snapshotRequest struct {
	MunicipalityID uuid.UUID        `json:"municipality_id"`
	PeriodType     stats.PeriodType `json:"period_type" binding:"required"`
	Anchor         *time.Time       `json:"anchor"`
}

// POST /admin/statistics/snapshot
func (h *AnalyticsHandler) Snapshot(c *gin.Context) {
	var req snapshotRequest
	if !bindJSON(c, &req) {
		return
	}
	anchor := time.Now().UTC()
	if req.Anchor != nil {
		anchor = req.Anchor.UTC()
	}
	s, err := h.statistics.Snapshot(c.Request.Context(), req.MunicipalityID, req.PeriodType, anchor)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"statistics": s})
}

// POST /municipalities/:id/reports
func (h *AnalyticsHandler) ExportReport(c *gin.Context) {
	h.windowed(c, func(id auth.Identity, mid uuid.UUID, w stats.Window) (any, error) {
		r, err := h.reports.ExportMunicipalityCSV(c.Request.Context(), id, mid, w)
		return gin.H{"report": r}, err
	})
}

// GET /reports/download?path=
func (h *AnalyticsHandler) DownloadReport(c *gin.Context) {
	p := c.Query("path")
	data, err := h.reports.Download(c.Request.Context(), identity(c), p)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+path.Base(p)+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
