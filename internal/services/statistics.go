package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

// StatisticsService persists periodic per-municipality snapshots.
// Snapshot is a system operation; callers gate it (admin route, CLI).
type StatisticsService interface {
	Snapshot(ctx context.Context, municipalityID uuid.UUID, period stats.PeriodType, anchor time.Time) (*stats.Statistics, error)
	List(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, period stats.PeriodType, limit int) ([]*stats.Statistics, error)
}

type StatisticsServiceDeps struct {
	Log            *logger.Logger
	Statistics     repos.StatisticsRepo
	Requests       repos.ServiceRequestRepo
	Collections    repos.WasteCollectionRepo
	Ratings        repos.CollectorRatingRepo
	Payments       repos.PaymentRepo
	Municipalities repos.MunicipalityRepo
	Analytics      repos.AnalyticsRepo
	Users          repos.UserRepo
	Now            Clock
}

type statisticsService struct {
	log   *logger.Logger
	deps  StatisticsServiceDeps
	now   Clock
	scope scoper
}

func NewStatisticsService(deps StatisticsServiceDeps) StatisticsService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = utcNow
	}
	return &statisticsService{
		log:   deps.Log.With("service", "StatisticsService"),
		deps:  deps,
		now:   deps.Now,
		scope: scoper{users: deps.Users},
	}
}

func (s *statisticsService) Snapshot(ctx context.Context, municipalityID uuid.UUID, period stats.PeriodType, anchor time.Time) (*stats.Statistics, error) {
	const op = "Statistics.Snapshot"
	if municipalityID == uuid.Nil {
		return nil, domainagg.FieldError(op, "municipality_id", "municipality is required")
	}
	if !period.Valid() {
		return nil, domainagg.FieldError(op, "period_type", "period must be DAY, WEEK, MONTH or YEAR")
	}
	if anchor.IsZero() {
		anchor = s.now()
	}
	dbc := dbctx.Of(ctx)
	m, err := s.deps.Municipalities.GetByID(dbc, municipalityID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if m == nil {
		return nil, domainagg.NotFound(op, "municipality")
	}

	w := period.Window(anchor.UTC())
	row := &stats.Statistics{MunicipalityID: municipalityID, PeriodType: period, StartDate: w.Start, EndDate: w.End}

	byStatus, err := s.deps.Requests.CountByStatus(dbc, repos.RequestFilter{MunicipalityID: municipalityID, CreatedFrom: w.Start, CreatedTo: w.End})
	if err != nil {
		return nil, repoErr(op, err)
	}
	row.TotalRequests = stats.StatusCounts(byStatus).Total()
	row.CompletedRequests = byStatus[string(collection.StatusCompleted)]
	row.CancelledRequests = byStatus[string(collection.StatusCancelled)]
	if row.TotalWeightKg, err = s.deps.Collections.SumWeight(dbc, repos.CollectionFilter{MunicipalityID: municipalityID, From: w.Start, To: w.End}); err != nil {
		return nil, repoErr(op, err)
	}
	if row.TotalRevenue, err = s.deps.Payments.SumAmount(dbc, repos.PaymentFilter{MunicipalityID: municipalityID, Statuses: successful(), From: w.Start, To: w.End}); err != nil {
		return nil, repoErr(op, err)
	}
	rs, err := s.deps.Ratings.Summary(dbc, repos.RatingFilter{MunicipalityID: municipalityID, From: w.Start, To: w.End})
	if err != nil {
		return nil, repoErr(op, err)
	}
	row.AverageRating = rs.Average

	byType, err := s.deps.Analytics.RequestsByWasteType(dbc, municipalityID, w)
	if err != nil {
		return nil, repoErr(op, err)
	}
	raw, err := json.Marshal(map[string]any{"requests_by_waste_type": byType, "by_status": byStatus})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	row.Breakdown = datatypes.JSON(raw)

	created, err := s.deps.Statistics.Create(dbc, []*stats.Statistics{row})
	if err != nil {
		return nil, repoErr(op, err)
	}
	s.log.Info("statistics snapshot stored", "municipality_id", municipalityID, "period", period, "start", w.Start)
	return created[0], nil
}

func (s *statisticsService) List(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, period stats.PeriodType, limit int) ([]*stats.Statistics, error) {
	const op = "Statistics.List"
	mid, err := s.scope.municipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, err
	}
	if mid == uuid.Nil {
		return nil, domainagg.FieldError(op, "municipality_id", "municipality is required")
	}
	if period != "" && !period.Valid() {
		return nil, domainagg.FieldError(op, "period_type", "unknown period")
	}
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	rows, err := s.deps.Statistics.List(dbctx.Of(ctx), mid, period, limit)
	if err != nil {
		return nil, repoErr(op, err)
	}
	return rows, nil
}
