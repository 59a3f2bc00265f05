package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/billing"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/domain/support"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

// AnalyticsService is read-only; every figure is computed from the live tables.
type AnalyticsService interface {
	CollectorDashboard(ctx context.Context, id auth.Identity) (*stats.CollectorDashboard, error)
	MunicipalityDashboard(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) (*stats.MunicipalityDashboard, error)
	AdminDashboard(ctx context.Context, id auth.Identity, w stats.Window) (*stats.AdminDashboard, error)
	UnderservedAreas(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, q UnderservedQuery) ([]stats.UnderservedHousehold, error)
	ComparativeData(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) (*stats.ComparativeData, error)
	PerformanceMetrics(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) (*stats.PerformanceMetrics, error)
	WasteTypeBreakdown(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) ([]stats.WasteTypeCount, error)
	DailyTrend(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) ([]stats.DailyCount, error)
}

type AnalyticsConfig struct {
	UnderservedDaysThreshold int
	UnderservedMinPending    int
	// ComparativeConcurrency bounds per-municipality fan-out.
	ComparativeConcurrency int
}

type AnalyticsServiceDeps struct {
	Log            *logger.Logger
	Config         AnalyticsConfig
	Requests       repos.ServiceRequestRepo
	Collections    repos.WasteCollectionRepo
	Ratings        repos.CollectorRatingRepo
	Payments       repos.PaymentRepo
	Disputes       repos.DisputeRepo
	Users          repos.UserRepo
	Municipalities repos.MunicipalityRepo
	Analytics      repos.AnalyticsRepo
	Now            Clock
}

type analyticsService struct {
	log   *logger.Logger
	cfg   AnalyticsConfig
	deps  AnalyticsServiceDeps
	now   Clock
	scope scoper
}

func NewAnalyticsService(deps AnalyticsServiceDeps) AnalyticsService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = utcNow
	}
	cfg := deps.Config
	if cfg.UnderservedDaysThreshold <= 0 {
		cfg.UnderservedDaysThreshold = 30
	}
	if cfg.UnderservedMinPending <= 0 {
		cfg.UnderservedMinPending = 3
	}
	if cfg.ComparativeConcurrency <= 0 {
		cfg.ComparativeConcurrency = 4
	}
	return &analyticsService{
		log:   deps.Log.With("service", "AnalyticsService"),
		cfg:   cfg,
		deps:  deps,
		now:   deps.Now,
		scope: scoper{users: deps.Users},
	}
}

func successful() []billing.Status { return []billing.Status{billing.StatusSuccessful} }

func (s *analyticsService) CollectorDashboard(ctx context.Context, id auth.Identity) (*stats.CollectorDashboard, error) {
	const op = "Analytics.CollectorDashboard"
	if err := requireRole(op, id, user.RoleCollector); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	now := s.now()
	today := startOfDay(now)
	out := &stats.CollectorDashboard{CollectorID: id.UserID}

	byStatus, err := s.deps.Requests.CountByStatus(dbc, repos.RequestFilter{CollectorID: id.UserID})
	if err != nil {
		return nil, repoErr(op, err)
	}
	out.ByStatus = byStatus
	if _, out.CompletedToday, err = s.deps.Collections.List(dbc, repos.CollectionFilter{CollectorID: id.UserID, From: today, To: today.AddDate(0, 0, 1), Limit: 1}); err != nil {
		return nil, repoErr(op, err)
	}
	if out.TotalRevenue, err = s.deps.Payments.SumAmount(dbc, repos.PaymentFilter{CollectorID: id.UserID, Statuses: successful()}); err != nil {
		return nil, repoErr(op, err)
	}
	if out.WeeklyRevenue, err = s.deps.Payments.SumAmount(dbc, repos.PaymentFilter{CollectorID: id.UserID, Statuses: successful(), From: now.AddDate(0, 0, -7)}); err != nil {
		return nil, repoErr(op, err)
	}
	rs, err := s.deps.Ratings.Summary(dbc, repos.RatingFilter{CollectorID: id.UserID})
	if err != nil {
		return nil, repoErr(op, err)
	}
	out.AverageRating, out.TotalRatings = rs.Average, rs.Count
	if out.TotalWeightKg, err = s.deps.Collections.SumWeight(dbc, repos.CollectionFilter{CollectorID: id.UserID}); err != nil {
		return nil, repoErr(op, err)
	}
	return out, nil
}

func (s *analyticsService) MunicipalityDashboard(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) (*stats.MunicipalityDashboard, error) {
	const op = "Analytics.MunicipalityDashboard"
	mid, err := s.requireMunicipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if w, err = resolveWindow(op, w, now); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	today := startOfDay(now)
	out := &stats.MunicipalityDashboard{MunicipalityID: mid, Window: w}

	if out.ByStatus, err = s.deps.Requests.CountByStatus(dbc, repos.RequestFilter{MunicipalityID: mid, CreatedFrom: w.Start, CreatedTo: w.End}); err != nil {
		return nil, repoErr(op, err)
	}
	if _, out.CompletedToday, err = s.deps.Collections.List(dbc, repos.CollectionFilter{MunicipalityID: mid, From: today, To: today.AddDate(0, 0, 1), Limit: 1}); err != nil {
		return nil, repoErr(op, err)
	}
	if out.TotalRevenue, err = s.deps.Payments.SumAmount(dbc, repos.PaymentFilter{MunicipalityID: mid, Statuses: successful(), From: w.Start, To: w.End}); err != nil {
		return nil, repoErr(op, err)
	}
	if out.WeeklyRevenue, err = s.deps.Payments.SumAmount(dbc, repos.PaymentFilter{MunicipalityID: mid, Statuses: successful(), From: now.AddDate(0, 0, -7)}); err != nil {
		return nil, repoErr(op, err)
	}
	rs, err := s.deps.Ratings.Summary(dbc, repos.RatingFilter{MunicipalityID: mid, From: w.Start, To: w.End})
	if err != nil {
		return nil, repoErr(op, err)
	}
	out.AverageRating, out.TotalRatings = rs.Average, rs.Count
	if out.ActiveCollectors, err = s.deps.Analytics.CountActiveCollectors(dbc, mid); err != nil {
		return nil, repoErr(op, err)
	}
	if out.Households, err = s.deps.Analytics.CountHouseholds(dbc, mid); err != nil {
		return nil, repoErr(op, err)
	}
	return out, nil
}

func (s *analyticsService) AdminDashboard(ctx context.Context, id auth.Identity, w stats.Window) (*stats.AdminDashboard, error) {
	const op = "Analytics.AdminDashboard"
	if err := requireRole(op, id, user.RoleAdmin); err != nil {
		return nil, err
	}
	var err error
	if w, err = resolveWindow(op, w, s.now()); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	out := &stats.AdminDashboard{Window: w}

	if out.UsersByRole, err = s.deps.Users.CountByRole(dbc); err != nil {
		return nil, repoErr(op, err)
	}
	for _, n := range out.UsersByRole {
		out.TotalUsers += n
	}
	if out.Municipalities, err = s.deps.Municipalities.Count(dbc); err != nil {
		return nil, repoErr(op, err)
	}
	if out.ByStatus, err = s.deps.Requests.CountByStatus(dbc, repos.RequestFilter{CreatedFrom: w.Start, CreatedTo: w.End}); err != nil {
		return nil, repoErr(op, err)
	}
	out.CompletedInWindow = out.ByStatus[string(collection.StatusCompleted)]
	if out.TotalRevenue, err = s.deps.Payments.SumAmount(dbc, repos.PaymentFilter{Statuses: successful(), From: w.Start, To: w.End}); err != nil {
		return nil, repoErr(op, err)
	}
	if out.OpenDisputes, err = s.deps.Disputes.Count(dbc, repos.DisputeFilter{Statuses: []support.Status{support.StatusOpen, support.StatusInProgress}}); err != nil {
		return nil, repoErr(op, err)
	}
	if out.PerMunicipality, err = s.deps.Analytics.RequestsPerMunicipality(dbc, w); err != nil {
		return nil, repoErr(op, err)
	}
	if out.TotalWeightKg, err = s.deps.Collections.SumWeight(dbc, repos.CollectionFilter{From: w.Start, To: w.End}); err != nil {
		return nil, repoErr(op, err)
	}
	rs, err := s.deps.Ratings.Summary(dbc, repos.RatingFilter{From: w.Start, To: w.End})
	if err != nil {
		return nil, repoErr(op, err)
	}
	out.AverageRating = rs.Average
	return out, nil
}

// UnderservedQuery carries caller-chosen thresholds. A nil threshold falls back
// to the configured default; an explicit zero is kept.
type UnderservedQuery struct {
	DaysThreshold      *int
	MinPendingRequests *int
	Now                time.Time
}

// UnderservedAreas returns the flagged households, most neglected first.
func (s *analyticsService) UnderservedAreas(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, q UnderservedQuery) ([]stats.UnderservedHousehold, error) {
	const op = "Analytics.UnderservedAreas"
	mid, err := s.scope.municipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, err
	}
	p := stats.UnderservedParams{
		DaysThreshold:      s.cfg.UnderservedDaysThreshold,
		MinPendingRequests: s.cfg.UnderservedMinPending,
		Now:                q.Now,
	}
	if q.DaysThreshold != nil {
		p.DaysThreshold = *q.DaysThreshold
	}
	if q.MinPendingRequests != nil {
		p.MinPendingRequests = *q.MinPendingRequests
	}
	if p.DaysThreshold < 0 || p.MinPendingRequests < 0 {
		return nil, domainagg.Validation(op, "thresholds must not be negative")
	}
	if p.Now.IsZero() {
		p.Now = s.now()
	}
	activity, err := s.deps.Analytics.HouseholdActivity(dbctx.Of(ctx), mid)
	if err != nil {
		return nil, repoErr(op, err)
	}
	return Underserved(activity, p), nil
}

// Underserved applies the underserved rule to household activity rows.
func Underserved(activity []repos.HouseholdActivity, p stats.UnderservedParams) []stats.UnderservedHousehold {
	out := make([]stats.UnderservedHousehold, 0)
	for _, a := range activity {
		days := daysSince(a.LastCollection, p.Now)
		if !p.Flag(days, a.OpenRequests) {
			continue
		}
		out = append(out, stats.UnderservedHousehold{
			HouseholdID:             a.HouseholdID,
			Name:                    a.Name,
			Address:                 a.Address,
			LastCollection:          a.LastCollection,
			DaysSinceLastCollection: days,
			PendingRequestCount:     a.OpenRequests,
			Underserved:             true,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DaysSinceLastCollection != out[j].DaysSinceLastCollection {
			return out[i].DaysSinceLastCollection > out[j].DaysSinceLastCollection
		}
		return out[i].PendingRequestCount > out[j].PendingRequestCount
	})
	return out
}

func daysSince(last *time.Time, now time.Time) int {
	if last == nil {
		return stats.NoCollectionHistoryDays
	}
	d := now.Sub(*last)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

func (s *analyticsService) ComparativeData(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) (*stats.ComparativeData, error) {
	const op = "Analytics.ComparativeData"
	mid, err := s.requireMunicipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, err
	}
	if w, err = resolveWindow(op, w, s.now()); err != nil {
		return nil, err
	}
	peers, err := s.deps.Requests.MunicipalityIDsWithRequests(dbctx.Of(ctx), repos.RequestFilter{CreatedFrom: w.Start, CreatedTo: w.End})
	if err != nil {
		return nil, repoErr(op, err)
	}

	all := make([]stats.MunicipalityMetrics, len(peers))
	var current stats.MunicipalityMetrics
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ComparativeConcurrency)
	g.Go(func() error {
		m, err := s.metricsFor(gctx, mid, w)
		current = m
		return err
	})
	for i, pid := range peers {
		g.Go(func() error {
			m, err := s.metricsFor(gctx, pid, w)
			all[i] = m
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, repoErr(op, err)
	}

	avg := stats.Mean(all)
	return &stats.ComparativeData{
		MunicipalityID: mid,
		Window:         w,
		Current:        current,
		Average:        avg,
		Ratio:          stats.Ratios(current, avg),
		Compared:       len(peers),
	}, nil
}

func (s *analyticsService) metricsFor(ctx context.Context, mid uuid.UUID, w stats.Window) (stats.MunicipalityMetrics, error) {
	dbc := dbctx.Of(ctx)
	var m stats.MunicipalityMetrics
	rf := repos.RequestFilter{MunicipalityID: mid, CreatedFrom: w.Start, CreatedTo: w.End}
	byStatus, err := s.deps.Requests.CountByStatus(dbc, rf)
	if err != nil {
		return m, err
	}
	total := stats.StatusCounts(byStatus).Total()
	m.TotalRequests = float64(total)
	m.CompletionRate = stats.CompletionRate(byStatus[string(collection.StatusCompleted)], total)
	durations, err := s.deps.Requests.CompletedDurations(dbc, rf)
	if err != nil {
		return m, err
	}
	m.AverageResponseHours = meanHours(durations)
	if m.TotalWeightKg, err = s.deps.Collections.SumWeight(dbc, repos.CollectionFilter{MunicipalityID: mid, From: w.Start, To: w.End}); err != nil {
		return m, err
	}
	if m.Revenue, err = s.deps.Payments.SumAmount(dbc, repos.PaymentFilter{MunicipalityID: mid, Statuses: successful(), From: w.Start, To: w.End}); err != nil {
		return m, err
	}
	rs, err := s.deps.Ratings.Summary(dbc, repos.RatingFilter{MunicipalityID: mid, From: w.Start, To: w.End})
	if err != nil {
		return m, err
	}
	m.AverageRating = rs.Average
	return m, nil
}

func meanHours(ds []time.Duration) float64 {
	if len(ds) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range ds {
		sum += d
	}
	return sum.Hours() / float64(len(ds))
}

// PerformanceMetrics covers every municipality in scope when municipalityID is nil.
func (s *analyticsService) PerformanceMetrics(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) (*stats.PerformanceMetrics, error) {
	const op = "Analytics.PerformanceMetrics"
	mid, err := s.scope.municipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, err
	}
	if w, err = resolveWindow(op, w, s.now()); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	rf := repos.RequestFilter{MunicipalityID: mid, CreatedFrom: w.Start, CreatedTo: w.End}
	out := &stats.PerformanceMetrics{Window: w}
	if mid != uuid.Nil {
		out.MunicipalityID = &mid
	}
	byStatus, err := s.deps.Requests.CountByStatus(dbc, rf)
	if err != nil {
		return nil, repoErr(op, err)
	}
	out.TotalRequests = stats.StatusCounts(byStatus).Total()
	out.CompletedRequests = byStatus[string(collection.StatusCompleted)]
	out.CollectionEfficiency = stats.CompletionRate(out.CompletedRequests, out.TotalRequests)
	durations, err := s.deps.Requests.CompletedDurations(dbc, rf)
	if err != nil {
		return nil, repoErr(op, err)
	}
	out.AverageResponseTimeHours = meanHours(durations)

	completions, err := s.deps.Analytics.CollectorCompletions(dbc, mid, w)
	if err != nil {
		return nil, repoErr(op, err)
	}
	ratings, err := s.deps.Ratings.SummaryByCollector(dbc, repos.RatingFilter{MunicipalityID: mid, From: w.Start, To: w.End})
	if err != nil {
		return nil, repoErr(op, err)
	}
	out.Collectors = make([]stats.CollectorPerformance, 0, len(completions))
	for _, c := range completions {
		out.Collectors = append(out.Collectors, stats.CollectorPerformance{
			CollectorID:   c.CollectorID,
			Name:          c.Name,
			Completed:     c.Completed,
			AverageRating: ratings[c.CollectorID].Average,
		})
	}
	return out, nil
}

func (s *analyticsService) WasteTypeBreakdown(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) ([]stats.WasteTypeCount, error) {
	const op = "Analytics.WasteTypeBreakdown"
	mid, err := s.scope.municipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, err
	}
	if w, err = resolveWindow(op, w, s.now()); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	counts, err := s.deps.Analytics.RequestsByWasteType(dbc, mid, w)
	if err != nil {
		return nil, repoErr(op, err)
	}
	weights, err := s.deps.Collections.WeightByWasteType(dbc, repos.CollectionFilter{MunicipalityID: mid, From: w.Start, To: w.End})
	if err != nil {
		return nil, repoErr(op, err)
	}
	out := make([]stats.WasteTypeCount, 0, len(collection.WasteTypes))
	for _, wt := range collection.WasteTypes {
		out = append(out, stats.WasteTypeCount{
			WasteType: string(wt),
			Requests:  counts[string(wt)],
			WeightKg:  weights[string(wt)],
		})
	}
	return out, nil
}

func (s *analyticsService) DailyTrend(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, w stats.Window) ([]stats.DailyCount, error) {
	const op = "Analytics.DailyTrend"
	mid, err := s.scope.municipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, err
	}
	if w, err = resolveWindow(op, w, s.now()); err != nil {
		return nil, err
	}
	rows, err := s.deps.Analytics.DailyRequestCounts(dbctx.Of(ctx), mid, w)
	if err != nil {
		return nil, repoErr(op, err)
	}
	return rows, nil
}

// requireMunicipality resolves scope and insists on a concrete, existing municipality.
func (s *analyticsService) requireMunicipality(ctx context.Context, op string, id auth.Identity, requested uuid.UUID) (uuid.UUID, error) {
	mid, err := s.scope.municipality(ctx, op, id, requested)
	if err != nil {
		return uuid.Nil, err
	}
	if mid == uuid.Nil {
		return uuid.Nil, domainagg.FieldError(op, "municipality_id", "municipality is required")
	}
	m, err := s.deps.Municipalities.GetByID(dbctx.Of(ctx), mid)
	if err != nil {
		return uuid.Nil, repoErr(op, err)
	}
	if m == nil {
		return uuid.Nil, domainagg.NotFound(op, "municipality")
	}
	return mid, nil
}
