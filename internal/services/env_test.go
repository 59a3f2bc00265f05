package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	dataagg "github.com/yungbote/wastecollect-backend/internal/data/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/municipality"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
)

// recordingPublisher captures live events instead of streaming them.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (p *recordingPublisher) Publish(_ context.Context, msg realtime.SSEMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func (p *recordingPublisher) count(channel string, event realtime.SSEEvent) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.msgs {
		if m.Channel == channel && m.Event == event {
			n++
		}
	}
	return n
}

type testEnv struct {
	db     *gorm.DB
	set    repos.Set
	pub    *recordingPublisher
	runner dataagg.TxRunner

	notifications NotificationService
	requests      ServiceRequestService
	ratings       RatingService
	disputes      DisputeService
	payments      PaymentService
	analytics     AnalyticsService
	statistics    StatisticsService
	users         UserService
	municipality  MunicipalityService
	collections   WasteCollectionService

	mun        *municipality.Municipality
	household  *user.User
	collector  *user.User
	collector2 *user.User
	manager    *user.User
	admin      *user.User
}

// newTestEnv seeds one municipality with a household, two collectors, a manager
// and an admin, and wires every service over a private database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	e := &testEnv{db: db, set: repos.NewSet(db, log), pub: &recordingPublisher{}}
	e.mun = testutil.SeedMunicipality(t, ctx, db, "svc")
	e.household = testutil.SeedHousehold(t, ctx, db, e.mun.ID)
	e.collector = testutil.SeedCollector(t, ctx, db, e.mun.ID)
	e.collector2 = testutil.SeedCollector(t, ctx, db, e.mun.ID)
	e.manager = testutil.SeedManager(t, ctx, db, e.mun.ID)
	e.admin = testutil.SeedAdmin(t, ctx, db)

	live := NewRealtimeNotifier(e.pub)
	runner := dataagg.NewGormTxRunner(db)
	e.runner = runner
	e.notifications = NewNotificationService(NotificationServiceDeps{
		Log:           log,
		Notifications: e.set.Notification,
		Users:         e.set.User,
		Realtime:      live,
	})
	agg := dataagg.NewServiceRequestAggregate(dataagg.ServiceRequestAggregateDeps{
		Base:          dataagg.BaseDeps{DB: db, Log: log, Runner: runner},
		Requests:      e.set.ServiceRequest,
		Collections:   e.set.WasteCollection,
		Notifications: e.set.Notification,
	})
	e.requests = NewServiceRequestService(ServiceRequestServiceDeps{
		Log:           log,
		Aggregate:     agg,
		Requests:      e.set.ServiceRequest,
		Users:         e.set.User,
		Notifications: e.notifications,
		Realtime:      live,
	})
	e.ratings = NewRatingService(RatingServiceDeps{
		Log:           log,
		Runner:        runner,
		Requests:      e.set.ServiceRequest,
		Ratings:       e.set.CollectorRating,
		Notifications: e.notifications,
	})
	e.disputes = NewDisputeService(DisputeServiceDeps{
		Log:           log,
		Runner:        runner,
		Users:         e.set.User,
		Disputes:      e.set.Dispute,
		Requests:      e.set.ServiceRequest,
		Payments:      e.set.Payment,
		Notifications: e.notifications,
	})
	e.payments = NewPaymentService(PaymentServiceDeps{
		Log:           log,
		Runner:        runner,
		Payments:      e.set.Payment,
		Requests:      e.set.ServiceRequest,
		Users:         e.set.User,
		Notifications: e.notifications,
	})
	e.analytics = NewAnalyticsService(AnalyticsServiceDeps{
		Log:            log,
		Requests:       e.set.ServiceRequest,
		Collections:    e.set.WasteCollection,
		Ratings:        e.set.CollectorRating,
		Payments:       e.set.Payment,
		Disputes:       e.set.Dispute,
		Users:          e.set.User,
		Municipalities: e.set.Municipality,
		Analytics:      e.set.Analytics,
		Config:         AnalyticsConfig{ComparativeConcurrency: 2},
	})
	e.statistics = NewStatisticsService(StatisticsServiceDeps{
		Log:            log,
		Statistics:     e.set.Statistics,
		Requests:       e.set.ServiceRequest,
		Collections:    e.set.WasteCollection,
		Ratings:        e.set.CollectorRating,
		Payments:       e.set.Payment,
		Municipalities: e.set.Municipality,
		Analytics:      e.set.Analytics,
		Users:          e.set.User,
	})
	e.users = NewUserService(UserServiceDeps{
		Log:            log,
		Users:          e.set.User,
		Tokens:         e.set.UserToken,
		Municipalities: e.set.Municipality,
	})
	e.municipality = NewMunicipalityService(MunicipalityServiceDeps{
		Log:            log,
		Municipalities: e.set.Municipality,
		Requests:       e.set.ServiceRequest,
		Users:          e.set.User,
	})
	e.collections = NewWasteCollectionService(WasteCollectionServiceDeps{
		Log:         log,
		Collections: e.set.WasteCollection,
		Requests:    e.set.ServiceRequest,
		Users:       e.set.User,
	})
	return e
}

func idOf(u *user.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Role: u.Role}
}
