package aggregates

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

type requestFixture struct {
	db        *gorm.DB
	agg       domainagg.ServiceRequestAggregate
	set       repos.Set
	household uuid.UUID
	collector uuid.UUID
	other     uuid.UUID
	request   *collection.ServiceRequest
}

func newRequestFixture(t *testing.T) requestFixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	mun := testutil.SeedMunicipality(t, ctx, db, "agg")
	hh := testutil.SeedHousehold(t, ctx, db, mun.ID)
	c1 := testutil.SeedCollector(t, ctx, db, mun.ID)
	c2 := testutil.SeedCollector(t, ctx, db, mun.ID)
	req := testutil.SeedRequest(t, ctx, db, hh, nil, collection.StatusPending)

	set := repos.NewSet(db, log)
	agg := NewServiceRequestAggregate(ServiceRequestAggregateDeps{
		Base:          BaseDeps{DB: db, Log: log},
		Requests:      set.ServiceRequest,
		Collections:   set.WasteCollection,
		Notifications: set.Notification,
	})
	return requestFixture{
		db: db, agg: agg, set: set,
		household: hh.ID, collector: c1.ID, other: c2.ID,
		request: req,
	}
}

func (f requestFixture) accept(ctx context.Context, collectorID uuid.UUID) (domainagg.TransitionResult, error) {
	cid := collectorID
	return f.agg.Transition(ctx, domainagg.TransitionInput{
		RequestID:   f.request.ID,
		Event:       collection.EventAccept,
		ActorID:     collectorID,
		CollectorID: &cid,
		Notify: func(updated *collection.ServiceRequest) []domainagg.NotificationDraft {
			return []domainagg.NotificationDraft{{
				RecipientID: updated.HouseholdID,
				Subject:     "Request accepted",
				Message:     "A collector accepted your request",
				Type:        notification.TypeServiceRequestUpdate,
			}}
		},
	})
}

func TestServiceRequestAcceptStartComplete(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	res, err := f.accept(ctx, f.collector)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if res.From != collection.StatusPending || res.Request.Status != collection.StatusAccepted {
		t.Fatalf("accept moved %s -> %s", res.From, res.Request.Status)
	}
	if !res.Request.AssignedTo(f.collector) {
		t.Fatalf("collector not assigned: %+v", res.Request.CollectorID)
	}
	if len(res.Notifications) != 1 || res.Notifications[0].RecipientID != f.household {
		t.Fatalf("accept notifications: %+v", res.Notifications)
	}

	if _, err := f.agg.Transition(ctx, domainagg.TransitionInput{RequestID: f.request.ID, Event: collection.EventStart}); err != nil {
		t.Fatalf("start: %v", err)
	}

	comment := "bags left at gate"
	done, err := f.agg.Complete(ctx, domainagg.CompleteRequestInput{
		RequestID:    f.request.ID,
		ActorID:      f.collector,
		Comment:      &comment,
		ActualWeight: 12.5,
		Notify: func(updated *collection.ServiceRequest, wc *collection.WasteCollection) []domainagg.NotificationDraft {
			return []domainagg.NotificationDraft{{RecipientID: updated.HouseholdID, Subject: "Collected", Message: "done"}}
		},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Request.Status != collection.StatusCompleted || done.Request.Version != 3 {
		t.Fatalf("complete: status=%s version=%d", done.Request.Status, done.Request.Version)
	}
	if done.Collection == nil || done.Collection.ActualWeight != 12.5 || done.Collection.CollectorID != f.collector {
		t.Fatalf("collection: %+v", done.Collection)
	}
	if done.Collection.CollectorComment != comment {
		t.Fatalf("collector comment: %q", done.Collection.CollectorComment)
	}

	n, err := f.set.WasteCollection.CountByServiceRequestID(dbctx.Of(ctx), f.request.ID)
	if err != nil || n != 1 {
		t.Fatalf("collections for request: n=%d err=%v", n, err)
	}
	unread, err := f.set.Notification.CountUnread(dbctx.Of(ctx), f.household)
	if err != nil || unread != 2 {
		t.Fatalf("household unread: n=%d err=%v", unread, err)
	}
}

func TestServiceRequestConcurrentAcceptOneWins(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, cid := range []uuid.UUID{f.collector, f.other} {
		wg.Add(1)
		go func(i int, cid uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.accept(ctx, cid)
		}(i, cid)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case domainagg.IsCode(err, domainagg.CodeInvalidState):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins=%d losses=%d", wins, losses)
	}

	got, err := f.set.ServiceRequest.GetByID(dbctx.Of(ctx), f.request.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Status != collection.StatusAccepted || got.CollectorID == nil || got.Version != 1 {
		t.Fatalf("final row: status=%s collector=%v version=%d", got.Status, got.CollectorID, got.Version)
	}
	unread, err := f.set.Notification.CountUnread(dbctx.Of(ctx), f.household)
	if err != nil || unread != 1 {
		t.Fatalf("exactly one acceptance notification expected: n=%d err=%v", unread, err)
	}
}

func TestServiceRequestTerminalRejectsEverything(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	if _, err := f.agg.Transition(ctx, domainagg.TransitionInput{
		RequestID: f.request.ID,
		Event:     collection.EventCancel,
		ActorID:   f.household,
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, err := f.set.ServiceRequest.GetByID(dbctx.Of(ctx), f.request.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.CancelledBy == nil || *got.CancelledBy != f.household {
		t.Fatalf("cancelled_by not recorded: %+v", got.CancelledBy)
	}

	for _, ev := range []string{collection.EventAccept, collection.EventAssign, collection.EventReject, collection.EventStart, collection.EventCancel} {
		_, err := f.agg.Transition(ctx, domainagg.TransitionInput{RequestID: f.request.ID, Event: ev})
		if !domainagg.IsCode(err, domainagg.CodeInvalidState) {
			t.Fatalf("%s on CANCELLED: want invalid_state, got %v", ev, err)
		}
	}
	_, err = f.agg.Complete(ctx, domainagg.CompleteRequestInput{RequestID: f.request.ID, ActualWeight: 1})
	if !domainagg.IsCode(err, domainagg.CodeInvalidState) {
		t.Fatalf("complete on CANCELLED: want invalid_state, got %v", err)
	}

	again, err := f.set.ServiceRequest.GetByID(dbctx.Of(ctx), f.request.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.Status != collection.StatusCancelled || again.Version != got.Version {
		t.Fatalf("terminal row changed: %+v", again)
	}
}

func TestServiceRequestCompleteRollsBackOnDuplicateCollection(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	if _, err := f.accept(ctx, f.collector); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.agg.Transition(ctx, domainagg.TransitionInput{RequestID: f.request.ID, Event: collection.EventStart}); err != nil {
		t.Fatalf("start: %v", err)
	}
	cur, err := f.set.ServiceRequest.GetByID(dbctx.Of(ctx), f.request.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	// A stray collection row already exists for this request.
	testutil.SeedCollection(t, ctx, f.db, cur, time.Now().UTC(), 1)

	_, err = f.agg.Complete(ctx, domainagg.CompleteRequestInput{RequestID: f.request.ID, ActualWeight: 3})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("want validation (duplicate), got %v", err)
	}
	after, err := f.set.ServiceRequest.GetByID(dbctx.Of(ctx), f.request.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if after.Status != collection.StatusInProgress {
		t.Fatalf("status should roll back to IN_PROGRESS, got %s", after.Status)
	}
}

func TestServiceRequestAuthorizeAndNotFound(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	_, err := f.agg.Transition(ctx, domainagg.TransitionInput{
		RequestID: f.request.ID,
		Event:     collection.EventReject,
		Authorize: func(*collection.ServiceRequest) error {
			return domainagg.Forbidden("test", "not yours")
		},
	})
	if !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}

	_, err = f.agg.Transition(ctx, domainagg.TransitionInput{RequestID: uuid.New(), Event: collection.EventAccept})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("want not_found, got %v", err)
	}
}

func TestServiceRequestCreateForcesPending(t *testing.T) {
	f := newRequestFixture(t)
	ctx := context.Background()

	cid := f.collector
	res, err := f.agg.Create(ctx, domainagg.CreateRequestInput{
		Request: &collection.ServiceRequest{
			Description:     "old fridge",
			WasteType:       collection.WasteBulky,
			EstimatedVolume: 2,
			Status:          collection.StatusCompleted,
			CollectorID:     &cid,
			Address:         "1 Main Rd",
			Phone:           "0800000000",
			HouseholdID:     f.household,
			MunicipalityID:  f.request.MunicipalityID,
		},
		Notify: func(req *collection.ServiceRequest) []domainagg.NotificationDraft {
			return []domainagg.NotificationDraft{
				{RecipientID: f.collector, Subject: "New request", Message: req.Description, Type: notification.TypeInfo},
				{RecipientID: f.other, Subject: "New request", Message: req.Description, Type: notification.TypeInfo},
			}
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Request.Status != collection.StatusPending || res.Request.CollectorID != nil {
		t.Fatalf("create should start PENDING and unassigned: %+v", res.Request)
	}
	if len(res.Notifications) != 2 {
		t.Fatalf("notifications: %d", len(res.Notifications))
	}
}
