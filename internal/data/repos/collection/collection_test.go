package collection

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
)

func TestServiceRequestRepoFilters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	repo := NewServiceRequestRepo(db, log)

	mun := testutil.SeedMunicipality(t, ctx, tx, "sr")
	hh := testutil.SeedHousehold(t, ctx, tx, mun.ID)
	col := testutil.SeedCollector(t, ctx, tx, mun.ID)

	testutil.SeedRequest(t, ctx, tx, hh, nil, collection.StatusPending)
	testutil.SeedRequest(t, ctx, tx, hh, nil, collection.StatusPending)
	testutil.SeedRequest(t, ctx, tx, hh, &col.ID, collection.StatusAccepted)
	done := testutil.SeedRequest(t, ctx, tx, hh, &col.ID, collection.StatusCompleted)

	pending, total, err := repo.List(dbc, RequestFilter{
		MunicipalityID: mun.ID,
		Statuses:       []collection.Status{collection.StatusPending},
		Unassigned:     true,
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(pending) != 2 {
		t.Fatalf("List pending: want 2 got total=%d len=%d", total, len(pending))
	}

	page, total, err := repo.List(dbc, RequestFilter{HouseholdID: hh.ID, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List page: %v", err)
	}
	if total != 4 || len(page) != 1 {
		t.Fatalf("List page: want total=4 len=1 got total=%d len=%d", total, len(page))
	}

	counts, err := repo.CountByStatus(dbc, RequestFilter{CollectorID: col.ID})
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[string(collection.StatusAccepted)] != 1 || counts[string(collection.StatusCompleted)] != 1 || counts[string(collection.StatusPending)] != 0 {
		t.Fatalf("CountByStatus: unexpected %+v", counts)
	}

	locked, err := repo.LockByID(dbc, done.ID)
	if err != nil || locked == nil || locked.ID != done.ID {
		t.Fatalf("LockByID: %+v %v", locked, err)
	}

	durations, err := repo.CompletedDurations(dbc, RequestFilter{MunicipalityID: mun.ID})
	if err != nil {
		t.Fatalf("CompletedDurations: %v", err)
	}
	if len(durations) != 1 {
		t.Fatalf("CompletedDurations: want 1 got %d", len(durations))
	}

	ids, err := repo.MunicipalityIDsWithRequests(dbc, RequestFilter{})
	if err != nil {
		t.Fatalf("MunicipalityIDsWithRequests: %v", err)
	}
	if len(ids) != 1 || ids[0] != mun.ID {
		t.Fatalf("MunicipalityIDsWithRequests: unexpected %v", ids)
	}
}

func TestWasteCollectionUniquePerRequest(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	wcRepo := NewWasteCollectionRepo(db, testutil.Logger(t))

	mun := testutil.SeedMunicipality(t, ctx, tx, "wc")
	hh := testutil.SeedHousehold(t, ctx, tx, mun.ID)
	col := testutil.SeedCollector(t, ctx, tx, mun.ID)
	r1 := testutil.SeedRequest(t, ctx, tx, hh, &col.ID, collection.StatusCompleted)

	now := time.Now().UTC()
	testutil.SeedCollection(t, ctx, tx, r1, now.Add(-48*time.Hour), 10)

	if _, err := wcRepo.Create(dbc, []*collection.WasteCollection{{
		ServiceRequestID: r1.ID,
		CollectorID:      col.ID,
		HouseholdID:      hh.ID,
		MunicipalityID:   mun.ID,
		WasteType:        r1.WasteType,
		CollectionDate:   now,
		Status:           collection.StatusCompleted,
	}}); err == nil {
		t.Fatalf("Create: expected unique violation for second collection on the same request")
	}
}

func TestWasteCollectionQueries(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	log := testutil.Logger(t)
	wcRepo := NewWasteCollectionRepo(db, log)
	ratingRepo := NewCollectorRatingRepo(db, log)

	mun := testutil.SeedMunicipality(t, ctx, tx, "wcq")
	hh := testutil.SeedHousehold(t, ctx, tx, mun.ID)
	col := testutil.SeedCollector(t, ctx, tx, mun.ID)
	r1 := testutil.SeedRequest(t, ctx, tx, hh, &col.ID, collection.StatusCompleted)
	r2 := testutil.SeedRequest(t, ctx, tx, hh, &col.ID, collection.StatusCompleted)

	now := time.Now().UTC()
	testutil.SeedCollection(t, ctx, tx, r1, now.Add(-48*time.Hour), 10)
	testutil.SeedCollection(t, ctx, tx, r2, now.Add(-time.Hour), 2.5)

	n, err := wcRepo.CountByServiceRequestID(dbc, r1.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountByServiceRequestID: want 1 got %d (%v)", n, err)
	}

	recent, total, err := wcRepo.List(dbc, CollectionFilter{HouseholdID: hh.ID, From: now.Add(-24 * time.Hour)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(recent) != 1 || recent[0].ServiceRequestID != r2.ID {
		t.Fatalf("List window: unexpected %+v (total %d)", recent, total)
	}

	sum, err := wcRepo.SumWeight(dbc, CollectionFilter{CollectorID: col.ID})
	if err != nil || sum != 12.5 {
		t.Fatalf("SumWeight: want 12.5 got %v (%v)", sum, err)
	}

	testutil.SeedRating(t, ctx, tx, r1, 4)
	testutil.SeedRating(t, ctx, tx, r2, 5)

	exists, err := ratingRepo.ExistsForServiceRequest(dbc, r1.ID)
	if err != nil || !exists {
		t.Fatalf("ExistsForServiceRequest: want true got %v (%v)", exists, err)
	}
	summary, err := ratingRepo.Summary(dbc, RatingFilter{CollectorID: col.ID})
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Count != 2 || summary.Average != 4.5 {
		t.Fatalf("Summary: want avg 4.5 count 2, got %+v", summary)
	}
	byCollector, err := ratingRepo.SummaryByCollector(dbc, RatingFilter{MunicipalityID: mun.ID})
	if err != nil {
		t.Fatalf("SummaryByCollector: %v", err)
	}
	if byCollector[col.ID].Count != 2 {
		t.Fatalf("SummaryByCollector: unexpected %+v", byCollector)
	}
}
