package stats

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
)

func TestAnalyticsRepoHouseholdActivity(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAnalyticsRepo(db, testutil.Logger(t))

	mun := testutil.SeedMunicipality(t, ctx, tx, "an")
	served := testutil.SeedHousehold(t, ctx, tx, mun.ID)
	never := testutil.SeedHousehold(t, ctx, tx, mun.ID)
	col := testutil.SeedCollector(t, ctx, tx, mun.ID)

	at := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	done := testutil.SeedRequest(t, ctx, tx, served, &col.ID, collection.StatusCompleted)
	testutil.SeedCollection(t, ctx, tx, done, at, 5)
	testutil.SeedRequest(t, ctx, tx, never, nil, collection.StatusPending)
	testutil.SeedRequest(t, ctx, tx, never, &col.ID, collection.StatusInProgress)
	testutil.SeedRequest(t, ctx, tx, never, nil, collection.StatusCancelled)

	rows, err := repo.HouseholdActivity(dbc, mun.ID)
	if err != nil {
		t.Fatalf("HouseholdActivity: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("HouseholdActivity: want 2 rows got %d", len(rows))
	}
	byID := map[string]HouseholdActivity{}
	for _, r := range rows {
		byID[r.HouseholdID.String()] = r
	}
	s := byID[served.ID.String()]
	if s.LastCollection == nil || !s.LastCollection.Equal(at) {
		t.Fatalf("served household: want last collection %s got %v", at, s.LastCollection)
	}
	n := byID[never.ID.String()]
	if n.LastCollection != nil {
		t.Fatalf("never-served household: expected no last collection, got %v", n.LastCollection)
	}
	if n.OpenRequests != 2 {
		t.Fatalf("never-served household: want 2 open requests got %d", n.OpenRequests)
	}

	hh, err := repo.CountHouseholds(dbc, mun.ID)
	if err != nil || hh != 2 {
		t.Fatalf("CountHouseholds: want 2 got %d (%v)", hh, err)
	}
	active, err := repo.CountActiveCollectors(dbc, mun.ID)
	if err != nil || active != 1 {
		t.Fatalf("CountActiveCollectors: want 1 got %d (%v)", active, err)
	}
}

func TestAnalyticsRepoDailyAndPerMunicipality(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewAnalyticsRepo(db, testutil.Logger(t))

	a := testutil.SeedMunicipality(t, ctx, tx, "a")
	b := testutil.SeedMunicipality(t, ctx, tx, "b")
	hh := testutil.SeedHousehold(t, ctx, tx, a.ID)
	testutil.SeedRequest(t, ctx, tx, hh, nil, collection.StatusPending)
	testutil.SeedRequest(t, ctx, tx, hh, nil, collection.StatusPending)

	now := time.Now().UTC()
	w := stats.Window{Start: now.Add(-24 * time.Hour), End: now.Add(time.Hour)}

	daily, err := repo.DailyRequestCounts(dbc, a.ID, w)
	if err != nil {
		t.Fatalf("DailyRequestCounts: %v", err)
	}
	var total int64
	for _, d := range daily {
		total += d.Requests
		if len(d.Day) != len("2006-01-02") {
			t.Fatalf("DailyRequestCounts: malformed day %q", d.Day)
		}
	}
	if total != 2 {
		t.Fatalf("DailyRequestCounts: want 2 requests got %d (%+v)", total, daily)
	}

	per, err := repo.RequestsPerMunicipality(dbc, w)
	if err != nil {
		t.Fatalf("RequestsPerMunicipality: %v", err)
	}
	counts := map[string]int64{}
	for _, p := range per {
		counts[p.MunicipalityID.String()] = p.Requests
	}
	if counts[a.ID.String()] != 2 || counts[b.ID.String()] != 0 {
		t.Fatalf("RequestsPerMunicipality: unexpected %+v", per)
	}

	byType, err := repo.RequestsByWasteType(dbc, a.ID, w)
	if err != nil {
		t.Fatalf("RequestsByWasteType: %v", err)
	}
	if byType[string(collection.WasteGarden)] != 2 {
		t.Fatalf("RequestsByWasteType: unexpected %+v", byType)
	}
}

func TestSQLTimeScan(t *testing.T) {
	var st sqlTime
	if err := st.Scan("2024-03-10 09:00:00+00:00"); err != nil || !st.Valid {
		t.Fatalf("scan sqlite text: %v", err)
	}
	if err := st.Scan("2024-03-10"); err != nil || st.Time.Day() != 10 {
		t.Fatalf("scan date: %v", err)
	}
	if err := st.Scan(nil); err != nil || st.Valid {
		t.Fatalf("scan nil: %v", err)
	}
}
