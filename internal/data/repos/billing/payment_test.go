package billing

import (
	"context"
	"testing"

	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	"github.com/yungbote/wastecollect-backend/internal/domain/billing"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
)

func TestPaymentRepoSums(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewPaymentRepo(db, testutil.Logger(t))

	mun := testutil.SeedMunicipality(t, ctx, tx, "pay")
	hh := testutil.SeedHousehold(t, ctx, tx, mun.ID)
	col := testutil.SeedCollector(t, ctx, tx, mun.ID)
	r := testutil.SeedRequest(t, ctx, tx, hh, &col.ID, collection.StatusCompleted)

	testutil.SeedPayment(t, ctx, tx, r, 100, billing.StatusSuccessful)
	testutil.SeedPayment(t, ctx, tx, r, 50, billing.StatusSuccessful)
	failed := testutil.SeedPayment(t, ctx, tx, r, 999, billing.StatusFailed)

	sum, err := repo.SumAmount(dbc, PaymentFilter{
		CollectorID: col.ID,
		Statuses:    []billing.Status{billing.StatusSuccessful},
	})
	if err != nil {
		t.Fatalf("SumAmount: %v", err)
	}
	if sum != 150 {
		t.Fatalf("SumAmount: want 150 got %v", sum)
	}

	if err := repo.UpdateFields(dbc, failed.ID, map[string]interface{}{"status": billing.StatusRefunded}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, failed.ID)
	if err != nil || got == nil || got.Status != billing.StatusRefunded {
		t.Fatalf("GetByID after update: %+v %v", got, err)
	}

	rows, total, err := repo.List(dbc, PaymentFilter{HouseholdID: hh.ID, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(rows) != 2 {
		t.Fatalf("List: want total=3 len=2, got total=%d len=%d", total, len(rows))
	}
}
