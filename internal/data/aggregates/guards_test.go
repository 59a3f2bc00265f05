package aggregates

import (
	"context"
	"testing"

	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
)

func TestRequireStatusAllowed(t *testing.T) {
	if err := RequireStatusAllowed("PENDING", "PENDING", "ACCEPTED"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err := RequireStatusAllowed("COMPLETED", "PENDING", "ACCEPTED")
	if err == nil {
		t.Fatalf("expected invalid state error")
	}
	if !domainagg.IsCode(MapError("op", err), domainagg.CodeInvalidState) {
		t.Fatalf("expected invalid_state after mapping, got %v", err)
	}
}

func TestCASGuardUpdateByStatus(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	mun := testutil.SeedMunicipality(t, ctx, tx, "cas")
	hh := testutil.SeedHousehold(t, ctx, tx, mun.ID)
	r := testutil.SeedRequest(t, ctx, tx, hh, nil, collection.StatusPending)

	g := NewCASGuard(db)
	ok, err := g.UpdateByStatus(dbc, "service_request", r.ID, []string{"PENDING"}, map[string]any{"status": "ACCEPTED"})
	if err != nil || !ok {
		t.Fatalf("first CAS: ok=%v err=%v", ok, err)
	}
	ok, err = g.UpdateByStatus(dbc, "service_request", r.ID, []string{"PENDING"}, map[string]any{"status": "REJECTED"})
	if err != nil {
		t.Fatalf("second CAS: %v", err)
	}
	if ok {
		t.Fatalf("second CAS should lose")
	}

	ok, err = g.UpdateByStatusAndVersion(dbc, "service_request", r.ID, "ACCEPTED", 0, map[string]any{"version": 1})
	if err != nil || !ok {
		t.Fatalf("versioned CAS: ok=%v err=%v", ok, err)
	}
	ok, err = g.UpdateByStatusAndVersion(dbc, "service_request", r.ID, "ACCEPTED", 0, map[string]any{"version": 1})
	if err != nil || ok {
		t.Fatalf("stale versioned CAS: ok=%v err=%v", ok, err)
	}
}
