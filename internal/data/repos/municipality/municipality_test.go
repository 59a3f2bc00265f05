package municipality

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	"github.com/yungbote/wastecollect-backend/internal/domain/municipality"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
)

func TestMunicipalityRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewMunicipalityRepo(db, testutil.Logger(t))

	created, err := repo.Create(dbc, []*municipality.Municipality{
		{Name: "Tshwane-" + uuid.NewString()[:6], Country: "ZA", Enabled: true},
		{Name: "Mangaung-" + uuid.NewString()[:6], Country: "ZA", Enabled: false},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	exists, err := repo.NameExists(dbc, created[0].Name, uuid.Nil)
	if err != nil || !exists {
		t.Fatalf("NameExists: want true, got %v (%v)", exists, err)
	}
	exists, err = repo.NameExists(dbc, created[0].Name, created[0].ID)
	if err != nil || exists {
		t.Fatalf("NameExists excluding self: want false, got %v (%v)", exists, err)
	}

	enabled, total, err := repo.List(dbc, true, 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(enabled) != 1 || enabled[0].ID != created[0].ID {
		t.Fatalf("List enabled: unexpected %+v (total %d)", enabled, total)
	}

	mgr := uuid.New()
	if err := repo.UpdateFields(dbc, created[1].ID, map[string]interface{}{"manager_id": mgr}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, created[1].ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.ManagerID == nil || *got.ManagerID != mgr {
		t.Fatalf("ManagerID not updated: %+v", got.ManagerID)
	}

	ok, err := repo.Delete(dbc, created[1].ID)
	if err != nil || !ok {
		t.Fatalf("Delete: %v %v", ok, err)
	}
	n, err := repo.Count(dbc)
	if err != nil || n != 1 {
		t.Fatalf("Count after delete: want 1 got %d (%v)", n, err)
	}
}
