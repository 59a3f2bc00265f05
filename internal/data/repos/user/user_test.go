package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewUserRepo(db, testutil.Logger(t))
	mun := testutil.SeedMunicipality(t, ctx, tx, "repo")

	created, err := repo.Create(dbc, []*user.User{
		{
			Name:         "Thandi",
			Email:        "  Thandi@Example.com ",
			PasswordHash: "pw",
			Role:         user.RoleHousehold,
			Enabled:      true,
			Household:    &user.HouseholdProfile{MunicipalityID: mun.ID, HouseholdSize: 4},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: unexpected result %+v", created)
	}

	got, err := repo.GetByID(dbc, created[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Household == nil {
		t.Fatalf("GetByID: expected household profile, got %+v", got)
	}
	munID, ok := got.MunicipalityID()
	if !ok || munID != mun.ID {
		t.Fatalf("MunicipalityID: want %s got %s", mun.ID, munID)
	}
	if _, ok := got.Profile().(*user.HouseholdProfile); !ok {
		t.Fatalf("Profile: expected *HouseholdProfile, got %T", got.Profile())
	}

	byEmail, err := repo.GetByEmail(dbc, "thandi@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if byEmail == nil || byEmail.ID != created[0].ID {
		t.Fatalf("GetByEmail: expected normalized match, got %+v", byEmail)
	}

	exists, err := repo.EmailExists(dbc, "THANDI@example.com")
	if err != nil {
		t.Fatalf("EmailExists: %v", err)
	}
	if !exists {
		t.Fatalf("EmailExists: expected true")
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByID missing: expected nil")
	}
}

func TestUserRepoListFilters(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewUserRepo(db, testutil.Logger(t))

	a := testutil.SeedMunicipality(t, ctx, tx, "a")
	b := testutil.SeedMunicipality(t, ctx, tx, "b")
	testutil.SeedHousehold(t, ctx, tx, a.ID)
	testutil.SeedHousehold(t, ctx, tx, b.ID)
	testutil.SeedCollector(t, ctx, tx, a.ID)
	testutil.SeedAdmin(t, ctx, tx)

	rows, total, err := repo.List(dbc, Filter{MunicipalityID: a.ID})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Fatalf("List by municipality: want 2 got total=%d len=%d", total, len(rows))
	}

	ids, err := repo.ListIDs(dbc, Filter{Role: user.RoleHousehold})
	if err != nil {
		t.Fatalf("ListIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ListIDs by role: want 2 got %d", len(ids))
	}

	counts, err := repo.CountByRole(dbc)
	if err != nil {
		t.Fatalf("CountByRole: %v", err)
	}
	if counts[string(user.RoleHousehold)] != 2 || counts[string(user.RoleAdmin)] != 1 {
		t.Fatalf("CountByRole: unexpected %+v", counts)
	}

	_, total, err = repo.List(dbc, Filter{Limit: 1})
	if err != nil {
		t.Fatalf("List paged: %v", err)
	}
	if total != 4 {
		t.Fatalf("List paged: want total 4 got %d", total)
	}
}
