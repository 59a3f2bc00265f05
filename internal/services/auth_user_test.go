package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/apierr"
)

func newAuth(e *testEnv, now Clock) AuthService {
	return NewAuthService(AuthServiceDeps{
		Users:          e.set.User,
		Tokens:         e.set.UserToken,
		Municipalities: e.set.Municipality,
		JWTSecretKey:   "test-secret",
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     24 * time.Hour,
		Now:            now,
	})
}

func requireUnauthorized(t *testing.T, err error) {
	t.Helper()
	var ae *apierr.Error
	require.True(t, errors.As(err, &ae), "got %v", err)
	require.Equal(t, http.StatusUnauthorized, ae.Status)
}

func TestAuthRegisterLoginRefresh(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	now := time.Now().UTC()
	clock := func() time.Time { return now }
	as := newAuth(e, clock)

	u, err := as.Register(ctx, RegisterInput{
		Name:           "Thandi",
		Email:          "  Thandi@Example.com ",
		Password:       "correct-horse",
		Phone:          "0821234567",
		Address:        "12 Oak St",
		Role:           user.RoleHousehold,
		MunicipalityID: e.mun.ID,
		HouseholdSize:  4,
	})
	require.NoError(t, err)
	require.Equal(t, "thandi@example.com", u.Email)
	require.NotEqual(t, "correct-horse", u.PasswordHash)

	_, err = as.Register(ctx, RegisterInput{
		Name: "Dup", Email: "thandi@example.com", Password: "correct-horse",
		Role: user.RoleHousehold, MunicipalityID: e.mun.ID,
	})
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)
	require.Contains(t, domainagg.FieldsOf(err), "email")

	_, err = as.Register(ctx, RegisterInput{
		Name: "Boss", Email: "boss@example.com", Password: "correct-horse",
		Role: user.RoleAdmin, MunicipalityID: e.mun.ID,
	})
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)

	_, err = as.Login(ctx, "thandi@example.com", "wrong-password")
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)
	_, err = as.Login(ctx, "nobody@example.com", "correct-horse")
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)

	pair, err := as.Login(ctx, "THANDI@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.EqualValues(t, 900, pair.ExpiresIn)

	id, err := as.ParseToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, u.ID, id.UserID)
	require.Equal(t, user.RoleHousehold, id.Role)

	_, err = newAuth(e, clock).ParseToken(pair.AccessToken + "x")
	requireUnauthorized(t, err)
	_, err = NewAuthService(AuthServiceDeps{JWTSecretKey: "other", Now: clock}).ParseToken(pair.AccessToken)
	requireUnauthorized(t, err)

	rotated, err := as.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)
	_, err = as.Refresh(ctx, pair.RefreshToken)
	requireUnauthorized(t, err)

	later := newAuth(e, func() time.Time { return now.Add(25 * time.Hour) })
	_, err = later.ParseToken(rotated.AccessToken)
	requireUnauthorized(t, err)
	_, err = later.Refresh(ctx, rotated.RefreshToken)
	requireUnauthorized(t, err)

	fresh, err := as.Login(ctx, "thandi@example.com", "correct-horse")
	require.NoError(t, err)
	require.NoError(t, as.Logout(ctx, fresh.RefreshToken))
	_, err = as.Refresh(ctx, fresh.RefreshToken)
	requireUnauthorized(t, err)
}

func TestLockedAccountCannotSignIn(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	as := newAuth(e, nil)

	staff, err := e.users.CreateStaff(ctx, idOf(e.admin), CreateStaffInput{
		Name:           "Sipho",
		Email:          "sipho@example.com",
		Password:       "collector-pass",
		Role:           user.RoleCollector,
		MunicipalityID: e.mun.ID,
	})
	require.NoError(t, err)
	pair, err := as.Login(ctx, "sipho@example.com", "collector-pass")
	require.NoError(t, err)

	locked, err := e.users.SetLocked(ctx, idOf(e.admin), staff.ID, true)
	require.NoError(t, err)
	require.True(t, locked.Locked)

	_, err = as.Login(ctx, "sipho@example.com", "collector-pass")
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)
	// locking revokes existing sessions
	_, err = as.Refresh(ctx, pair.RefreshToken)
	requireUnauthorized(t, err)

	_, err = e.users.SetLocked(ctx, idOf(e.admin), e.admin.ID, true)
	require.True(t, domainagg.IsCode(err, domainagg.CodeInvalidState), "got %v", err)
	_, err = e.users.SetEnabled(ctx, idOf(e.manager), staff.ID, false)
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)
}

func TestCreateStaffScope(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	c, err := e.users.CreateStaff(ctx, idOf(e.manager), CreateStaffInput{
		Name: "New Collector", Email: "nc@example.com", Password: "password1", Role: user.RoleCollector,
	})
	require.NoError(t, err)
	mid, ok := c.MunicipalityID()
	require.True(t, ok)
	require.Equal(t, e.mun.ID, mid)

	_, err = e.users.CreateStaff(ctx, idOf(e.manager), CreateStaffInput{
		Name: "Another Manager", Email: "am@example.com", Password: "password1", Role: user.RoleManager, MunicipalityID: e.mun.ID,
	})
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)

	_, err = e.users.CreateStaff(ctx, idOf(e.manager), CreateStaffInput{
		Name: "Stray", Email: "stray@example.com", Password: "password1", Role: user.RoleCollector, MunicipalityID: uuid.New(),
	})
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)

	first, err := e.users.BootstrapAdmin(ctx, "Root", "root@example.com", "root-password")
	require.NoError(t, err)
	again, err := e.users.BootstrapAdmin(ctx, "Root", "ROOT@example.com", "root-password")
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)
	_, err = e.users.BootstrapAdmin(ctx, "Root", e.household.Email, "root-password")
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)
}

func TestMunicipalityAdministration(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	_, err := e.municipality.Create(ctx, idOf(e.admin), MunicipalityInput{Name: e.mun.Name})
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)
	require.Contains(t, domainagg.FieldsOf(err), "name")

	_, err = e.municipality.Create(ctx, idOf(e.manager), MunicipalityInput{Name: "Nope"})
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)

	m, err := e.municipality.Create(ctx, idOf(e.admin), MunicipalityInput{Name: "Stellenbosch", Province: "Western Cape", Population: 200000})
	require.NoError(t, err)
	require.True(t, m.Enabled)

	renamed := "Stellenbosch Local"
	updated, err := e.municipality.Update(ctx, idOf(e.admin), m.ID, MunicipalityUpdate{Name: &renamed})
	require.NoError(t, err)
	require.Equal(t, renamed, updated.Name)

	createRequest(t, e)
	err = e.municipality.Delete(ctx, idOf(e.admin), e.mun.ID)
	require.True(t, domainagg.IsCode(err, domainagg.CodeInvalidState), "got %v", err)

	require.NoError(t, e.municipality.Delete(ctx, idOf(e.admin), m.ID))
	_, err = e.municipality.Get(ctx, m.ID)
	require.True(t, domainagg.IsCode(err, domainagg.CodeNotFound), "got %v", err)
}
