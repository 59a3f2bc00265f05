package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/municipality"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	httpMW "github.com/yungbote/wastecollect-backend/internal/http/middleware"
	"github.com/yungbote/wastecollect-backend/internal/platform/localstore"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fixedTokens accepts canned tokens for seeded staff and defers everything else
// to the real JWT parser.
type fixedTokens struct {
	real   httpMW.TokenParser
	tokens map[string]auth.Identity
}

func (p fixedTokens) ParseToken(s string) (auth.Identity, error) {
	if id, ok := p.tokens[s]; ok {
		return id, nil
	}
	return p.real.ParseToken(s)
}

type apiEnv struct {
	t       *testing.T
	handler http.Handler

	mun       *municipality.Municipality
	household *user.User
	collector *user.User
	manager   *user.User
	admin     *user.User
}

const (
	householdToken = "household-token"
	collectorToken = "collector-token"
	managerToken   = "manager-token"
	adminToken     = "admin-token"
)

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	e := &apiEnv{t: t}
	e.mun = testutil.SeedMunicipality(t, ctx, db, "api")
	e.household = testutil.SeedHousehold(t, ctx, db, e.mun.ID)
	e.collector = testutil.SeedCollector(t, ctx, db, e.mun.ID)
	e.manager = testutil.SeedManager(t, ctx, db, e.mun.ID)
	e.admin = testutil.SeedAdmin(t, ctx, db)

	store, err := localstore.New(t.TempDir())
	require.NoError(t, err)

	cfg := defaultConfig()
	cfg.JWTSecretKey = "api-test-secret"
	hub := realtime.NewSSEHub(log)
	svc := wireServices(db, log, cfg, repos.NewSet(db, log), providers{Publisher: hub, Reports: store})
	parser := fixedTokens{real: svc.Auth, tokens: map[string]auth.Identity{
		householdToken: {UserID: e.household.ID, Role: user.RoleHousehold},
		collectorToken: {UserID: e.collector.ID, Role: user.RoleCollector},
		managerToken:   {UserID: e.manager.ID, Role: user.RoleManager},
		adminToken:     {UserID: e.admin.ID, Role: user.RoleAdmin},
	}}
	srv := wireServer(log, cfg, wireHandlers(log, db, svc, hub), httpMW.NewAuthMiddleware(log, parser), nil)
	e.handler = srv.Engine
	return e
}

func (e *apiEnv) do(method, path, token string, body any) (int, map[string]any) {
	e.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	out := map[string]any{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	}
	return w.Code, out
}

func errorCode(body map[string]any) string {
	env, _ := body["error"].(map[string]any)
	code, _ := env["code"].(string)
	return code
}

func field(body map[string]any, obj, key string) any {
	m, _ := body[obj].(map[string]any)
	return m[key]
}

func TestAPIHealthcheck(t *testing.T) {
	e := newAPIEnv(t)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ok", w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestAPIRequestLifecycle(t *testing.T) {
	e := newAPIEnv(t)

	code, body := e.do(http.MethodPost, "/api/register", "", map[string]any{
		"name":            "Thandi Household",
		"email":           "thandi@example.org",
		"password":        "password123",
		"role":            "HOUSEHOLD",
		"municipality_id": e.mun.ID,
		"address":         "12 Main Road",
		"phone":           "+27 11 555 0101",
	})
	require.Equal(t, http.StatusCreated, code, "%v", body)

	code, body = e.do(http.MethodPost, "/api/login", "", map[string]any{
		"email":    "thandi@example.org",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, code, "%v", body)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)

	code, body = e.do(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "thandi@example.org", field(body, "user", "email"))

	code, body = e.do(http.MethodPost, "/api/service-requests", token, map[string]any{
		"description":      "garden refuse",
		"waste_type":       "garden",
		"estimated_volume": 1.5,
	})
	require.Equal(t, http.StatusCreated, code, "%v", body)
	id, _ := field(body, "service_request", "id").(string)
	require.NotEmpty(t, id)
	require.Equal(t, "PENDING", field(body, "service_request", "status"))

	code, body = e.do(http.MethodGet, "/api/service-requests", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, body["total"])

	// Households cannot use collector routes.
	code, _ = e.do(http.MethodPost, "/api/collector/requests/"+id+"/accept", token, nil)
	require.Equal(t, http.StatusForbidden, code)

	code, body = e.do(http.MethodGet, "/api/collector/requests/available", collectorToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, body["total"])

	code, body = e.do(http.MethodPost, "/api/collector/requests/"+id+"/accept", collectorToken, map[string]any{"note": "on the way"})
	require.Equal(t, http.StatusOK, code, "%v", body)
	require.Equal(t, "ACCEPTED", field(body, "service_request", "status"))

	code, body = e.do(http.MethodPost, "/api/collector/requests/"+id+"/accept", collectorToken, nil)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "invalid_state", errorCode(body))

	code, _ = e.do(http.MethodPost, "/api/collector/requests/"+id+"/start", collectorToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = e.do(http.MethodPost, "/api/collector/requests/"+id+"/complete", collectorToken, map[string]any{"actual_weight": 8.5})
	require.Equal(t, http.StatusOK, code, "%v", body)
	require.Equal(t, "COMPLETED", field(body, "service_request", "status"))
	require.NotNil(t, body["waste_collection"])

	code, body = e.do(http.MethodPost, "/api/household/requests/"+id+"/rate", token, map[string]any{"rating": 5, "comment": "tidy"})
	require.Equal(t, http.StatusCreated, code, "%v", body)
	code, body = e.do(http.MethodPost, "/api/household/requests/"+id+"/rate", token, map[string]any{"rating": 4})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "validation", errorCode(body))

	code, body = e.do(http.MethodGet, "/api/notifications/unread-count", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 3, body["count"])

	code, body = e.do(http.MethodPost, "/api/notifications/read-all", token, nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 3, body["updated"])

	code, body = e.do(http.MethodPost, "/api/service-requests/"+id+"/cancel", token, map[string]any{"reason": "too late"})
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "invalid_state", errorCode(body))

	code, body = e.do(http.MethodGet, "/api/collector/ratings", collectorToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.EqualValues(t, 1, body["total"])
	require.EqualValues(t, 5, field(body, "summary", "average"))
}

func TestAPIAuthFailures(t *testing.T) {
	e := newAPIEnv(t)

	code, _ := e.do(http.MethodGet, "/api/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(http.MethodGet, "/api/me", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, code)

	code, body := e.do(http.MethodPost, "/api/login", "", map[string]any{"email": "nobody@example.org", "password": "whatever1"})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "validation", errorCode(body))

	code, _ = e.do(http.MethodGet, "/api/service-requests/not-a-uuid", householdToken, nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, body = e.do(http.MethodPost, "/api/service-requests", householdToken, map[string]any{
		"description":      "mystery",
		"waste_type":       "plutonium",
		"estimated_volume": 1,
	})
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "validation", errorCode(body))
}

func TestAPIStaffEndpoints(t *testing.T) {
	e := newAPIEnv(t)
	mid := e.mun.ID.String()

	code, body := e.do(http.MethodGet, "/api/municipalities/"+mid+"/dashboard", managerToken, nil)
	require.Equal(t, http.StatusOK, code, "%v", body)

	code, _ = e.do(http.MethodGet, "/api/municipalities/"+mid+"/dashboard", householdToken, nil)
	require.Equal(t, http.StatusForbidden, code)

	code, _ = e.do(http.MethodGet, "/api/municipalities/"+mid+"/underserved?days=soon", managerToken, nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, body = e.do(http.MethodGet, "/api/municipalities/"+mid+"/underserved", managerToken, nil)
	require.Equal(t, http.StatusOK, code, "%v", body)

	// With staleness out of reach, an explicit zero backlog minimum flags every household.
	code, body = e.do(http.MethodGet, "/api/municipalities/"+mid+"/underserved?days=1000&min_pending=0", managerToken, nil)
	require.Equal(t, http.StatusOK, code, "%v", body)
	flagged, _ := body["items"].([]any)
	require.Len(t, flagged, 1)
	code, body = e.do(http.MethodGet, "/api/municipalities/"+mid+"/underserved?days=1000&min_pending=1", managerToken, nil)
	require.Equal(t, http.StatusOK, code, "%v", body)
	flagged, _ = body["items"].([]any)
	require.Empty(t, flagged)

	code, _ = e.do(http.MethodGet, "/api/municipalities/"+mid+"/dashboard?start=yesterday", managerToken, nil)
	require.Equal(t, http.StatusBadRequest, code)

	code, body = e.do(http.MethodGet, "/api/admin/users?role=COLLECTOR", adminToken, nil)
	require.Equal(t, http.StatusOK, code, "%v", body)
	require.EqualValues(t, 1, body["total"])

	code, body = e.do(http.MethodPost, "/api/admin/statistics/snapshot", adminToken, map[string]any{
		"municipality_id": e.mun.ID,
		"period_type":     "MONTH",
	})
	require.Equal(t, http.StatusCreated, code, "%v", body)
	require.Equal(t, "MONTH", field(body, "statistics", "period_type"))

	code, body = e.do(http.MethodGet, "/api/municipalities/"+mid+"/statistics", managerToken, nil)
	require.Equal(t, http.StatusOK, code)
	items, _ := body["items"].([]any)
	require.Len(t, items, 1)

	code, body = e.do(http.MethodPost, "/api/municipalities/"+mid+"/reports", managerToken, nil)
	require.Equal(t, http.StatusOK, code, "%v", body)
	path, _ := field(body, "report", "path").(string)
	require.NotEmpty(t, path)

	req := httptest.NewRequest(http.MethodGet, "/api/reports/download?path="+url.QueryEscape(path), nil)
	req.Header.Set("Authorization", "Bearer "+managerToken)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	require.NotZero(t, w.Body.Len())

	code, body = e.do(http.MethodPost, "/api/notifications/send", managerToken, map[string]any{
		"mode":    "ROLE",
		"role":    "COLLECTOR",
		"subject": "Route change",
		"message": "Depot closed Friday",
	})
	require.Equal(t, http.StatusOK, code, "%v", body)
	require.EqualValues(t, 1, body["sent"])

	code, _ = e.do(http.MethodPost, "/api/notifications/send", collectorToken, map[string]any{"mode": "ALL", "subject": "x", "message": "y"})
	require.Equal(t, http.StatusForbidden, code)
}
