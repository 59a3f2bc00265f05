package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/apierr"
	"github.com/yungbote/wastecollect-backend/internal/platform/ctxutil"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type fakeParser map[string]auth.Identity

func (f fakeParser) ParseToken(tok string) (auth.Identity, error) {
	id, ok := f[tok]
	if !ok {
		return auth.Identity{}, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("bad token"))
	}
	return id, nil
}

func TestRequireAuthAndRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	admin := auth.Identity{UserID: uuid.New(), Role: user.RoleAdmin}
	household := auth.Identity{UserID: uuid.New(), Role: user.RoleHousehold}
	am := NewAuthMiddleware(logger.Nop(), fakeParser{"a": admin, "h": household})

	r := gin.New()
	r.GET("/admin", am.RequireAuth(), am.RequireRole(user.RoleAdmin), func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		c.String(http.StatusOK, rd.UserID.String())
	})

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
		{"wrong role", "Bearer h", "", http.StatusForbidden},
		{"admin header", "bearer a", "", http.StatusOK},
		{"admin query", "", "?token=a", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/admin"+tc.query, nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s: want %d got %d (%s)", tc.name, tc.want, rec.Code, rec.Body.String())
		}
		if tc.want == http.StatusOK && rec.Body.String() != admin.UserID.String() {
			t.Fatalf("%s: request data not attached, body=%q", tc.name, rec.Body.String())
		}
	}
}
