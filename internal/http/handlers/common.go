package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/http/response"
	"github.com/yungbote/wastecollect-backend/internal/platform/ctxutil"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

// identity is the caller attached by the auth middleware, or the zero Identity.
func identity(c *gin.Context) auth.Identity {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		return auth.Identity{}
	}
	return auth.Identity{UserID: rd.UserID, Role: user.Role(rd.Role)}
}

// pathID parses a uuid path parameter; on failure it has already responded.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid_id", errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// queryID parses an optional uuid query parameter. Absent means uuid.Nil.
func queryID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		response.BadRequest(c, "invalid_query", errors.New("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequest(c, "invalid_request", err)
		return false
	}
	return true
}

func page(c *gin.Context) services.Page {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return services.Page{Limit: limit, Offset: offset}
}

func list(c *gin.Context, items any, total int64) {
	p := page(c).Normalized()
	response.RespondList(c, items, total, p.Limit, p.Offset)
}

// window reads ?start=&end= as RFC3339 or YYYY-MM-DD. Missing bounds are
// filled in by the services.
func window(c *gin.Context) (stats.Window, bool) {
	var w stats.Window
	for _, f := range []struct {
		name string
		dst  *time.Time
	}{{"start", &w.Start}, {"end", &w.End}} {
		raw := strings.TrimSpace(c.Query(f.name))
		if raw == "" {
			continue
		}
		t, err := parseTime(raw)
		if err != nil {
			response.BadRequest(c, "invalid_query", errors.New("invalid "+f.name+": use RFC3339 or YYYY-MM-DD"))
			return stats.Window{}, false
		}
		// Windows are half-open, so a bare end date runs to the next midnight.
		if f.name == "end" && len(raw) == len("2006-01-02") {
			t = t.Add(24 * time.Hour)
		}
		*f.dst = t
	}
	return w, true
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", raw)
}

func queryBool(c *gin.Context, name string) *bool {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &b
}
