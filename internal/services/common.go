package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/wastecollect-backend/internal/data/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	defaultWindow    = 30
)

// Page is list pagination as sent by clients.
type Page struct {
	Limit  int `form:"limit" json:"limit"`
	Offset int `form:"offset" json:"offset"`
}

func (p Page) Normalized() Page {
	if p.Limit <= 0 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

func requireIdentity(op string, id auth.Identity) error {
	if !id.Valid() {
		return domainagg.Forbidden(op, "authentication required")
	}
	return nil
}

func requireRole(op string, id auth.Identity, roles ...user.Role) error {
	if err := requireIdentity(op, id); err != nil {
		return err
	}
	if !id.Is(roles...) {
		return domainagg.Forbidden(op, "not permitted for role "+string(id.Role))
	}
	return nil
}

func repoErr(op string, err error) error {
	return dataagg.MapError(op, err)
}

// resolveWindow defaults an empty window to the last 30 days.
func resolveWindow(op string, w stats.Window, now time.Time) (stats.Window, error) {
	if w.Start.IsZero() && w.End.IsZero() {
		return stats.LastDays(now, defaultWindow), nil
	}
	if w.End.IsZero() {
		w.End = now
	}
	if w.Start.IsZero() {
		w.Start = w.End.AddDate(0, 0, -defaultWindow)
	}
	w.Start, w.End = w.Start.UTC(), w.End.UTC()
	if !w.Start.Before(w.End) {
		return stats.Window{}, domainagg.FieldError(op, "start", "start must be before end")
	}
	return w, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// scoper resolves which municipality a caller may read.
type scoper struct {
	users repos.UserRepo
}

// municipality returns the municipality the caller is confined to.
// Admins get requested back unchanged (uuid.Nil meaning every municipality).
// Managers get their own and are refused any other.
func (s scoper) municipality(ctx context.Context, op string, id auth.Identity, requested uuid.UUID) (uuid.UUID, error) {
	if err := requireRole(op, id, user.RoleAdmin, user.RoleManager); err != nil {
		return uuid.Nil, err
	}
	if id.IsAdmin() {
		return requested, nil
	}
	own, err := s.ownMunicipality(ctx, op, id)
	if err != nil {
		return uuid.Nil, err
	}
	if requested != uuid.Nil && requested != own {
		return uuid.Nil, domainagg.Forbidden(op, "municipality outside your scope")
	}
	return own, nil
}

func (s scoper) ownMunicipality(ctx context.Context, op string, id auth.Identity) (uuid.UUID, error) {
	u, err := s.users.GetByID(dbctx.Of(ctx), id.UserID)
	if err != nil {
		return uuid.Nil, repoErr(op, err)
	}
	if u == nil {
		return uuid.Nil, domainagg.NotFound(op, "user")
	}
	mid, ok := u.MunicipalityID()
	if !ok {
		return uuid.Nil, domainagg.Forbidden(op, "user is not assigned to a municipality")
	}
	return mid, nil
}

func ptr[T any](v T) *T { return &v }
