package aggregates

import (
	"strings"

	"github.com/google/uuid"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"gorm.io/gorm"
)

// CASGuard performs compare-and-set row updates.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

func (g CASGuard) baseDB(dbc dbctx.Context) (*gorm.DB, error) {
	if dbc.Tx == nil && g.db == nil {
		return nil, ValidationError("missing db transaction context")
	}
	return dbc.DB(g.db), nil
}

// UpdateByStatus updates a row only while its status is one of allowedStatuses.
// It reports whether a row was changed; false means another writer got there first.
func (g CASGuard) UpdateByStatus(dbc dbctx.Context, table string, id uuid.UUID, allowedStatuses []string, updates map[string]any) (bool, error) {
	return g.update(dbc, table, id, allowedStatuses, -1, updates)
}

// UpdateByStatusAndVersion additionally requires the row version to match.
// Self-transitions keep the status, so only the version tells two writers apart.
func (g CASGuard) UpdateByStatusAndVersion(dbc dbctx.Context, table string, id uuid.UUID, status string, version int, updates map[string]any) (bool, error) {
	if version < 0 {
		return false, ValidationError("expected version must be >= 0")
	}
	return g.update(dbc, table, id, []string{status}, version, updates)
}

func (g CASGuard) update(dbc dbctx.Context, table string, id uuid.UUID, allowed []string, version int, updates map[string]any) (bool, error) {
	db, err := g.baseDB(dbc)
	if err != nil {
		return false, err
	}
	table = strings.TrimSpace(table)
	if table == "" || id == uuid.Nil {
		return false, ValidationError("table and id are required for a guarded update")
	}
	if len(allowed) == 0 {
		return false, ValidationError("allowed statuses must not be empty")
	}
	q := db.Table(table).Where("id = ? AND status IN ?", id, allowed)
	if version >= 0 {
		q = q.Where("version = ?", version)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RequireStatusAllowed returns an invalid-state error unless current is one of allowed.
func RequireStatusAllowed(current string, allowed ...string) error {
	current = strings.TrimSpace(current)
	if len(allowed) == 0 {
		return ValidationError("allowed statuses cannot be empty")
	}
	for _, s := range allowed {
		if strings.EqualFold(current, strings.TrimSpace(s)) {
			return nil
		}
	}
	return InvalidStateError("status " + current + " does not allow this operation")
}

// RequireCASSuccess turns a lost compare-and-set into an invalid-state error.
func RequireCASSuccess(ok bool, msg string) error {
	if ok {
		return nil
	}
	if strings.TrimSpace(msg) == "" {
		msg = "row changed concurrently"
	}
	return InvalidStateError(msg)
}
