package municipality

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/wastecollect-backend/internal/domain/municipality"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type MunicipalityRepo interface {
	Create(dbc dbctx.Context, rows []*municipality.Municipality) ([]*municipality.Municipality, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*municipality.Municipality, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*municipality.Municipality, error)
	NameExists(dbc dbctx.Context, name string, exceptID uuid.UUID) (bool, error)
	List(dbc dbctx.Context, onlyEnabled bool, limit, offset int) ([]*municipality.Municipality, int64, error)
	ListIDs(dbc dbctx.Context) ([]uuid.UUID, error)
	Count(dbc dbctx.Context) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type municipalityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMunicipalityRepo(db *gorm.DB, baseLog *logger.Logger) MunicipalityRepo {
	return &municipalityRepo{db: db, log: baseLog.With("repo", "MunicipalityRepo")}
}

func (r *municipalityRepo) Create(dbc dbctx.Context, rows []*municipality.Municipality) ([]*municipality.Municipality, error) {
	if len(rows) == 0 {
		return []*municipality.Municipality{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *municipalityRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*municipality.Municipality, error) {
	var out []*municipality.Municipality
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *municipalityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*municipality.Municipality, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (r *municipalityRepo) NameExists(dbc dbctx.Context, name string, exceptID uuid.UUID) (bool, error) {
	q := dbc.DB(r.db).Model(&municipality.Municipality{}).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name)))
	if exceptID != uuid.Nil {
		q = q.Where("id <> ?", exceptID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *municipalityRepo) List(dbc dbctx.Context, onlyEnabled bool, limit, offset int) ([]*municipality.Municipality, int64, error) {
	q := dbc.DB(r.db).Model(&municipality.Municipality{})
	if onlyEnabled {
		q = q.Where("enabled = ?", true)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q = q.Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var out []*municipality.Municipality
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *municipalityRepo) ListIDs(dbc dbctx.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbc.DB(r.db).Model(&municipality.Municipality{}).Order("name ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *municipalityRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&municipality.Municipality{}).Count(&n).Error
	return n, err
}

func (r *municipalityRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	return dbc.DB(r.db).Model(&municipality.Municipality{}).Where("id = ?", id).Updates(updates).Error
}

func (r *municipalityRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&municipality.Municipality{})
	return res.RowsAffected > 0, res.Error
}
