package user

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

// Filter narrows user listings. Zero values mean "any".
type Filter struct {
	Role           user.Role
	MunicipalityID uuid.UUID
	Enabled        *bool
	Limit          int
	Offset         int
}

type UserRepo interface {
	Create(dbc dbctx.Context, users []*user.User) ([]*user.User, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*user.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(dbc dbctx.Context, email string) (*user.User, error)
	EmailExists(dbc dbctx.Context, email string) (bool, error)

	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateProfileFields(dbc dbctx.Context, role user.Role, id uuid.UUID, updates map[string]interface{}) error

	List(dbc dbctx.Context, f Filter) ([]*user.User, int64, error)
	ListIDs(dbc dbctx.Context, f Filter) ([]uuid.UUID, error)
	CountByRole(dbc dbctx.Context) (map[string]int64, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func withProfiles(q *gorm.DB) *gorm.DB {
	return q.Preload("Household").Preload("Collector").Preload("Manager").Preload("Admin")
}

func (r *userRepo) Create(dbc dbctx.Context, users []*user.User) ([]*user.User, error) {
	if len(users) == 0 {
		return []*user.User{}, nil
	}
	for _, u := range users {
		u.Email = normalizeEmail(u.Email)
	}
	if err := dbc.DB(r.db).Create(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*user.User, error) {
	var out []*user.User
	if len(ids) == 0 {
		return out, nil
	}
	if err := withProfiles(dbc.DB(r.db)).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*user.User, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *userRepo) GetByEmail(dbc dbctx.Context, email string) (*user.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, nil
	}
	var out []*user.User
	if err := withProfiles(dbc.DB(r.db)).Where("email = ?", email).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *userRepo) EmailExists(dbc dbctx.Context, email string) (bool, error) {
	var count int64
	if err := dbc.DB(r.db).
		Model(&user.User{}).
		Where("email = ?", normalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if e, ok := updates["email"].(string); ok {
		updates["email"] = normalizeEmail(e)
	}
	return dbc.DB(r.db).Model(&user.User{}).Where("id = ?", id).Updates(updates).Error
}

func (r *userRepo) UpdateProfileFields(dbc dbctx.Context, role user.Role, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	var model interface{}
	switch role {
	case user.RoleHousehold:
		model = &user.HouseholdProfile{}
	case user.RoleCollector:
		model = &user.CollectorProfile{}
	case user.RoleManager:
		model = &user.ManagerProfile{}
	case user.RoleAdmin:
		model = &user.AdminProfile{}
	default:
		return nil
	}
	return dbc.DB(r.db).Model(model).Where("user_id = ?", id).Updates(updates).Error
}

func (r *userRepo) filtered(dbc dbctx.Context, f Filter) *gorm.DB {
	q := dbc.DB(r.db).Model(&user.User{})
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	if f.Enabled != nil {
		q = q.Where("enabled = ?", *f.Enabled)
	}
	if f.MunicipalityID != uuid.Nil {
		q = q.Where(
			"(id IN (?) OR id IN (?) OR id IN (?))",
			dbc.DB(r.db).Model(&user.HouseholdProfile{}).Select("user_id").Where("municipality_id = ?", f.MunicipalityID),
			dbc.DB(r.db).Model(&user.CollectorProfile{}).Select("user_id").Where("municipality_id = ?", f.MunicipalityID),
			dbc.DB(r.db).Model(&user.ManagerProfile{}).Select("user_id").Where("municipality_id = ?", f.MunicipalityID),
		)
	}
	return q
}

func (r *userRepo) List(dbc dbctx.Context, f Filter) ([]*user.User, int64, error) {
	var total int64
	if err := r.filtered(dbc, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := withProfiles(r.filtered(dbc, f)).Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var out []*user.User
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *userRepo) ListIDs(dbc dbctx.Context, f Filter) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.filtered(dbc, f).Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *userRepo) CountByRole(dbc dbctx.Context) (map[string]int64, error) {
	var rows []struct {
		Role  string
		Count int64
	}
	if err := dbc.DB(r.db).
		Model(&user.User{}).
		Select("role, COUNT(*) AS count").
		Group("role").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Role] = row.Count
	}
	return out, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
