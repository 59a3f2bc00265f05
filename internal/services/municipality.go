package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/municipality"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/validate"
)

type MunicipalityInput struct {
	Name        string  `json:"name" validate:"notblank,max=200"`
	Province    string  `json:"province" validate:"max=100"`
	Country     string  `json:"country" validate:"max=100"`
	Population  int64   `json:"population" validate:"gte=0"`
	WasteBudget float64 `json:"waste_budget" validate:"gte=0"`
	Enabled     *bool   `json:"enabled"`
}

type MunicipalityUpdate struct {
	Name        *string  `json:"name" validate:"omitempty,notblank,max=200"`
	Province    *string  `json:"province" validate:"omitempty,max=100"`
	Country     *string  `json:"country" validate:"omitempty,max=100"`
	Population  *int64   `json:"population" validate:"omitempty,gte=0"`
	WasteBudget *float64 `json:"waste_budget" validate:"omitempty,gte=0"`
	Enabled     *bool    `json:"enabled"`
}

type MunicipalityService interface {
	Create(ctx context.Context, id auth.Identity, in MunicipalityInput) (*municipality.Municipality, error)
	Update(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, in MunicipalityUpdate) (*municipality.Municipality, error)
	Delete(ctx context.Context, id auth.Identity, municipalityID uuid.UUID) error
	Get(ctx context.Context, municipalityID uuid.UUID) (*municipality.Municipality, error)
	// List is public so registration forms can offer a choice; only enabled rows unless staff.
	List(ctx context.Context, id auth.Identity, page Page) ([]*municipality.Municipality, int64, error)
	AssignManager(ctx context.Context, id auth.Identity, municipalityID, managerID uuid.UUID) (*municipality.Municipality, error)
}

type MunicipalityServiceDeps struct {
	Log            *logger.Logger
	Municipalities repos.MunicipalityRepo
	Requests       repos.ServiceRequestRepo
	Users          repos.UserRepo
}

type municipalityService struct {
	log  *logger.Logger
	deps MunicipalityServiceDeps
}

func NewMunicipalityService(deps MunicipalityServiceDeps) MunicipalityService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &municipalityService{log: deps.Log.With("service", "MunicipalityService"), deps: deps}
}

func (s *municipalityService) load(ctx context.Context, op string, municipalityID uuid.UUID) (*municipality.Municipality, error) {
	m, err := s.deps.Municipalities.GetByID(dbctx.Of(ctx), municipalityID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if m == nil {
		return nil, domainagg.NotFound(op, "municipality")
	}
	return m, nil
}

func (s *municipalityService) Create(ctx context.Context, id auth.Identity, in MunicipalityInput) (*municipality.Municipality, error) {
	const op = "Municipality.Create"
	if err := requireRole(op, id, user.RoleAdmin); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	exists, err := s.deps.Municipalities.NameExists(dbc, in.Name, uuid.Nil)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if exists {
		return nil, domainagg.FieldError(op, "name", "municipality name already exists")
	}
	m := &municipality.Municipality{
		Name:        in.Name,
		Province:    strings.TrimSpace(in.Province),
		Country:     strings.TrimSpace(in.Country),
		Population:  in.Population,
		WasteBudget: in.WasteBudget,
		Enabled:     in.Enabled == nil || *in.Enabled,
	}
	created, err := s.deps.Municipalities.Create(dbc, []*municipality.Municipality{m})
	if err != nil {
		return nil, repoErr(op, err)
	}
	s.log.Info("municipality created", "municipality_id", m.ID, "name", m.Name)
	return created[0], nil
}

func (s *municipalityService) Update(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, in MunicipalityUpdate) (*municipality.Municipality, error) {
	const op = "Municipality.Update"
	if err := requireRole(op, id, user.RoleAdmin); err != nil {
		return nil, err
	}
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, op, municipalityID); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		exists, err := s.deps.Municipalities.NameExists(dbc, name, municipalityID)
		if err != nil {
			return nil, repoErr(op, err)
		}
		if exists {
			return nil, domainagg.FieldError(op, "name", "municipality name already exists")
		}
		updates["name"] = name
	}
	if in.Province != nil {
		updates["province"] = strings.TrimSpace(*in.Province)
	}
	if in.Country != nil {
		updates["country"] = strings.TrimSpace(*in.Country)
	}
	if in.Population != nil {
		updates["population"] = *in.Population
	}
	if in.WasteBudget != nil {
		updates["waste_budget"] = *in.WasteBudget
	}
	if in.Enabled != nil {
		updates["enabled"] = *in.Enabled
	}
	if err := s.deps.Municipalities.UpdateFields(dbc, municipalityID, updates); err != nil {
		return nil, repoErr(op, err)
	}
	return s.load(ctx, op, municipalityID)
}

// Delete refuses municipalities that still own requests or accounts; disable them instead.
func (s *municipalityService) Delete(ctx context.Context, id auth.Identity, municipalityID uuid.UUID) error {
	const op = "Municipality.Delete"
	if err := requireRole(op, id, user.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.load(ctx, op, municipalityID); err != nil {
		return err
	}
	dbc := dbctx.Of(ctx)
	n, err := s.deps.Requests.Count(dbc, repos.RequestFilter{MunicipalityID: municipalityID})
	if err != nil {
		return repoErr(op, err)
	}
	if n > 0 {
		return domainagg.InvalidState(op, "municipality has service requests")
	}
	_, members, err := s.deps.Users.List(dbc, repos.UserFilter{MunicipalityID: municipalityID, Limit: 1})
	if err != nil {
		return repoErr(op, err)
	}
	if members > 0 {
		return domainagg.InvalidState(op, "municipality has registered users")
	}
	removed, err := s.deps.Municipalities.Delete(dbc, municipalityID)
	if err != nil {
		return repoErr(op, err)
	}
	if !removed {
		return domainagg.NotFound(op, "municipality")
	}
	s.log.Info("municipality deleted", "municipality_id", municipalityID)
	return nil
}

func (s *municipalityService) Get(ctx context.Context, municipalityID uuid.UUID) (*municipality.Municipality, error) {
	return s.load(ctx, "Municipality.Get", municipalityID)
}

func (s *municipalityService) List(ctx context.Context, id auth.Identity, page Page) ([]*municipality.Municipality, int64, error) {
	const op = "Municipality.List"
	p := page.Normalized()
	rows, total, err := s.deps.Municipalities.List(dbctx.Of(ctx), !id.IsStaff(), p.Limit, p.Offset)
	if err != nil {
		return nil, 0, repoErr(op, err)
	}
	return rows, total, nil
}

// AssignManager points the municipality at a manager and moves the manager's scope to it.
func (s *municipalityService) AssignManager(ctx context.Context, id auth.Identity, municipalityID, managerID uuid.UUID) (*municipality.Municipality, error) {
	const op = "Municipality.AssignManager"
	if err := requireRole(op, id, user.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, op, municipalityID); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	mgr, err := s.deps.Users.GetByID(dbc, managerID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if mgr == nil || mgr.Role != user.RoleManager {
		return nil, domainagg.FieldError(op, "manager_id", "user is not a municipal manager")
	}
	if err := s.deps.Users.UpdateProfileFields(dbc, user.RoleManager, managerID, map[string]interface{}{"municipality_id": municipalityID}); err != nil {
		return nil, repoErr(op, err)
	}
	if err := s.deps.Municipalities.UpdateFields(dbc, municipalityID, map[string]interface{}{"manager_id": managerID}); err != nil {
		return nil, repoErr(op, err)
	}
	s.log.Info("manager assigned", "municipality_id", municipalityID, "user_id", managerID)
	return s.load(ctx, op, municipalityID)
}
