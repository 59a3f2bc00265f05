package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/validate"
)

// UpdateProfileInput is a partial update; nil fields are left alone.
// Role-specific fields are ignored for other roles.
type UpdateProfileInput struct {
	Name     *string `json:"name" validate:"omitempty,notblank,max=200"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`

	HouseholdSize *int     `json:"household_size" validate:"omitempty,gte=0,lte=100"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`

	VehicleType  *string `json:"vehicle_type" validate:"omitempty,max=100"`
	VehiclePlate *string `json:"vehicle_plate" validate:"omitempty,max=50"`
	ServiceArea  *string `json:"service_area" validate:"omitempty,max=200"`
	Available    *bool   `json:"available"`

	Title *string `json:"title" validate:"omitempty,max=100"`
}

type UserQuery struct {
	Role           user.Role `form:"role" validate:"omitempty,role"`
	MunicipalityID uuid.UUID `form:"municipality_id"`
	Enabled        *bool     `form:"enabled"`
	Page
}

type CreateStaffInput struct {
	Name           string    `json:"name" validate:"notblank,max=200"`
	Email          string    `json:"email" validate:"required,email,max=254"`
	Password       string    `json:"password" validate:"required,min=8,max=72"`
	Phone          string    `json:"phone" validate:"max=50"`
	Address        string    `json:"address" validate:"max=500"`
	Role           user.Role `json:"role" validate:"required,oneof=COLLECTOR MUNICIPAL_MANAGER ADMIN"`
	MunicipalityID uuid.UUID `json:"municipality_id"`
	Title          string    `json:"title" validate:"max=100"`
	VehicleType    string    `json:"vehicle_type" validate:"max=100"`
	VehiclePlate   string    `json:"vehicle_plate" validate:"max=50"`
	ServiceArea    string    `json:"service_area" validate:"max=200"`
	AccessLevel    int       `json:"access_level" validate:"gte=0,lte=10"`
}

type UserStatusInput struct {
	Enabled *bool `json:"enabled"`
	Locked  *bool `json:"locked"`
}

type UserService interface {
	GetMe(ctx context.Context, id auth.Identity) (*user.User, error)
	UpdateProfile(ctx context.Context, id auth.Identity, in UpdateProfileInput) (*user.User, error)
	Get(ctx context.Context, id auth.Identity, userID uuid.UUID) (*user.User, error)
	List(ctx context.Context, id auth.Identity, q UserQuery) ([]*user.User, int64, error)
	SetEnabled(ctx context.Context, id auth.Identity, userID uuid.UUID, enabled bool) (*user.User, error)
	SetLocked(ctx context.Context, id auth.Identity, userID uuid.UUID, locked bool) (*user.User, error)
	UpdateStatus(ctx context.Context, id auth.Identity, userID uuid.UUID, in UserStatusInput) (*user.User, error)
	CreateStaff(ctx context.Context, id auth.Identity, in CreateStaffInput) (*user.User, error)
	// BootstrapAdmin creates the first administrator; used by the CLI, not the API.
	BootstrapAdmin(ctx context.Context, name, email, password string) (*user.User, error)
}

type UserServiceDeps struct {
	Log            *logger.Logger
	Users          repos.UserRepo
	Tokens         repos.UserTokenRepo
	Municipalities repos.MunicipalityRepo
}

type userService struct {
	log   *logger.Logger
	deps  UserServiceDeps
	scope scoper
}

func NewUserService(deps UserServiceDeps) UserService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &userService{log: deps.Log.With("service", "UserService"), deps: deps, scope: scoper{users: deps.Users}}
}

func (s *userService) load(ctx context.Context, op string, userID uuid.UUID) (*user.User, error) {
	u, err := s.deps.Users.GetByID(dbctx.Of(ctx), userID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if u == nil {
		return nil, domainagg.NotFound(op, "user")
	}
	return u, nil
}

func (s *userService) GetMe(ctx context.Context, id auth.Identity) (*user.User, error) {
	const op = "User.GetMe"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}
	return s.load(ctx, op, id.UserID)
}

func (s *userService) UpdateProfile(ctx context.Context, id auth.Identity, in UpdateProfileInput) (*user.User, error) {
	const op = "User.UpdateProfile"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	base := map[string]interface{}{}
	if in.Name != nil {
		base["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		base["phone"] = strings.TrimSpace(*in.Phone)
	}
	if in.Address != nil {
		base["address"] = strings.TrimSpace(*in.Address)
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password)
		if err != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		base["password_hash"] = hash
	}

	profile := map[string]interface{}{}
	switch id.Role {
	case user.RoleHousehold:
		if in.HouseholdSize != nil {
			profile["household_size"] = *in.HouseholdSize
		}
		if in.Latitude != nil {
			profile["latitude"] = *in.Latitude
		}
		if in.Longitude != nil {
			profile["longitude"] = *in.Longitude
		}
	case user.RoleCollector:
		if in.VehicleType != nil {
			profile["vehicle_type"] = *in.VehicleType
		}
		if in.VehiclePlate != nil {
			profile["vehicle_plate"] = *in.VehiclePlate
		}
		if in.ServiceArea != nil {
			profile["service_area"] = *in.ServiceArea
		}
		if in.Available != nil {
			profile["available"] = *in.Available
		}
	case user.RoleManager:
		if in.Title != nil {
			profile["title"] = *in.Title
		}
	}

	dbc := dbctx.Of(ctx)
	if err := s.deps.Users.UpdateFields(dbc, id.UserID, base); err != nil {
		return nil, repoErr(op, err)
	}
	if err := s.deps.Users.UpdateProfileFields(dbc, id.Role, id.UserID, profile); err != nil {
		return nil, repoErr(op, err)
	}
	return s.load(ctx, op, id.UserID)
}

func (s *userService) Get(ctx context.Context, id auth.Identity, userID uuid.UUID) (*user.User, error) {
	const op = "User.Get"
	if err := requireRole(op, id, user.RoleAdmin, user.RoleManager); err != nil {
		return nil, err
	}
	var own uuid.UUID
	if !id.IsAdmin() {
		var err error
		if own, err = s.scope.ownMunicipality(ctx, op, id); err != nil {
			return nil, err
		}
	}
	u, err := s.load(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() {
		if mid, ok := u.MunicipalityID(); !ok || mid != own {
			return nil, domainagg.NotFound(op, "user")
		}
	}
	return u, nil
}

func (s *userService) List(ctx context.Context, id auth.Identity, q UserQuery) ([]*user.User, int64, error) {
	const op = "User.List"
	if err := validate.Struct(op, q); err != nil {
		return nil, 0, err
	}
	mid, err := s.scope.municipality(ctx, op, id, q.MunicipalityID)
	if err != nil {
		return nil, 0, err
	}
	p := q.Page.Normalized()
	rows, total, err := s.deps.Users.List(dbctx.Of(ctx), repos.UserFilter{
		Role:           q.Role,
		MunicipalityID: mid,
		Enabled:        q.Enabled,
		Limit:          p.Limit,
		Offset:         p.Offset,
	})
	if err != nil {
		return nil, 0, repoErr(op, err)
	}
	return rows, total, nil
}

func (s *userService) SetEnabled(ctx context.Context, id auth.Identity, userID uuid.UUID, enabled bool) (*user.User, error) {
	return s.UpdateStatus(ctx, id, userID, UserStatusInput{Enabled: &enabled})
}

func (s *userService) SetLocked(ctx context.Context, id auth.Identity, userID uuid.UUID, locked bool) (*user.User, error) {
	return s.UpdateStatus(ctx, id, userID, UserStatusInput{Locked: &locked})
}

// UpdateStatus enables/disables and locks/unlocks an account. Revoking sign-in
// also drops the account's refresh sessions.
func (s *userService) UpdateStatus(ctx context.Context, id auth.Identity, userID uuid.UUID, in UserStatusInput) (*user.User, error) {
	const op = "User.UpdateStatus"
	if err := requireRole(op, id, user.RoleAdmin); err != nil {
		return nil, err
	}
	if in.Enabled == nil && in.Locked == nil {
		return nil, domainagg.Validation(op, "enabled or locked is required")
	}
	if userID == id.UserID {
		return nil, domainagg.InvalidState(op, "cannot change your own account status")
	}
	if _, err := s.load(ctx, op, userID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Enabled != nil {
		updates["enabled"] = *in.Enabled
	}
	if in.Locked != nil {
		updates["locked"] = *in.Locked
	}
	dbc := dbctx.Of(ctx)
	if err := s.deps.Users.UpdateFields(dbc, userID, updates); err != nil {
		return nil, repoErr(op, err)
	}
	u, err := s.load(ctx, op, userID)
	if err != nil {
		return nil, err
	}
	if !u.CanSignIn() && s.deps.Tokens != nil {
		if err := s.deps.Tokens.DeleteByUserIDs(dbc, []uuid.UUID{userID}); err != nil {
			s.log.Warn("revoke sessions failed", "user_id", userID, "error", err)
		}
	}
	s.log.Info("user status changed", "user_id", userID, "enabled", u.Enabled, "locked", u.Locked)
	return u, nil
}

// CreateStaff provisions collectors, managers and admins. Managers may only
// create collectors inside their own municipality.
func (s *userService) CreateStaff(ctx context.Context, id auth.Identity, in CreateStaffInput) (*user.User, error) {
	const op = "User.CreateStaff"
	if err := requireRole(op, id, user.RoleAdmin, user.RoleManager); err != nil {
		return nil, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	if !id.IsAdmin() {
		if in.Role != user.RoleCollector {
			return nil, domainagg.Forbidden(op, "managers may only create collectors")
		}
		own, err := s.scope.ownMunicipality(ctx, op, id)
		if err != nil {
			return nil, err
		}
		if in.MunicipalityID == uuid.Nil {
			in.MunicipalityID = own
		}
		if in.MunicipalityID != own {
			return nil, domainagg.Forbidden(op, "municipality outside your scope")
		}
	}
	dbc := dbctx.Of(ctx)
	if in.Role != user.RoleAdmin {
		if in.MunicipalityID == uuid.Nil {
			return nil, domainagg.FieldError(op, "municipality_id", "municipality_id is required")
		}
		m, err := s.deps.Municipalities.GetByID(dbc, in.MunicipalityID)
		if err != nil {
			return nil, repoErr(op, err)
		}
		if m == nil {
			return nil, domainagg.FieldError(op, "municipality_id", "unknown municipality")
		}
	}
	exists, err := s.deps.Users.EmailExists(dbc, in.Email)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if exists {
		return nil, domainagg.FieldError(op, "email", "email already registered")
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	u := &user.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		Role:         in.Role,
		Enabled:      true,
	}
	switch in.Role {
	case user.RoleCollector:
		u.Collector = &user.CollectorProfile{
			MunicipalityID: in.MunicipalityID,
			VehicleType:    in.VehicleType,
			VehiclePlate:   in.VehiclePlate,
			ServiceArea:    in.ServiceArea,
			Available:      true,
		}
	case user.RoleManager:
		u.Manager = &user.ManagerProfile{MunicipalityID: in.MunicipalityID, Title: in.Title}
	case user.RoleAdmin:
		u.Admin = &user.AdminProfile{AccessLevel: in.AccessLevel}
	}
	created, err := s.deps.Users.Create(dbc, []*user.User{u})
	if err != nil {
		return nil, repoErr(op, err)
	}
	s.log.Info("staff account created", "user_id", u.ID, "role", u.Role)
	return created[0], nil
}

func (s *userService) BootstrapAdmin(ctx context.Context, name, email, password string) (*user.User, error) {
	const op = "User.BootstrapAdmin"
	in := CreateStaffInput{Name: strings.TrimSpace(name), Email: strings.ToLower(strings.TrimSpace(email)), Password: password, Role: user.RoleAdmin, AccessLevel: 10}
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	if existing, err := s.deps.Users.GetByEmail(dbc, in.Email); err != nil {
		return nil, repoErr(op, err)
	} else if existing != nil {
		if existing.Role != user.RoleAdmin {
			return nil, domainagg.FieldError(op, "email", "email belongs to a non-admin account")
		}
		return existing, nil
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	u := &user.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		Enabled:      true,
		Admin:        &user.AdminProfile{AccessLevel: in.AccessLevel},
	}
	created, err := s.deps.Users.Create(dbc, []*user.User{u})
	if err != nil {
		return nil, repoErr(op, err)
	}
	s.log.Info("admin bootstrapped", "user_id", u.ID)
	return created[0], nil
}
