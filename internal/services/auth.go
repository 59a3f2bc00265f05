package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/apierr"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/validate"
)

var errInvalidCredentials = errors.New("invalid email or password")

type RegisterInput struct {
	Name           string    `json:"name" validate:"notblank,max=200"`
	Email          string    `json:"email" validate:"required,email,max=254"`
	Password       string    `json:"password" validate:"required,min=8,max=72"`
	Phone          string    `json:"phone" validate:"max=50"`
	Address        string    `json:"address" validate:"max=500"`
	Role           user.Role `json:"role" validate:"required,oneof=HOUSEHOLD COLLECTOR"`
	MunicipalityID uuid.UUID `json:"municipality_id"`

	HouseholdSize int      `json:"household_size" validate:"gte=0,lte=100"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`

	VehicleType  string `json:"vehicle_type" validate:"max=100"`
	VehiclePlate string `json:"vehicle_plate" validate:"max=50"`
	ServiceArea  string `json:"service_area" validate:"max=200"`
}

type TokenPair struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	User         *user.User `json:"user,omitempty"`
}

// AuthService issues HS256 access tokens carrying the user id (sub) and role,
// backed by rotating refresh sessions.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*user.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ParseToken(tokenString string) (auth.Identity, error)
	AccessTTL() time.Duration
}

type AuthServiceDeps struct {
	Log            *logger.Logger
	Users          repos.UserRepo
	Tokens         repos.UserTokenRepo
	Municipalities repos.MunicipalityRepo
	JWTSecretKey   string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	Now            Clock
}

type authService struct {
	log  *logger.Logger
	deps AuthServiceDeps
	now  Clock
}

type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(deps AuthServiceDeps) AuthService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = utcNow
	}
	if deps.AccessTTL <= 0 {
		deps.AccessTTL = time.Hour
	}
	if deps.RefreshTTL <= 0 {
		deps.RefreshTTL = 30 * 24 * time.Hour
	}
	return &authService{log: deps.Log.With("service", "AuthService"), deps: deps, now: deps.Now}
}

func (as *authService) AccessTTL() time.Duration { return as.deps.AccessTTL }

// HashPassword bcrypts a plaintext password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (as *authService) Register(ctx context.Context, in RegisterInput) (*user.User, error) {
	const op = "Auth.Register"
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	if in.MunicipalityID == uuid.Nil {
		return nil, domainagg.FieldError(op, "municipality_id", "municipality_id is required")
	}
	dbc := dbctx.Of(ctx)
	exists, err := as.deps.Users.EmailExists(dbc, in.Email)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if exists {
		return nil, domainagg.FieldError(op, "email", "email already registered")
	}
	m, err := as.deps.Municipalities.GetByID(dbc, in.MunicipalityID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if m == nil || !m.Enabled {
		return nil, domainagg.FieldError(op, "municipality_id", "unknown municipality")
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
	case user.RoleHousehold:
		u.Household = &user.HouseholdProfile{
			MunicipalityID: in.MunicipalityID,
			HouseholdSize:  in.HouseholdSize,
			Latitude:       in.Latitude,
			Longitude:      in.Longitude,
		}
	case user.RoleCollector:
		u.Collector = &user.CollectorProfile{
			MunicipalityID: in.MunicipalityID,
			VehicleType:    in.VehicleType,
			VehiclePlate:   in.VehiclePlate,
			ServiceArea:    in.ServiceArea,
			Available:      true,
		}
	}
	created, err := as.deps.Users.Create(dbc, []*user.User{u})
	if err != nil {
		// Unique index on email catches a concurrent registration.
		return nil, repoErr(op, err)
	}
	as.log.Info("user registered", "user_id", u.ID, "role", u.Role)
	return created[0], nil
}

func (as *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	const op = "Auth.Login"
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domainagg.Validation(op, "email and password are required")
	}
	u, err := as.deps.Users.GetByEmail(dbctx.Of(ctx), email)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if u == nil {
		return nil, domainagg.Validation(op, errInvalidCredentials.Error())
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domainagg.Validation(op, errInvalidCredentials.Error())
	}
	if !u.CanSignIn() {
		return nil, domainagg.Forbidden(op, "account is disabled or locked")
	}
	pair, err := as.issue(ctx, op, u)
	if err != nil {
		return nil, err
	}
	as.log.Info("user logged in", "user_id", u.ID)
	return pair, nil
}

// Refresh rotates a refresh session: the presented token is consumed and a new pair issued.
func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	const op = "Auth.Refresh"
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, domainagg.FieldError(op, "refresh_token", "refresh_token is required")
	}
	dbc := dbctx.Of(ctx)
	tok, err := as.deps.Tokens.GetByRefreshToken(dbc, refreshToken)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if tok == nil {
		return nil, unauthorized(errors.New("unknown refresh token"))
	}
	removed, err := as.deps.Tokens.DeleteByRefreshToken(dbc, refreshToken)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if !removed {
		// Lost a race with another refresh of the same token.
		return nil, unauthorized(errors.New("refresh token already used"))
	}
	if tok.Expired(as.now()) {
		return nil, unauthorized(errors.New("refresh token expired"))
	}
	u, err := as.deps.Users.GetByID(dbc, tok.UserID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if u == nil || !u.CanSignIn() {
		return nil, domainagg.Forbidden(op, "account is disabled or locked")
	}
	return as.issue(ctx, op, u)
}

func (as *authService) Logout(ctx context.Context, refreshToken string) error {
	const op = "Auth.Logout"
	if _, err := as.deps.Tokens.DeleteByRefreshToken(dbctx.Of(ctx), strings.TrimSpace(refreshToken)); err != nil {
		return repoErr(op, err)
	}
	return nil
}

func (as *authService) issue(ctx context.Context, op string, u *user.User) (*TokenPair, error) {
	access, err := as.generateAccessToken(u)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	tok := &auth.UserToken{
		UserID:       u.ID,
		RefreshToken: uuid.NewString(),
		ExpiresAt:    as.now().Add(as.deps.RefreshTTL),
	}
	if _, err := as.deps.Tokens.Create(dbctx.Of(ctx), []*auth.UserToken{tok}); err != nil {
		return nil, repoErr(op, err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: tok.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(as.deps.AccessTTL / time.Second),
		User:         u,
	}, nil
}

func (as *authService) generateAccessToken(u *user.User) (string, error) {
	now := as.now()
	claims := jwtClaims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(as.deps.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.deps.JWTSecretKey))
}

func (as *authService) ParseToken(tokenString string) (auth.Identity, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return auth.Identity{}, unauthorized(errors.New("missing token"))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(*jwt.Token) (interface{}, error) {
		return []byte(as.deps.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		return auth.Identity{}, unauthorized(fmt.Errorf("parse token: %w", err))
	}
	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return auth.Identity{}, unauthorized(errors.New("invalid or expired token"))
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return auth.Identity{}, unauthorized(fmt.Errorf("invalid subject: %w", err))
	}
	id := auth.Identity{UserID: userID, Role: user.Role(claims.Role)}
	if !id.Valid() {
		return auth.Identity{}, unauthorized(errors.New("invalid role claim"))
	}
	return id, nil
}

func unauthorized(err error) error {
	return apierr.New(http.StatusUnauthorized, "unauthorized", err)
}
