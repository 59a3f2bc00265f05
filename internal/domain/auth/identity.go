package auth

import (
	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/domain/user"
)

// Identity is the authenticated caller, resolved from the access token.
type Identity struct {
	UserID uuid.UUID
	Role   user.Role
}

func (i Identity) Valid() bool {
	return i.UserID != uuid.Nil && i.Role.Valid()
}

// Is reports whether the caller holds one of roles.
func (i Identity) Is(roles ...user.Role) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

func (i Identity) IsStaff() bool { return i.Role.IsStaff() }

func (i Identity) IsAdmin() bool { return i.Role == user.RoleAdmin }
