package auth

import (
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/domain/user"
)

func TestIdentityRoles(t *testing.T) {
	id := Identity{UserID: uuid.New(), Role: user.RoleManager}
	if !id.Valid() {
		t.Fatalf("expected valid identity")
	}
	if !id.Is(user.RoleAdmin, user.RoleManager) {
		t.Fatalf("manager should match")
	}
	if id.Is(user.RoleHousehold) {
		t.Fatalf("manager should not match household")
	}
	if !id.IsStaff() || id.IsAdmin() {
		t.Fatalf("manager is staff but not admin")
	}
	if (Identity{Role: user.RoleAdmin}).Valid() {
		t.Fatalf("identity without user id must be invalid")
	}
}
