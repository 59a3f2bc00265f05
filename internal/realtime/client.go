package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

// SSEClient is one open event stream. A user may hold several.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	closed   bool
	Logger   *logger.Logger
}

// UserChannel is the channel every client of a user is subscribed to.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
