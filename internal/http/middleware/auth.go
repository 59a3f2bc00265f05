package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/http/response"
	"github.com/yungbote/wastecollect-backend/internal/platform/apierr"
	"github.com/yungbote/wastecollect-backend/internal/platform/ctxutil"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

// TokenParser verifies an access token. services.AuthService satisfies it.
type TokenParser interface {
	ParseToken(tokenString string) (auth.Identity, error)
}

type AuthMiddleware struct {
	log    *logger.Logger
	parser TokenParser
}

func NewAuthMiddleware(log *logger.Logger, parser TokenParser) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "AuthMiddleware"), parser: parser}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractTokenFromAll(c)
		if tokenString == "" {
			response.RespondError(c, am.log, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token")))
			return
		}
		id, err := am.parser.ParseToken(tokenString)
		if err != nil {
			am.log.Debug("token rejected", "error", err)
			response.RespondError(c, am.log, err)
			return
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			TokenString: tokenString,
			UserID:      id.UserID,
			Role:        string(id.Role),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func (am *AuthMiddleware) RequireRole(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			response.RespondError(c, am.log, apierr.New(http.StatusUnauthorized, "unauthorized", errors.New("not authenticated")))
			return
		}
		for _, r := range roles {
			if user.Role(rd.Role) == r {
				c.Next()
				return
			}
		}
		response.RespondError(c, am.log, apierr.New(http.StatusForbidden, "forbidden", errors.New("forbidden")))
	}
}

// EventSource cannot set headers, so the stream endpoint accepts ?token=.
func extractTokenFromAll(c *gin.Context) string {
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
