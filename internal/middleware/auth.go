package middleware

import (
	"context"
	"strings"

	"github.com/dimitrije/teamsync-api/internal/models"
	"github.com/dimitrije/teamsync-api/internal/services"
	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

const (
	UserIDKey    = "user_id"
	UserEmailKey = "user_email"
)

// TokenValidator defines the methods needed to authenticate a bearer token
type TokenValidator interface {
	ValidateAccessToken(token string) (*services.Claims, error)
}

// UserMirror keeps the local users table in step with token identities
type UserMirror interface {
	EnsureUser(ctx context.Context, id uuid.UUID, email, displayName string) (*models.User, error)
}

// Auth authenticates the bearer token and mirrors its subject into the users
// table. users may be nil when the mirror is maintained elsewhere.
func Auth(tokens TokenValidator, users UserMirror, log *zap.Logger) drift.HandlerFunc {
	return func(c *drift.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Unauthorized("missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			c.Unauthorized("invalid authorization header format")
			return
		}

		claims, err := tokens.ValidateAccessToken(parts[1])
		if err != nil {
			c.Unauthorized("invalid or expired token")
			return
		}

		if users != nil {
			if _, err := users.EnsureUser(c.Request.Context(), claims.UserID, claims.Email, claims.Name); err != nil {
				if log != nil {
					log.Error("failed to mirror user", zap.String("user_id", claims.UserID.String()), zap.Error(err))
				}
				c.InternalServerError("failed to load user")
				return
			}
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UserEmailKey, claims.Email)

		c.Next()
	}
}

func GetUserID(c *drift.Context) uuid.UUID {
	if id, ok := c.Get(UserIDKey); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return uid
		}
	}
	return uuid.Nil
}

func GetUserEmail(c *drift.Context) string {
	if email, ok := c.Get(UserEmailKey); ok {
		if e, ok := email.(string); ok {
			return e
		}
	}
	return ""
}
