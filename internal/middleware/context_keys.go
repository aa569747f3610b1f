package middleware

import (
	"context"

	"github.com/SscSPs/oversight/internal/core/domain"
	"github.com/gin-gonic/gin"
)

// contextKey is used for values stored in request contexts.
// Using a custom type prevents collisions.
type contextKey string

const (
	userIDKey    = contextKey("userID")
	identityKey  = contextKey("identity")
	loggerCtxKey = contextKey("logger")
)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	ctx = context.WithValue(ctx, userIDKey, id.UserID)
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentityFromContext retrieves the authenticated identity set by AuthMiddleware.
func GetIdentityFromContext(c *gin.Context) (domain.Identity, bool) {
	id, ok := c.Request.Context().Value(identityKey).(domain.Identity)
	if !ok || id.UserID == "" {
		return domain.Identity{}, false
	}
	return id, true
}

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	userID, ok := c.Request.Context().Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
