// Package auth resolves bearer API tokens to users. Account management,
// sessions and login live in the storefront backend; this service only needs
// to know which user a request acts for.
package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/libraria-al/libraria/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
)

// TokenResolver maps an opaque API token to a user.
type TokenResolver interface {
	GetUserByToken(token string) (*entities.User, error)
}

// Middleware authenticates requests via the Authorization header.
type Middleware struct {
	resolver    TokenResolver
	publicPaths map[string]bool
}

func NewMiddleware(resolver TokenResolver) *Middleware {
	return &Middleware{
		resolver: resolver,
		publicPaths: map[string]bool{
			"/health": true,
			"/ping":   true,
		},
	}
}

// Handler returns a Gin middleware that requires a valid bearer token on
// every non-public path.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.publicPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		user := m.tryBearerAuth(c)
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyUsername, user.Username)
		c.Next()
	}
}

// tryBearerAuth attempts to authenticate using the "Bearer <token>" header.
func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil
	}

	user, err := m.resolver.GetUserByToken(parts[1])
	if err != nil {
		return nil
	}
	return user
}

// GetUserID extracts the authenticated user's ID from the Gin context.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}
