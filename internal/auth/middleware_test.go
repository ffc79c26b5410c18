package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraria-al/libraria/internal/database/users"
	"github.com/libraria-al/libraria/internal/entities"
)

type fakeResolver struct {
	users map[string]*entities.User
}

func (r *fakeResolver) GetUserByToken(token string) (*entities.User, error) {
	if user, ok := r.users[token]; ok {
		return user, nil
	}
	return nil, users.ErrUserNotFound
}

func setupAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	resolver := &fakeResolver{users: map[string]*entities.User{
		"valid-token": {ID: 7, Username: "besa"},
	}}

	router := gin.New()
	router.Use(NewMiddleware(resolver).Handler())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": GetUserID(c)})
	})
	return router
}

func TestMiddleware_BearerToken(t *testing.T) {
	t.Run("valid token resolves the user", func(t *testing.T) {
		router := setupAuthRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/whoami", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"userId": 7}`, w.Body.String())
	})

	t.Run("missing header is unauthorized", func(t *testing.T) {
		router := setupAuthRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/whoami", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown token is unauthorized", func(t *testing.T) {
		router := setupAuthRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/whoami", nil)
		req.Header.Set("Authorization", "Bearer nope")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header is unauthorized", func(t *testing.T) {
		router := setupAuthRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/whoami", nil)
		req.Header.Set("Authorization", "valid-token")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("public paths skip authentication", func(t *testing.T) {
		router := setupAuthRouter(t)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/health", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetUserID_Unset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Zero(t, GetUserID(c))
}
