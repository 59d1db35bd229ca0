package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axellelanca/magiccode/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	return m
}

func TestManager_RoundTrip(t *testing.T) {
	m := newManager(t)
	token, err := m.Generate(&models.Account{ID: 7, Email: "a@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, "a@example.com", claims.Subject)
}

func TestManager_Rejects(t *testing.T) {
	m := newManager(t)
	other, err := NewManager("other-secret", time.Hour)
	require.NoError(t, err)

	foreign, err := other.Generate(&models.Account{ID: 1})
	require.NoError(t, err)
	_, err = m.Validate(foreign)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = m.Validate(signed)
	assert.Error(t, err)

	anonymous, err := m.Generate(&models.Account{})
	require.NoError(t, err)
	_, err = m.Validate(anonymous)
	assert.Error(t, err)

	_, err = m.Validate("garbage")
	assert.Error(t, err)

	_, err = NewManager("", time.Hour)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	m := newManager(t)
	router := gin.New()
	router.GET("/me", Middleware(m), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": AccountID(c)})
	})
	router.GET("/admin", Middleware(m), AdminOnly(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	user, err := m.Generate(&models.Account{ID: 3, Role: models.RoleUser})
	require.NoError(t, err)
	admin, err := m.Generate(&models.Account{ID: 4, Role: models.RoleAdmin})
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
	}{
		{"no header", "/me", "", http.StatusUnauthorized},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"user", "/me", "Bearer " + user, http.StatusOK},
		{"user on admin route", "/admin", "Bearer " + user, http.StatusForbidden},
		{"admin", "/admin", "bearer " + admin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
