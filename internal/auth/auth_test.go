package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shop-service/config"
	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdmins map[string]*models.Admin

func (s stubAdmins) GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error) {
	if a, ok := s[username]; ok {
		return a, nil
	}
	return nil, store.ErrAdminNotFound
}

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	admins := stubAdmins{"admin": {ID: 4, Username: "admin", PasswordHash: hash}}
	return NewService(admins, config.AuthConfig{JWTSecret: "test-secret", TokenTTL: ttl})
}

func TestLogin(t *testing.T) {
	svc := newTestService(t, time.Hour)

	token, admin, err := svc.Login(context.Background(), "admin", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Username)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, int64(4), claims.AdminID())
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, time.Hour)

	_, _, err := svc.Login(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	svc := newTestService(t, -time.Minute)
	expired, err := svc.IssueToken(&models.Admin{ID: 4, Username: "admin"})
	require.NoError(t, err)

	_, err = svc.ParseToken(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewService(stubAdmins{}, config.AuthConfig{JWTSecret: "other", TokenTTL: time.Hour})
	foreign, err := other.IssueToken(&models.Admin{ID: 4, Username: "admin"})
	require.NoError(t, err)

	_, err = newTestService(t, time.Hour).ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestService(t, time.Hour)
	token, err := svc.IssueToken(&models.Admin{ID: 4, Username: "admin"})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/admin", svc.Middleware(), func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.Username)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"malformed token", "Bearer not-a-jwt", http.StatusForbidden},
		{"valid token", "Bearer " + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestOptionalMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestService(t, time.Hour)
	token, err := svc.IssueToken(&models.Admin{ID: 4, Username: "admin"})
	require.NoError(t, err)

	router := gin.New()
	router.GET("/orders", svc.Optional(), func(c *gin.Context) {
		if IsAdmin(c) {
			c.String(http.StatusOK, "admin")
			return
		}
		c.String(http.StatusOK, "guest")
	})

	for header, want := range map[string]string{
		"":                "guest",
		"Bearer garbage":  "guest",
		"Bearer " + token: "admin",
	} {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Body.String(), "header %q", header)
	}
}
