package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uiso2025/uiso-admin-api/internal/pkg/jwthelper"
)

const key = "test-signing-key"

func router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", NewAuthenticator(key).VerifyJWT(), RequireAdmin(), func(ctx *gin.Context) {
		claims, _ := ClaimsFrom(ctx)
		ctx.String(http.StatusOK, claims.Subject)
	})
	return r
}

func token(t *testing.T, role string) string {
	t.Helper()

	tok, err := jwthelper.GenerateToken([]byte(key), "admin-1", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestVerifyJWT(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
	}{
		{"missing token", "", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", "", http.StatusUnauthorized},
		{"non-admin role", "Bearer " + token(t, "participant"), "", http.StatusForbidden},
		{"admin header", "Bearer " + token(t, jwthelper.RoleAdmin), "", http.StatusOK},
		{"admin query parameter", "", "?access_token=" + token(t, jwthelper.RoleAdmin), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			router().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				assert.Equal(t, "admin-1", rec.Body.String())
			}
		})
	}
}
