package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/logging"
)

var testAuth = config.AuthConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken(testAuth, "user-42", time.Now())
	require.NoError(t, err)

	userID, err := ParseToken(testAuth, token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)

	_, err = ParseToken(config.AuthConfig{JWTSecret: "other"}, token)
	assert.Error(t, err)

	_, err = IssueToken(config.AuthConfig{}, "user-42", time.Now())
	assert.Error(t, err)
	_, err = IssueToken(testAuth, "", time.Now())
	assert.Error(t, err)
}

func TestParseToken_ClaimVariants(t *testing.T) {
	sign := func(claims jwt.MapClaims) string {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testAuth.JWTSecret))
		require.NoError(t, err)
		return raw
	}
	exp := time.Now().Add(time.Hour).Unix()

	userID, err := ParseToken(testAuth, sign(jwt.MapClaims{"userId": "a", "sub": "b", "exp": exp}))
	require.NoError(t, err)
	assert.Equal(t, "a", userID)

	userID, err = ParseToken(testAuth, sign(jwt.MapClaims{"id": "legacy", "exp": exp}))
	require.NoError(t, err)
	assert.Equal(t, "legacy", userID)

	userID, err = ParseToken(testAuth, sign(jwt.MapClaims{"sub": "b", "exp": exp}))
	require.NoError(t, err)
	assert.Equal(t, "b", userID)

	_, err = ParseToken(testAuth, sign(jwt.MapClaims{"exp": exp}))
	assert.Error(t, err)

	_, err = ParseToken(testAuth, sign(jwt.MapClaims{"userId": "a", "exp": time.Now().Add(-time.Minute).Unix()}))
	assert.Error(t, err)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": "a"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseToken(testAuth, raw)
	assert.Error(t, err)
}

func TestParseToken_Issuer(t *testing.T) {
	cfg := testAuth
	cfg.Issuer = "socialsync"

	token, err := IssueToken(cfg, "u", time.Now())
	require.NoError(t, err)
	_, err = ParseToken(cfg, token)
	assert.NoError(t, err)

	foreign, err := IssueToken(testAuth, "u", time.Now())
	require.NoError(t, err)
	_, err = ParseToken(cfg, foreign)
	assert.Error(t, err)
}

func TestJWTAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logging.NewLogger(logging.WithOutput(io.Discard))

	r := gin.New()
	r.Use(JWTAuth(testAuth, logger))
	r.GET("/", func(c *gin.Context) {
		userID, err := CurrentUser(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, userID)
	})

	token, err := IssueToken(testAuth, "user-1", time.Now())
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"header", "Bearer " + token, "", http.StatusOK},
		{"lowercase scheme", "bearer " + token, "", http.StatusOK},
		{"query fallback", "", "?token=" + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Equal(t, "user-1", w.Body.String())
			}
		})
	}
}

func TestCurrentUserWithoutAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, err := CurrentUser(c)
	assert.Error(t, err)
}
