package api

import (
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/middleware"
)

// ContextUserIDKey holds the authenticated user ID in the gin context.
const ContextUserIDKey = middleware.UserIDKey

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Claims is the bearer token payload. Tokens minted elsewhere may carry the
// user in userId, id or the standard sub claim.
type Claims struct {
	UserID   string `json:"userId,omitempty"`
	LegacyID string `json:"id,omitempty"`
	jwt.RegisteredClaims
}

// User returns the first non-empty user identifier.
func (c *Claims) User() string {
	switch {
	case c.UserID != "":
		return c.UserID
	case c.LegacyID != "":
		return c.LegacyID
	default:
		return c.RegisteredClaims.Subject
	}
}

// IssueToken signs an HS256 token for userID.
func IssueToken(cfg config.AuthConfig, userID string, now time.Time) (string, error) {
	if cfg.JWTSecret == "" {
		return "", stderrors.New("jwt secret is not configured")
	}
	if userID == "" {
		return "", stderrors.New("user id is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// ParseToken verifies raw and returns the user it identifies.
func ParseToken(cfg config.AuthConfig, raw string) (string, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return "", err
	}
	userID := claims.User()
	if userID == "" {
		return "", stderrors.New("token has no user claim")
	}
	return userID, nil
}

// bearerToken reads the Authorization header, falling back to ?token= for
// browser redirects that cannot set headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

// JWTAuth rejects requests without a valid bearer token and stores the user
// ID under ContextUserIDKey.
func JWTAuth(cfg config.AuthConfig, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			rejectAuth(c, logger, "missing bearer token", nil)
			return
		}
		userID, err := ParseToken(cfg, raw)
		if err != nil {
			rejectAuth(c, logger, "invalid bearer token", err)
			return
		}
		c.Set(ContextUserIDKey, userID)
		c.Next()
	}
}

func rejectAuth(c *gin.Context, logger *logging.Logger, message string, cause error) {
	ctx := c.Request.Context()
	logger.WarnWithContext(ctx, "API authentication failed",
		"reason", message,
		"client_ip", c.ClientIP(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
	event := logging.NewAuditEvent(logging.AuthFailure, "authenticate", logging.StatusFailure).
		WithIPAddress(c.ClientIP()).
		WithDetail("reason", message).
		WithDetail("path", c.Request.URL.Path)
	if cause != nil {
		event = event.WithError(cause)
	}
	logger.Audit(ctx, event)

	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: message,
		Code:    http.StatusUnauthorized,
	})
}

// CurrentUser returns the authenticated user ID, or ErrUnauthorized.
func CurrentUser(c *gin.Context) (string, error) {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.ErrUnauthorized
}
