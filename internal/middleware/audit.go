package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/socialsync/socialsync/internal/logging"
)

// UserIDKey is the gin context key the auth middleware stores the user under.
const UserIDKey = "user_id"

const auditResourceKey = "audit_resource"

// AuditSink receives audit events. *logging.Logger implements it.
type AuditSink interface {
	Audit(ctx context.Context, event *logging.AuditEvent)
}

// AuditAccess records one APIAccess event per authenticated request. The
// query string is left out because OAuth redirects and ?token= carry secrets.
func AuditAccess(sink AuditSink) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		userID := c.GetString(UserIDKey)
		if userID == "" {
			return
		}

		status := c.Writer.Status()
		auditStatus := logging.StatusSuccess
		if status >= 400 {
			auditStatus = logging.StatusFailure
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		event := logging.NewAuditEvent(logging.APIAccess, c.Request.Method+" "+path, auditStatus).
			WithUserID(userID).
			WithIPAddress(c.ClientIP()).
			WithDetail("status", status).
			WithDetail("latency_ms", time.Since(start).Milliseconds()).
			WithDetail("user_agent", c.Request.UserAgent())
		if platform := c.Param("platform"); platform != "" {
			event.WithPlatform(platform)
		}
		if resource := c.GetString(auditResourceKey); resource != "" {
			event.WithDetail("resource", resource)
		}
		if status >= 500 {
			event.WithSeverity(logging.SeverityError)
		} else if status >= 400 {
			event.WithSeverity(logging.SeverityWarning)
		}

		sink.Audit(c.Request.Context(), event)
	}
}

// AuditAction records eventType for successful requests only.
func AuditAction(sink AuditSink, eventType logging.AuditEventType, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}
		event := logging.NewAuditEvent(eventType, action, logging.StatusSuccess).
			WithUserID(c.GetString(UserIDKey)).
			WithIPAddress(c.ClientIP())
		if platform := c.Param("platform"); platform != "" {
			event.WithPlatform(platform)
		}
		if resource := c.GetString(auditResourceKey); resource != "" {
			event.WithDetail("resource", resource)
		}
		sink.Audit(c.Request.Context(), event)
	}
}

// SetAuditResource is a helper to set the resource for audit logging in handlers
func SetAuditResource(c *gin.Context, resource string) {
	c.Set(auditResourceKey, resource)
}
