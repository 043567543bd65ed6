package middleware

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/socialsync/socialsync/internal/logging"
)

type captureSink struct {
	mu     sync.Mutex
	events []*logging.AuditEvent
}

func (c *captureSink) Audit(_ context.Context, event *logging.AuditEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureSink) lastEvent() *logging.AuditEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return nil
	}
	return c.events[len(c.events)-1]
}

func TestAuditAccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &captureSink{}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-User") != "" {
			c.Set(UserIDKey, c.GetHeader("X-User"))
		}
	})
	r.Use(AuditAccess(sink))

	r.GET("/accounts/:platform", func(c *gin.Context) {
		SetAuditResource(c, "acc-1")
		c.Status(200)
	})
	r.GET("/fail", func(c *gin.Context) {
		c.Status(500)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/accounts/twitter?token=secret", nil)
	req.Header.Set("X-User", "user")
	r.ServeHTTP(w, req)

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/fail", nil)
	req.Header.Set("X-User", "user")
	r.ServeHTTP(w, req)

	// anonymous requests are not audited
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/fail", nil))

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.events))
	}

	first := sink.events[0]
	if first.EventType != logging.APIAccess {
		t.Fatalf("expected APIAccess event")
	}
	if first.UserID != "user" {
		t.Fatalf("expected user_id to be set")
	}
	if first.Action != "GET /accounts/:platform" {
		t.Fatalf("expected route template in action, got %q", first.Action)
	}
	if first.Platform != "twitter" {
		t.Fatalf("expected platform, got %q", first.Platform)
	}
	if first.Details["resource"] != "acc-1" {
		t.Fatalf("expected audit resource")
	}
	for _, v := range first.Details {
		if s, ok := v.(string); ok && s == "secret" {
			t.Fatalf("query string leaked into audit details")
		}
	}

	second := sink.events[1]
	if second.Status != logging.StatusFailure || second.Severity != logging.SeverityError {
		t.Fatalf("expected failed event with error severity, got %s/%s", second.Status, second.Severity)
	}
}

func TestAuditAction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &captureSink{}

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(UserIDKey, "u1") })
	r.GET("/connect/:platform", AuditAction(sink, logging.AccountConnect, "connect.begin"), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(400)
			return
		}
		c.Status(302)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/connect/linkedin", nil))

	event := sink.lastEvent()
	if event == nil {
		t.Fatalf("expected audit event")
	}
	if event.EventType != logging.AccountConnect || event.Action != "connect.begin" {
		t.Fatalf("unexpected event %s %s", event.EventType, event.Action)
	}
	if event.UserID != "u1" || event.Platform != "linkedin" {
		t.Fatalf("expected user and platform, got %q %q", event.UserID, event.Platform)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/connect/linkedin?fail=1", nil))
	if len(sink.events) != 1 {
		t.Fatalf("failed requests must not be audited, got %d events", len(sink.events))
	}
}
