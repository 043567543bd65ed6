package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEventType classifies an audit record.
type AuditEventType string

const (
	AuthFailure     AuditEventType = "AUTH_FAILURE"
	ConfigChange    AuditEventType = "CONFIG_CHANGE"
	AccountConnect  AuditEventType = "ACCOUNT_CONNECT"
	AccountDelete   AuditEventType = "ACCOUNT_DELETE"
	TokenRefresh    AuditEventType = "TOKEN_REFRESH"
	ConnectFailure  AuditEventType = "CONNECT_FAILURE"
	APIAccess       AuditEventType = "API_ACCESS"
	OperatorCommand AuditEventType = "OPERATOR_COMMAND"
)

var knownEventTypes = map[AuditEventType]struct{}{
	AuthFailure:     {},
	ConfigChange:    {},
	AccountConnect:  {},
	AccountDelete:   {},
	TokenRefresh:    {},
	ConnectFailure:  {},
	APIAccess:       {},
	OperatorCommand: {},
}

// AuditSeverity represents the severity level of an audit event
type AuditSeverity string

const (
	SeverityInfo     AuditSeverity = "info"
	SeverityWarning  AuditSeverity = "warning"
	SeverityError    AuditSeverity = "error"
	SeverityCritical AuditSeverity = "critical"
)

// AuditStatus represents the status of an audited action
type AuditStatus string

const (
	StatusSuccess AuditStatus = "success"
	StatusFailure AuditStatus = "failure"
)

// AuditEvent records who connected, disconnected or refreshed what.
// Details never carry token material; the emitting logger redacts them anyway.
type AuditEvent struct {
	ID           string                 `json:"id"`
	Timestamp    time.Time              `json:"timestamp"`
	EventType    AuditEventType         `json:"event_type"`
	Severity     AuditSeverity          `json:"severity"`
	UserID       string                 `json:"user_id,omitempty"`
	Platform     string                 `json:"platform,omitempty"`
	IPAddress    string                 `json:"ip_address,omitempty"`
	Action       string                 `json:"action"`
	Status       AuditStatus            `json:"status"`
	Details      map[string]interface{} `json:"details,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
}

// NewAuditEvent creates a new audit event with a generated ID and timestamp
func NewAuditEvent(eventType AuditEventType, action string, status AuditStatus) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Severity:  SeverityInfo,
		Action:    action,
		Status:    status,
	}
}

func (e *AuditEvent) WithUserID(userID string) *AuditEvent {
	e.UserID = userID
	return e
}

func (e *AuditEvent) WithPlatform(platform string) *AuditEvent {
	e.Platform = platform
	return e
}

func (e *AuditEvent) WithIPAddress(ipAddress string) *AuditEvent {
	e.IPAddress = ipAddress
	return e
}

func (e *AuditEvent) WithSeverity(severity AuditSeverity) *AuditEvent {
	e.Severity = severity
	return e
}

// WithDetail adds a single key to the details map.
func (e *AuditEvent) WithDetail(key string, value interface{}) *AuditEvent {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithError marks the event failed and raises severity to error unless already set higher.
func (e *AuditEvent) WithError(err error) *AuditEvent {
	if err == nil {
		return e
	}
	e.ErrorMessage = err.Error()
	e.Status = StatusFailure
	if e.Severity == "" || e.Severity == SeverityInfo {
		e.Severity = SeverityError
	}
	return e
}

// ToJSON converts the audit event to a JSON string
func (e *AuditEvent) ToJSON() string {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Sprintf(`{"error": "failed to marshal audit event: %v"}`, err)
	}
	return string(data)
}

// ParseAuditEvent parses a JSON string into an AuditEvent
func ParseAuditEvent(data string) (*AuditEvent, error) {
	var event AuditEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, fmt.Errorf("failed to parse audit event: %w", err)
	}
	return &event, nil
}

// EventTypeFromString converts a string to AuditEventType, defaulting to APIAccess.
func EventTypeFromString(s string) AuditEventType {
	t := AuditEventType(s)
	if _, ok := knownEventTypes[t]; ok {
		return t
	}
	return APIAccess
}

// Audit writes the event as a structured log entry. Failures log at warn.
func (l *Logger) Audit(ctx context.Context, event *AuditEvent) {
	if event == nil {
		return
	}
	fields := []interface{}{
		"audit_id", event.ID,
		"event_type", string(event.EventType),
		"action", event.Action,
		"status", string(event.Status),
		"severity", string(event.Severity),
	}
	if event.UserID != "" {
		fields = append(fields, "user_id", event.UserID)
	}
	if event.Platform != "" {
		fields = append(fields, "platform", event.Platform)
	}
	if event.IPAddress != "" {
		fields = append(fields, "ip", event.IPAddress)
	}
	if event.ErrorMessage != "" {
		fields = append(fields, "error", event.ErrorMessage)
	}
	for k, v := range event.Details {
		fields = append(fields, k, v)
	}

	if event.Status == StatusFailure {
		l.WarnWithContext(ctx, "audit", fields...)
		return
	}
	l.InfoWithContext(ctx, "audit", fields...)
}
