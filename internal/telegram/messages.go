package telegram

import (
	"fmt"
	"strings"
	"time"
)

// EventKind classifies a notification.
type EventKind string

const (
	EventConnectSucceeded EventKind = "connect_succeeded"
	EventConnectFailed    EventKind = "connect_failed"
	EventServerStarted    EventKind = "server_started"
)

// Event is one outgoing notification. It never carries user identifiers or
// credentials.
type Event struct {
	Kind      EventKind
	Platform  string
	Accounts  int
	Detail    string
	Timestamp time.Time
}

// dedupKey groups events that should not repeat within the dedup window.
// Successes are never suppressed.
func (e Event) dedupKey() string {
	if e.Kind == EventConnectFailed {
		return fmt.Sprintf("%s:%s", e.Kind, e.Platform)
	}
	return ""
}

func formatEvent(e Event) string {
	var b strings.Builder
	switch e.Kind {
	case EventConnectSucceeded:
		fmt.Fprintf(&b, "✅ *%s connected*\n", platformTitle(e.Platform))
		fmt.Fprintf(&b, "Accounts saved: %d", e.Accounts)
	case EventConnectFailed:
		fmt.Fprintf(&b, "⚠️ *%s connection failed*", platformTitle(e.Platform))
	case EventServerStarted:
		b.WriteString("🚀 *SocialSync started*")
		if e.Detail != "" {
			fmt.Fprintf(&b, "\n%s", escapeMarkdown(e.Detail))
		}
	default:
		b.WriteString(escapeMarkdown(e.Detail))
	}
	if !e.Timestamp.IsZero() {
		fmt.Fprintf(&b, "\n_%s_", e.Timestamp.UTC().Format("2006-01-02 15:04 UTC"))
	}
	return b.String()
}

func platformTitle(platform string) string {
	switch strings.ToLower(platform) {
	case "twitter":
		return "Twitter/X"
	case "linkedin":
		return "LinkedIn"
	case "facebook":
		return "Facebook"
	case "instagram":
		return "Instagram"
	case "":
		return "Account"
	default:
		return escapeMarkdown(platform)
	}
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
