// Package headers parses platform API response headers for rate limit usage.
package headers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/socialsync/socialsync/internal/models"
)

// Quota is the rate limit state reported by one upstream response.
type Quota struct {
	Platform  models.Platform
	Limit     int64
	Remaining int64
	// UsedPercent is set by platforms that report usage as a percentage
	// instead of absolute counts.
	UsedPercent float64
	ResetAt     time.Time
}

// RemainingPercent returns the share of the window still available, 0-100.
func (q Quota) RemainingPercent() float64 {
	if q.Limit > 0 {
		pct := float64(q.Remaining) / float64(q.Limit) * 100
		return clampPercent(pct)
	}
	return clampPercent(100 - q.UsedPercent)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Parser defines the interface for parsing platform-specific headers
type Parser interface {
	// Parse extracts rate limit information from HTTP response headers
	Parse(headers http.Header) (*Quota, error)
	// Platform returns the platform this parser handles
	Platform() models.Platform
}

// TwitterParser parses the x-rate-limit-* headers returned by the Twitter API
type TwitterParser struct{}

func (p *TwitterParser) Platform() models.Platform {
	return models.PlatformTwitter
}

// Parse extracts rate limit information from Twitter response headers
func (p *TwitterParser) Parse(headers http.Header) (*Quota, error) {
	// x-rate-limit-limit: 900
	// x-rate-limit-remaining: 899
	// x-rate-limit-reset: 1714567200
	limit := parseIntHeader(headers, "X-Rate-Limit-Limit")
	if limit <= 0 {
		return nil, fmt.Errorf("no rate limit headers found")
	}

	quota := &Quota{
		Platform:  models.PlatformTwitter,
		Limit:     limit,
		Remaining: parseIntHeader(headers, "X-Rate-Limit-Remaining"),
	}
	if reset := parseIntHeader(headers, "X-Rate-Limit-Reset"); reset > 0 {
		quota.ResetAt = time.Unix(reset, 0).UTC()
	}
	return quota, nil
}

// MetaParser parses the Graph API usage headers shared by Facebook and
// Instagram. Usage is reported as percentages of the app's allowance.
type MetaParser struct {
	platform models.Platform
}

// NewMetaParser returns a parser for one of the Graph API platforms.
func NewMetaParser(platform models.Platform) *MetaParser {
	return &MetaParser{platform: platform}
}

func (p *MetaParser) Platform() models.Platform {
	return p.platform
}

type appUsage struct {
	CallCount    float64 `json:"call_count"`
	TotalTime    float64 `json:"total_time"`
	TotalCPUTime float64 `json:"total_cputime"`
}

func (u appUsage) peak() float64 {
	return max(u.CallCount, u.TotalTime, u.TotalCPUTime)
}

// Parse extracts usage from X-App-Usage, falling back to the per business
// use case header, where the busiest use case wins.
func (p *MetaParser) Parse(headers http.Header) (*Quota, error) {
	// x-app-usage: {"call_count":28,"total_time":25,"total_cputime":25}
	if raw := headers.Get("X-App-Usage"); raw != "" {
		var usage appUsage
		if err := json.Unmarshal([]byte(raw), &usage); err != nil {
			return nil, fmt.Errorf("invalid X-App-Usage header: %w", err)
		}
		return &Quota{Platform: p.platform, UsedPercent: usage.peak()}, nil
	}

	// x-business-use-case-usage: {"<id>":[{"type":"pages","call_count":5,...}]}
	if raw := headers.Get("X-Business-Use-Case-Usage"); raw != "" {
		var byBusiness map[string][]appUsage
		if err := json.Unmarshal([]byte(raw), &byBusiness); err != nil {
			return nil, fmt.Errorf("invalid X-Business-Use-Case-Usage header: %w", err)
		}
		quota := &Quota{Platform: p.platform}
		for _, cases := range byBusiness {
			for _, u := range cases {
				quota.UsedPercent = max(quota.UsedPercent, u.peak())
			}
		}
		return quota, nil
	}

	return nil, fmt.Errorf("no rate limit headers found")
}

// Registry manages parsers for different platforms
type Registry struct {
	parsers map[models.Platform]Parser
}

// NewRegistry creates a new parser registry with default parsers. LinkedIn
// does not report rate limit state in headers and has no parser.
func NewRegistry() *Registry {
	r := &Registry{
		parsers: make(map[models.Platform]Parser),
	}

	r.Register(&TwitterParser{})
	r.Register(NewMetaParser(models.PlatformFacebook))
	r.Register(NewMetaParser(models.PlatformInstagram))

	return r
}

// Register adds a parser to the registry
func (r *Registry) Register(parser Parser) {
	r.parsers[parser.Platform()] = parser
}

// Get retrieves a parser for the given platform
func (r *Registry) Get(platform models.Platform) (Parser, bool) {
	parser, ok := r.parsers[platform]
	return parser, ok
}

// Parse attempts to parse headers using the appropriate platform parser
func (r *Registry) Parse(platform models.Platform, headers http.Header) (*Quota, error) {
	parser, ok := r.Get(platform)
	if !ok {
		return nil, fmt.Errorf("no parser registered for platform: %s", platform)
	}
	return parser.Parse(headers)
}

func parseIntHeader(headers http.Header, key string) int64 {
	val := strings.TrimSpace(headers.Get(key))
	if val == "" {
		return 0
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
