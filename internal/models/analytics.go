package models

import (
	"math"
	"time"
)

// Engagement holds interaction counts over the analytics window.
type Engagement struct {
	Likes    int64 `json:"likes"`
	Retweets int64 `json:"retweets"`
	Replies  int64 `json:"replies"`
}

// Metric names used in AnalyticsSnapshot.Unavailable.
const (
	MetricFollowers   = "followers"
	MetricImpressions = "impressions"
	MetricEngagement  = "engagement"
)

// AnalyticsSnapshot is one account's normalized analytics. Metrics the
// platform cannot supply are zero and listed in Unavailable.
type AnalyticsSnapshot struct {
	Followers   int64      `json:"followers"`
	Impressions int64      `json:"impressions"`
	Engagement  Engagement `json:"engagement"`
	Unavailable []string   `json:"unavailable,omitempty"`
}

// MarkUnavailable flags metrics the platform does not expose. Duplicates are ignored.
func (s *AnalyticsSnapshot) MarkUnavailable(metrics ...string) {
	for _, m := range metrics {
		if !s.IsUnavailable(m) {
			s.Unavailable = append(s.Unavailable, m)
		}
	}
}

func (s *AnalyticsSnapshot) IsUnavailable(metric string) bool {
	for _, m := range s.Unavailable {
		if m == metric {
			return true
		}
	}
	return false
}

// EngagementRate is (likes+retweets)/followers*100, or 0 with no followers.
func (s *AnalyticsSnapshot) EngagementRate() float64 {
	if s.Followers <= 0 {
		return 0
	}
	return float64(s.Engagement.Likes+s.Engagement.Retweets) / float64(s.Followers) * 100
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10) / 10
}

// PlatformOverview is one account's line in the overview.
type PlatformOverview struct {
	AccountID      string   `json:"accountId"`
	Platform       Platform `json:"platform"`
	Username       string   `json:"username,omitempty"`
	Followers      int64    `json:"followers"`
	Impressions    int64    `json:"impressions"`
	EngagementRate float64  `json:"engagementRate"`
	Unavailable    []string `json:"unavailable,omitempty"`
}

// Overview aggregates a user's accounts.
type Overview struct {
	TotalFollowers int64              `json:"totalFollowers"`
	EngagementRate float64            `json:"engagementRate"`
	Impressions    int64              `json:"impressions"`
	Platforms      []PlatformOverview `json:"platforms"`
}

// EmptyOverview is the result for a user with no accounts.
func EmptyOverview() *Overview {
	return &Overview{Platforms: []PlatformOverview{}}
}

// DailyPerformance is one entry of the per-day series.
type DailyPerformance struct {
	Date       string  `json:"date"`
	Followers  int64   `json:"followers"`
	Engagement float64 `json:"engagement"`
}

// SentimentBreakdown holds rounded percentages.
type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// AnalyticsRecord is a persisted daily point for the history endpoint.
type AnalyticsRecord struct {
	ID             string             `json:"id"`
	UserID         string             `json:"userId"`
	Platform       Platform           `json:"platform"`
	Date           time.Time          `json:"date"`
	Followers      int64              `json:"followers"`
	EngagementRate float64            `json:"engagementRate"`
	Impressions    int64              `json:"impressions"`
	Sentiment      SentimentBreakdown `json:"sentiment"`
}

// Insight is one named metric series from a Meta insights response.
type Insight struct {
	Name   string         `json:"name"`
	Period string         `json:"period"`
	Values []InsightValue `json:"values"`
	Total  int64          `json:"total"`
}

type InsightValue struct {
	Value   int64  `json:"value"`
	EndTime string `json:"endTime,omitempty"`
}

// MetaInsights is the insight set for one Facebook page or Instagram business account.
type MetaInsights struct {
	AccountID string    `json:"accountId"`
	Platform  Platform  `json:"platform"`
	Name      string    `json:"name"`
	Followers int64     `json:"followers"`
	Insights  []Insight `json:"insights"`
}
