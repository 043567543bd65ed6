package platforms

import (
	"math"
	"strings"
	"time"

	"github.com/socialsync/socialsync/internal/models"
)

// PostPoint is the per-post input of DailySeries.
type PostPoint struct {
	CreatedAt string
	Likes     int64
	Retweets  int64
}

// DailySeries buckets posts by the UTC date of CreatedAt. A later post on the
// same date replaces the earlier entry. Dates keep their first-seen order.
// Posts with an unparseable timestamp are skipped.
func DailySeries(points []PostPoint, followers int64) []models.DailyPerformance {
	byDate := make(map[string]int)
	out := make([]models.DailyPerformance, 0, len(points))

	for _, p := range points {
		date, ok := utcDate(p.CreatedAt)
		if !ok {
			continue
		}
		snap := models.AnalyticsSnapshot{
			Followers:  followers,
			Engagement: models.Engagement{Likes: p.Likes, Retweets: p.Retweets},
		}
		entry := models.DailyPerformance{
			Date:       date,
			Followers:  followers,
			Engagement: models.Round1(snap.EngagementRate()),
		}
		if i, seen := byDate[date]; seen {
			out[i] = entry
			continue
		}
		byDate[date] = len(out)
		out = append(out, entry)
	}
	return out
}

func utcDate(ts string) (string, bool) {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.UTC().Format("2006-01-02"), true
	}
	if len(ts) >= 10 {
		if t, err := time.Parse("2006-01-02", ts[:10]); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

var (
	positiveWords = []string{"happy", "great", "love"}
	negativeWords = []string{"sad", "bad", "hate"}
)

// KeywordSentiment classifies each text by keyword and returns rounded
// percentages. Positive keywords win over negative ones in the same text.
func KeywordSentiment(texts []string) models.SentimentBreakdown {
	if len(texts) == 0 {
		return models.SentimentBreakdown{}
	}
	var pos, neg, neu int
	for _, text := range texts {
		lower := strings.ToLower(text)
		switch {
		case containsAny(lower, positiveWords):
			pos++
		case containsAny(lower, negativeWords):
			neg++
		default:
			neu++
		}
	}
	total := float64(len(texts))
	pct := func(n int) int { return int(math.Round(float64(n) / total * 100)) }
	return models.SentimentBreakdown{Positive: pct(pos), Negative: pct(neg), Neutral: pct(neu)}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
