package platforms

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/socialsync/socialsync/internal/models"
)

func TestDailySeries(t *testing.T) {
	points := []PostPoint{
		{CreatedAt: "2026-03-02T23:30:00-02:00", Likes: 1},
		{CreatedAt: "2026-03-02T09:00:00Z", Likes: 9, Retweets: 1},
		{CreatedAt: "not a date", Likes: 100},
		{CreatedAt: "2026-03-03T01:00:00Z", Likes: 2},
	}

	got := DailySeries(points, 50)
	assert.Equal(t, []models.DailyPerformance{
		{Date: "2026-03-03", Followers: 50, Engagement: 4.0},
		{Date: "2026-03-02", Followers: 50, Engagement: 20.0},
	}, got)
}

func TestDailySeriesZeroFollowers(t *testing.T) {
	got := DailySeries([]PostPoint{{CreatedAt: "2026-03-02T09:00:00Z", Likes: 9}}, 0)
	assert.Equal(t, 0.0, got[0].Engagement)
	assert.Empty(t, DailySeries(nil, 10))
}

func TestKeywordSentiment(t *testing.T) {
	assert.Equal(t, models.SentimentBreakdown{}, KeywordSentiment(nil))
	assert.Equal(t,
		models.SentimentBreakdown{Positive: 33, Negative: 33, Neutral: 33},
		KeywordSentiment([]string{"HAPPY day", "I hate mondays", "meh"}))
	// positive keywords take precedence
	assert.Equal(t,
		models.SentimentBreakdown{Positive: 100},
		KeywordSentiment([]string{"love it, bad weather though"}))
}
