package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
)

func TestPerformance_RequiresTwitterAccount(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})

	_, err := f.agg.Performance(context.Background(), "user-1", "")
	var notFound *errors.ErrAccountNotFound
	assert.ErrorAs(t, err, &notFound)
	assert.Equal(t, 0, f.fakes[models.PlatformTwitter].TotalCalls())
}

func TestPerformance_ReturnsSeries(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	f.seed(t, models.Account{Platform: models.PlatformTwitter, PlatformID: "tw1"})
	f.fakes[models.PlatformTwitter].Series = []models.DailyPerformance{
		{Date: "2026-03-09", Followers: 10, Engagement: 20},
	}

	series, err := f.agg.Performance(context.Background(), "user-1", "someone")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "2026-03-09", series[0].Date)
}

func TestSentiment(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	f.seed(t, models.Account{Platform: models.PlatformTwitter, PlatformID: "tw1"})
	f.fakes[models.PlatformTwitter].Mood = models.SentimentBreakdown{Positive: 50, Negative: 25, Neutral: 25}

	mood, err := f.agg.Sentiment(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.Equal(t, 50, mood.Positive)

	f.fakes[models.PlatformTwitter].AnalyticsErr = assert.AnError
	_, err = f.agg.Sentiment(context.Background(), "user-1", "")
	var fetchErr *errors.ErrAnalyticsFetch
	assert.ErrorAs(t, err, &fetchErr)
}

func seedMeta(t *testing.T, f *fixture) {
	t.Helper()
	f.seed(t, models.Account{
		Platform:             models.PlatformFacebook,
		PlatformID:           "page-1",
		FacebookPageID:       "page-1",
		FacebookPageName:     "Bakery",
		FacebookPageCategory: "Food",
	})
	f.seed(t, models.Account{
		Platform:                models.PlatformInstagram,
		PlatformID:              "ig-1",
		InstagramBusinessID:     "ig-1",
		InstagramAccountType:    models.InstagramBusiness,
		ConnectedFacebookPageID: "page-1",
	})
	f.seed(t, models.Account{
		Platform:             models.PlatformInstagram,
		PlatformID:           "ig-2",
		InstagramBusinessID:  "ig-2",
		InstagramAccountType: models.InstagramPersonal,
	})
}

func TestMetaInsights_Unified(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	seedMeta(t, f)

	insights, err := f.agg.MetaInsights(context.Background(), "user-1", "")
	require.NoError(t, err)
	require.Len(t, insights, 2)
	assert.Equal(t, models.PlatformFacebook, insights[0].Platform)
	assert.Equal(t, "page-1", insights[0].AccountID)
	assert.Equal(t, models.PlatformInstagram, insights[1].Platform)
	assert.Equal(t, "ig-1", insights[1].AccountID)
	assert.Equal(t, 1, f.fakes[models.PlatformInstagram].Calls("FetchInsights"))
}

func TestMetaInsights_PerPlatform(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	seedMeta(t, f)

	insights, err := f.agg.MetaInsights(context.Background(), "user-1", models.PlatformInstagram)
	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, 0, f.fakes[models.PlatformFacebook].Calls("FetchInsights"))

	_, err = f.agg.MetaInsights(context.Background(), "user-2", models.PlatformFacebook)
	var notFound *errors.ErrAccountNotFound
	assert.ErrorAs(t, err, &notFound)

	_, err = f.agg.MetaInsights(context.Background(), "user-1", models.PlatformLinkedIn)
	var unsupported *errors.ErrUnsupportedPlatform
	assert.ErrorAs(t, err, &unsupported)
}

func TestMetaInsights_NoAccounts(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	insights, err := f.agg.MetaInsights(context.Background(), "user-1", "")
	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestHistory_FiltersByWindowAndPlatform(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	ctx := context.Background()
	for _, rec := range []models.AnalyticsRecord{
		{UserID: "user-1", Platform: models.PlatformTwitter, Date: baseTime.AddDate(0, 0, -40), Followers: 1},
		{UserID: "user-1", Platform: models.PlatformTwitter, Date: baseTime.AddDate(0, 0, -3), Followers: 2},
		{UserID: "user-1", Platform: models.PlatformLinkedIn, Date: baseTime.AddDate(0, 0, -2), Followers: 3},
		{UserID: "user-2", Platform: models.PlatformTwitter, Date: baseTime, Followers: 4},
	} {
		require.NoError(t, f.store.SaveAnalyticsRecord(ctx, &rec))
	}

	records, err := f.agg.History(ctx, "user-1", "", 0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[0].Followers)
	assert.Equal(t, int64(3), records[1].Followers)

	records, err = f.agg.History(ctx, "user-1", models.PlatformTwitter, 1000)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = f.agg.History(ctx, "user-1", models.PlatformTwitter, 1)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = f.agg.History(ctx, "", "", 1)
	assert.Error(t, err)
}
