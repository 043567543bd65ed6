package analytics

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
	"github.com/socialsync/socialsync/internal/platforms"
	"github.com/socialsync/socialsync/internal/store"
)

type recorder struct {
	mu           sync.Mutex
	aggregations []string
	refreshes    []string
}

func (r *recorder) RecordAggregation(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aggregations = append(r.aggregations, outcome)
}

func (r *recorder) RecordTokenRefresh(platform, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes = append(r.refreshes, platform+":"+outcome)
}

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store    *store.MemoryStore
	fakes    map[models.Platform]*platforms.Fake
	recorder *recorder
	agg      *Aggregator
	seeded   int
}

func newFixture(t *testing.T, cfg config.AnalyticsConfig, only ...models.Platform) *fixture {
	t.Helper()
	if len(only) == 0 {
		only = models.Platforms
	}
	f := &fixture{
		store:    store.NewMemoryStore(),
		fakes:    make(map[models.Platform]*platforms.Fake),
		recorder: &recorder{},
	}
	adapters := make([]platforms.Adapter, 0, len(only))
	for _, p := range only {
		fake := platforms.NewFake(p)
		f.fakes[p] = fake
		adapters = append(adapters, fake)
	}
	f.agg = NewAggregator(f.store, platforms.NewRegistryFrom(adapters...), cfg,
		WithRecorder(f.recorder),
		WithClock(func() time.Time { return baseTime }),
	)
	return f
}

// seed stores an account with a strictly increasing creation time so the
// store order is deterministic.
func (f *fixture) seed(t *testing.T, acc models.Account) models.Account {
	t.Helper()
	f.seeded++
	if acc.UserID == "" {
		acc.UserID = "user-1"
	}
	if acc.AccessToken == "" {
		acc.AccessToken = "tok-" + acc.PlatformID
	}
	acc.CreatedAt = baseTime.Add(time.Duration(f.seeded) * time.Second)
	require.NoError(t, f.store.SaveAccount(context.Background(), &acc))
	return acc
}

func TestOverview_NoAccounts(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})

	overview, err := f.agg.Overview(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), overview.TotalFollowers)
	assert.Equal(t, 0.0, overview.EngagementRate)
	assert.Equal(t, int64(0), overview.Impressions)
	assert.NotNil(t, overview.Platforms)
	assert.Empty(t, overview.Platforms)
	for _, fake := range f.fakes {
		assert.Equal(t, 0, fake.TotalCalls())
	}
}

func TestOverview_RequiresUser(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	_, err := f.agg.Overview(context.Background(), "")
	assert.True(t, stderrors.Is(err, errors.ErrUnauthorized))
}

func TestOverview_MeanOfAccountRates(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	tw := f.seed(t, models.Account{Platform: models.PlatformTwitter, PlatformID: "tw1", Username: "alice"})
	li := f.seed(t, models.Account{Platform: models.PlatformLinkedIn, PlatformID: "li1"})

	f.fakes[models.PlatformTwitter].Snapshot = &models.AnalyticsSnapshot{
		Followers:   100,
		Impressions: 1000,
		Engagement:  models.Engagement{Likes: 8, Retweets: 2},
	}
	f.fakes[models.PlatformLinkedIn].Snapshot = &models.AnalyticsSnapshot{
		Followers:   50,
		Impressions: 500,
		Engagement:  models.Engagement{Likes: 10},
	}

	overview, err := f.agg.Overview(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), overview.TotalFollowers)
	assert.Equal(t, int64(1500), overview.Impressions)
	assert.Equal(t, 15.0, overview.EngagementRate)

	require.Len(t, overview.Platforms, 2)
	assert.Equal(t, tw.ID, overview.Platforms[0].AccountID)
	assert.Equal(t, models.PlatformTwitter, overview.Platforms[0].Platform)
	assert.Equal(t, 10.0, overview.Platforms[0].EngagementRate)
	assert.Equal(t, li.ID, overview.Platforms[1].AccountID)
	assert.Equal(t, 20.0, overview.Platforms[1].EngagementRate)

	assert.Equal(t, []string{"success"}, f.recorder.aggregations)
}

func TestOverview_ZeroFollowers(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	f.seed(t, models.Account{Platform: models.PlatformTwitter, PlatformID: "tw1"})
	f.fakes[models.PlatformTwitter].Snapshot = &models.AnalyticsSnapshot{
		Engagement: models.Engagement{Likes: 40, Retweets: 3},
	}

	overview, err := f.agg.Overview(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, overview.EngagementRate)
	assert.Equal(t, 0.0, overview.Platforms[0].EngagementRate)
}

func TestOverview_PreservesStoreOrder(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{Concurrency: 3})
	fb := f.fakes[models.PlatformFacebook]
	fb.Snapshots = make(map[string]*models.AnalyticsSnapshot)

	var ids []string
	for i, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		acc := f.seed(t, models.Account{
			Platform:             models.PlatformFacebook,
			PlatformID:           id,
			FacebookPageID:       id,
			FacebookPageName:     id,
			FacebookPageCategory: "Cat",
		})
		fb.Snapshots[acc.ID] = &models.AnalyticsSnapshot{Followers: int64(i + 1)}
		ids = append(ids, acc.ID)
	}

	overview, err := f.agg.Overview(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, overview.Platforms, 5)
	for i, p := range overview.Platforms {
		assert.Equal(t, ids[i], p.AccountID)
		assert.Equal(t, int64(i+1), p.Followers)
	}
	assert.Equal(t, int64(15), overview.TotalFollowers)
}

func TestOverview_OneFailureFailsAll(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	f.seed(t, models.Account{Platform: models.PlatformTwitter, PlatformID: "tw1"})
	li := f.seed(t, models.Account{Platform: models.PlatformLinkedIn, PlatformID: "li1"})
	f.fakes[models.PlatformTwitter].Snapshot = &models.AnalyticsSnapshot{Followers: 10}
	f.fakes[models.PlatformLinkedIn].AnalyticsErr = &errors.ErrNoOrganization{Platform: "linkedin"}

	overview, err := f.agg.Overview(context.Background(), "user-1")
	assert.Nil(t, overview)

	var aggErr *errors.ErrAnalyticsAggregation
	require.ErrorAs(t, err, &aggErr)
	assert.Equal(t, li.ID, aggErr.AccountID)
	assert.Equal(t, "linkedin", aggErr.Platform)

	var fetchErr *errors.ErrAnalyticsFetch
	assert.ErrorAs(t, err, &fetchErr)
	var noOrg *errors.ErrNoOrganization
	assert.ErrorAs(t, err, &noOrg)

	assert.Equal(t, []string{"failure"}, f.recorder.aggregations)
	records, err := f.store.ListAnalyticsRecords(context.Background(), store.RecordFilter{UserID: "user-1"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestOverview_UpstreamTimeout(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{UpstreamTimeout: 20 * time.Millisecond})
	f.seed(t, models.Account{Platform: models.PlatformTwitter, PlatformID: "tw1"})
	f.fakes[models.PlatformTwitter].Block = true

	start := time.Now()
	_, err := f.agg.Overview(context.Background(), "user-1")
	assert.Less(t, time.Since(start), 2*time.Second)

	var fetchErr *errors.ErrAnalyticsFetch
	require.ErrorAs(t, err, &fetchErr)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
}

func TestOverview_SkipsPlatformsWithoutAdapter(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{}, models.PlatformTwitter)
	f.seed(t, models.Account{Platform: models.PlatformLinkedIn, PlatformID: "li1"})
	tw := f.seed(t, models.Account{Platform: models.PlatformTwitter, PlatformID: "tw1"})
	f.fakes[models.PlatformTwitter].Snapshot = &models.AnalyticsSnapshot{Followers: 7}

	overview, err := f.agg.Overview(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, overview.Platforms, 1)
	assert.Equal(t, tw.ID, overview.Platforms[0].AccountID)
	assert.Equal(t, int64(7), overview.TotalFollowers)
}

func TestOverview_KeepsUnavailableMetrics(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	f.seed(t, models.Account{Platform: models.PlatformLinkedIn, PlatformID: "li1"})
	snap := &models.AnalyticsSnapshot{Followers: 80}
	snap.MarkUnavailable(models.MetricImpressions, models.MetricEngagement)
	f.fakes[models.PlatformLinkedIn].Snapshot = snap

	overview, err := f.agg.Overview(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"impressions", "engagement"}, overview.Platforms[0].Unavailable)
	assert.Equal(t, 0.0, overview.EngagementRate)
}

func TestOverview_RecordsHistory(t *testing.T) {
	f := newFixture(t, config.AnalyticsConfig{})
	f.seed(t, models.Account{Platform: models.PlatformTwitter, PlatformID: "tw1"})
	f.fakes[models.PlatformTwitter].Snapshot = &models.AnalyticsSnapshot{
		Followers:   200,
		Impressions: 50,
		Engagement:  models.Engagement{Likes: 10},
	}

	_, err := f.agg.Overview(context.Background(), "user-1")
	require.NoError(t, err)
	_, err = f.agg.Overview(context.Background(), "user-1")
	require.NoError(t, err)

	records, err := f.agg.History(context.Background(), "user-1", "", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.PlatformTwitter, records[0].Platform)
	assert.Equal(t, int64(200), records[0].Followers)
	assert.Equal(t, 5.0, records[0].EngagementRate)
	assert.Equal(t, "2026-03-10", records[0].Date.Format("2006-01-02"))
}

func TestOverview_HistoryDisabled(t *testing.T) {
	off := false
	f := newFixture(t, config.AnalyticsConfig{RecordHistory: &off})
	f.seed(t, models.Account{Platform: models.PlatformTwitter, PlatformID: "tw1"})

	_, err := f.agg.Overview(context.Background(), "user-1")
	require.NoError(t, err)

	records, err := f.agg.History(context.Background(), "user-1", "", 7)
	require.NoError(t, err)
	assert.Empty(t, records)
}
