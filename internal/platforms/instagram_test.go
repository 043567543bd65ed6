package platforms

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialsync/socialsync/internal/models"
)

func TestInstagramProfileDefaultsToPersonal(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id,username,account_type,media_count", r.URL.Query().Get("fields"))
		writeJSON(t, w, map[string]any{"id": "ig-9", "username": "cat.pics"})
	})

	ig := NewInstagram(u.platformConfig(), u.client(), nil)
	profile, err := ig.FetchProfile(context.Background(), &Token{AccessToken: "at"})
	require.NoError(t, err)
	assert.Equal(t, "ig-9", profile.ID)
	assert.Equal(t, models.InstagramPersonal, profile.AccountType)
}

func TestInstagramProfileMediaCreator(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": "ig-7", "username": "maker", "account_type": "MEDIA_CREATOR"})
	})

	ig := NewInstagram(u.platformConfig(), u.client(), nil)
	profile, err := ig.FetchProfile(context.Background(), &Token{AccessToken: "at"})
	require.NoError(t, err)
	assert.Equal(t, models.InstagramCreator, profile.AccountType)
}

func TestInstagramExchangeAndUpgrade(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		writeJSON(t, w, map[string]any{"access_token": "short", "user_id": 17841400000})
	})
	u.mux.HandleFunc("/access_token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ig_exchange_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "short", r.URL.Query().Get("access_token"))
		writeJSON(t, w, map[string]any{"access_token": "long", "expires_in": 5183944})
	})

	ig := NewInstagram(u.platformConfig(), u.client(), nil)
	short, err := ig.ExchangeCode(context.Background(), "code", "")
	require.NoError(t, err)
	long, err := ig.UpgradeToken(context.Background(), short)
	require.NoError(t, err)
	assert.Equal(t, "long", long.AccessToken)
	assert.NotNil(t, long.ExpiresAt)
}

func TestInstagramStandaloneAnalytics(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"followers_count": 40})
	})
	u.mux.HandleFunc("/me/media", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"data": []map[string]any{
			{"id": "m1", "like_count": 3, "comments_count": 1},
			{"id": "m2", "like_count": 1},
		}})
	})

	ig := NewInstagram(u.platformConfig(), u.client(), nil)
	snap, err := ig.FetchAnalytics(context.Background(), &models.Account{AccessToken: "at", InstagramBusinessID: "ig-9"})
	require.NoError(t, err)
	assert.Equal(t, int64(40), snap.Followers)
	assert.Equal(t, models.Engagement{Likes: 4, Replies: 1}, snap.Engagement)
	assert.True(t, snap.IsUnavailable(models.MetricImpressions))
	assert.InDelta(t, 10.0, snap.EngagementRate(), 0.0001)

	_, err = ig.FetchInsights(context.Background(), &models.Account{AccessToken: "at"})
	assert.Error(t, err)
}

func TestInstagramBusinessAnalyticsAndRefresh(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/ig1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"followers_count": 900})
	})
	u.mux.HandleFunc("/ig1/insights", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, igMetric, r.URL.Query().Get("metric"))
		writeJSON(t, w, map[string]any{"data": []map[string]any{
			{"name": "impressions", "values": []map[string]any{{"value": 10}, {"value": 15}}},
			{"name": "reach", "values": []map[string]any{{"value": 7}}},
		}})
	})
	u.mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
		writeJSON(t, w, map[string]any{"access_token": "new-user", "expires_in": 100})
	})

	fb := NewFacebook(u.platformConfig(), u.client())
	ig := NewInstagram(u.platformConfig(), u.client(), fb)
	acc := &models.Account{
		Platform:                models.PlatformInstagram,
		PlatformID:              "ig1",
		Username:                "bakery.ig",
		AccessToken:             "page-token",
		RefreshToken:            "user-token",
		InstagramBusinessID:     "ig1",
		InstagramAccountType:    models.InstagramBusiness,
		ConnectedFacebookPageID: "p1",
	}

	snap, err := ig.FetchAnalytics(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, int64(900), snap.Followers)
	assert.Equal(t, int64(25), snap.Impressions)

	insights, err := ig.FetchInsights(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, models.PlatformInstagram, insights.Platform)
	assert.Len(t, insights.Insights, 2)

	tok, err := ig.RefreshToken(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, "page-token", tok.AccessToken)
	assert.Equal(t, "new-user", tok.RefreshToken)
}
