package platforms

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
)

func newTestTwitter(u *upstream) *Twitter {
	tw := NewTwitter(u.platformConfig(), u.client())
	tw.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return tw
}

func TestTwitterAuthURL(t *testing.T) {
	u := newUpstream(t)
	tw := newTestTwitter(u)

	raw := tw.AuthURL("state-1", "challenge-1")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)
	q := parsed.Query()

	assert.Equal(t, "/authorize", parsed.Path)
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "challenge-1", q.Get("code_challenge"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "tweet.read users.read offline.access", q.Get("scope"))
	assert.True(t, tw.UsesPKCE())
}

func TestTwitterExchangeCode(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))
		writeJSON(t, w, map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"expires_in":    7200,
			"scope":         "tweet.read",
		})
	})

	tw := newTestTwitter(u)
	tok, err := tw.ExchangeCode(context.Background(), "the-code", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "at", tok.AccessToken)
	assert.Equal(t, "rt", tok.RefreshToken)
	require.NotNil(t, tok.ExpiresAt)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC), *tok.ExpiresAt)
}

func TestTwitterExchangeCodeUpstreamFailure(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := newTestTwitter(u).ExchangeCode(context.Background(), "code", "v")
	var exchange *errors.ErrAuthExchange
	require.ErrorAs(t, err, &exchange)
}

func TestTwitterProfileAndAnalytics(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/2/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		writeJSON(t, w, map[string]any{"data": map[string]any{"id": "42", "username": "jack", "name": "Jack"}})
	})
	u.mux.HandleFunc("/2/users/42", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "public_metrics", r.URL.Query().Get("user.fields"))
		writeJSON(t, w, map[string]any{"data": map[string]any{
			"id": "42", "username": "jack",
			"public_metrics": map[string]any{"followers_count": 200},
		}})
	})
	u.mux.HandleFunc("/2/users/42/tweets", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("max_results"))
		assert.Equal(t, "2026-03-03T12:00:00Z", q.Get("start_time"))
		writeJSON(t, w, map[string]any{"data": []map[string]any{
			{"id": "1", "created_at": "2026-03-09T10:00:00Z", "public_metrics": map[string]any{
				"like_count": 10, "retweet_count": 4, "reply_count": 1, "impression_count": 500,
			}},
			{"id": "2", "created_at": "2026-03-08T10:00:00Z", "public_metrics": map[string]any{
				"like_count": 6, "retweet_count": 0, "reply_count": 2,
			}},
		}})
	})

	tw := newTestTwitter(u)
	profile, err := tw.FetchProfile(context.Background(), &Token{AccessToken: "at"})
	require.NoError(t, err)
	assert.Equal(t, &Profile{ID: "42", Username: "jack", DisplayName: "Jack"}, profile)

	acc := &models.Account{ID: "a1", Platform: models.PlatformTwitter, PlatformID: "42", Username: "jack", AccessToken: "at"}
	snap, err := tw.FetchAnalytics(context.Background(), acc)
	require.NoError(t, err)
	assert.Equal(t, int64(200), snap.Followers)
	assert.Equal(t, int64(500), snap.Impressions)
	assert.Equal(t, models.Engagement{Likes: 16, Retweets: 4, Replies: 3}, snap.Engagement)
	assert.Empty(t, snap.Unavailable)
	assert.InDelta(t, 10.0, snap.EngagementRate(), 0.0001)
}

func TestTwitterDailyPerformanceLastWriteWins(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/2/users/42", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"data": map[string]any{
			"id": "42", "public_metrics": map[string]any{"followers_count": 100},
		}})
	})
	u.mux.HandleFunc("/2/users/42/tweets", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"data": []map[string]any{
			{"created_at": "2026-03-09T08:00:00Z", "public_metrics": map[string]any{"like_count": 50, "retweet_count": 0}},
			{"created_at": "2026-03-09T20:00:00Z", "public_metrics": map[string]any{"like_count": 3, "retweet_count": 2}},
		}})
	})

	acc := &models.Account{PlatformID: "42", Username: "jack", AccessToken: "at"}
	series, err := newTestTwitter(u).DailyPerformance(context.Background(), acc, "")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, models.DailyPerformance{Date: "2026-03-09", Followers: 100, Engagement: 5.0}, series[0])
}

func TestTwitterSentimentForOtherUsername(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/2/users/by/username/other", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"data": map[string]any{"id": "77", "username": "other"}})
	})
	u.mux.HandleFunc("/2/users/77/tweets", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("start_time"))
		writeJSON(t, w, map[string]any{"data": []map[string]any{
			{"text": "I love this"},
			{"text": "so sad today"},
			{"text": "just a tweet"},
			{"text": "great news"},
		}})
	})

	acc := &models.Account{PlatformID: "42", Username: "jack", AccessToken: "at"}
	got, err := newTestTwitter(u).Sentiment(context.Background(), acc, "other")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentBreakdown{Positive: 50, Negative: 25, Neutral: 25}, got)
}

func TestTwitterRefreshToken(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-rt", r.PostForm.Get("refresh_token"))
		writeJSON(t, w, map[string]any{"access_token": "new-at", "refresh_token": "new-rt", "expires_in": 60})
	})

	tw := newTestTwitter(u)
	tok, err := tw.RefreshToken(context.Background(), &models.Account{RefreshToken: "old-rt"})
	require.NoError(t, err)
	assert.Equal(t, "new-at", tok.AccessToken)
	assert.Equal(t, "new-rt", tok.RefreshToken)

	_, err = tw.RefreshToken(context.Background(), &models.Account{})
	var refreshErr *errors.ErrTokenRefresh
	assert.ErrorAs(t, err, &refreshErr)
}
