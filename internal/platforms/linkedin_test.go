package platforms

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
)

func TestLinkedInAuthURLAndExchange(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		writeJSON(t, w, map[string]any{"access_token": "li-at", "expires_in": 5184000})
	})
	u.mux.HandleFunc("/v2/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"id": "li-1", "localizedFirstName": "Ada", "localizedLastName": "Lovelace"})
	})

	li := NewLinkedIn(u.platformConfig(), u.client())
	parsed, err := url.Parse(li.AuthURL("st", ""))
	require.NoError(t, err)
	assert.Equal(t, "st", parsed.Query().Get("state"))
	assert.Empty(t, parsed.Query().Get("code_challenge"))
	assert.False(t, li.UsesPKCE())

	tok, err := li.ExchangeCode(context.Background(), "code", "")
	require.NoError(t, err)
	assert.Equal(t, "li-at", tok.AccessToken)

	same, err := li.UpgradeToken(context.Background(), tok)
	require.NoError(t, err)
	assert.Same(t, tok, same)

	profile, err := li.FetchProfile(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "li-1", profile.ID)
	assert.Equal(t, "Ada Lovelace", profile.Username)
}

func TestLinkedInAnalytics(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/v2/organizationalEntityAcls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ADMINISTRATOR", r.URL.Query().Get("role"))
		writeJSON(t, w, map[string]any{"elements": []map[string]any{
			{"organizationalTarget": "urn:li:organization:1234"},
		}})
	})
	u.mux.HandleFunc("/v2/organizationalEntityFollowerStatistics", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "urn:li:organization:1234", r.URL.Query().Get("organizationalEntity"))
		writeJSON(t, w, map[string]any{"elements": []map[string]any{
			{"followerCounts": map[string]any{"organicFollowerCount": 321}},
		}})
	})

	li := NewLinkedIn(u.platformConfig(), u.client())
	snap, err := li.FetchAnalytics(context.Background(), &models.Account{AccessToken: "li-at"})
	require.NoError(t, err)
	assert.Equal(t, int64(321), snap.Followers)
	assert.Equal(t, int64(0), snap.Impressions)
	assert.True(t, snap.IsUnavailable(models.MetricImpressions))
	assert.True(t, snap.IsUnavailable(models.MetricEngagement))
	assert.Equal(t, 0.0, snap.EngagementRate())
}

func TestLinkedInNoOrganization(t *testing.T) {
	u := newUpstream(t)
	u.mux.HandleFunc("/v2/organizationalEntityAcls", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"elements": []any{}})
	})

	li := NewLinkedIn(u.platformConfig(), u.client())
	_, err := li.FetchAnalytics(context.Background(), &models.Account{AccessToken: "li-at"})

	var noOrg *errors.ErrNoOrganization
	require.ErrorAs(t, err, &noOrg)
	var fetch *errors.ErrAnalyticsFetch
	assert.ErrorAs(t, err, &fetch)
	assert.Equal(t, int64(1), u.hits.Load())
}
