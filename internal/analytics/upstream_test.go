package analytics

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/models"
	"github.com/socialsync/socialsync/internal/platforms"
	"github.com/socialsync/socialsync/internal/store"
)

func TestOverview_TransportFailureKeepsTokensOutOfLogs(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	fb := platforms.NewFacebook(config.PlatformConfig{
		ClientID:     "app-id",
		ClientSecret: "app-secret-xyz",
		GraphBaseURL: base,
	}, platforms.NewClient(config.UpstreamConfig{Timeout: 2 * time.Second}))

	st := store.NewMemoryStore()
	require.NoError(t, st.SaveAccount(context.Background(), &models.Account{
		UserID:         "user-1",
		Platform:       models.PlatformFacebook,
		PlatformID:     "p1",
		Username:       "Bakery",
		AccessToken:    "PAGE-TOKEN-SECRET",
		FacebookPageID: "p1",
		CreatedAt:      baseTime,
	}))

	var buf bytes.Buffer
	agg := NewAggregator(st, platforms.NewRegistryFrom(fb), config.AnalyticsConfig{},
		WithLogger(logging.NewLogger(logging.WithOutput(&buf))),
		WithClock(func() time.Time { return baseTime }),
	)

	_, err := agg.Overview(context.Background(), "user-1")
	require.Error(t, err)
	var aggErr *errors.ErrAnalyticsAggregation
	assert.True(t, stderrors.As(err, &aggErr))

	_, err = agg.MetaInsights(context.Background(), "user-1", models.PlatformFacebook)
	require.Error(t, err)

	logs := buf.String()
	assert.Contains(t, logs, "analytics aggregation failed")
	assert.Contains(t, logs, "meta insights failed")
	assert.NotContains(t, logs, "PAGE-TOKEN-SECRET")
	assert.NotContains(t, logs, "app-secret-xyz")
}
