// Package analytics fans a user's accounts out to their platform adapters
// and merges the results.
package analytics

import (
	"context"
	stderrors "errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/metrics"
	"github.com/socialsync/socialsync/internal/models"
	"github.com/socialsync/socialsync/internal/platforms"
	"github.com/socialsync/socialsync/internal/store"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultConcurrency = 4
	defaultRefreshSkew = 5 * time.Minute
)

// Recorder receives aggregation and refresh outcomes.
type Recorder interface {
	RecordAggregation(outcome string)
	RecordTokenRefresh(platform, outcome string)
}

// Aggregator builds overviews and the per-platform analytics views.
type Aggregator struct {
	store       store.Store
	registry    *platforms.Registry
	timeout     time.Duration
	concurrency int
	skew        time.Duration
	history     bool
	logger      *logging.Logger
	recorder    Recorder
	now         func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithLogger(l *logging.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(a *Aggregator) { a.recorder = r }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator creates an Aggregator. Zero config values fall back to a 10s
// upstream timeout, 4 concurrent calls and a 5m refresh skew.
func NewAggregator(s store.Store, registry *platforms.Registry, cfg config.AnalyticsConfig, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:       s,
		registry:    registry,
		timeout:     cfg.UpstreamTimeout,
		concurrency: cfg.Concurrency,
		skew:        cfg.RefreshSkew,
		history:     cfg.HistoryEnabled(),
		logger:      logging.Nop(),
		now:         time.Now,
	}
	if a.timeout <= 0 {
		a.timeout = defaultTimeout
	}
	if a.concurrency <= 0 {
		a.concurrency = defaultConcurrency
	}
	if a.skew <= 0 {
		a.skew = defaultRefreshSkew
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type job struct {
	account models.Account
	adapter platforms.Adapter
}

// Overview fetches every account the user has linked and merges the
// snapshots. One failing account fails the whole overview.
func (a *Aggregator) Overview(ctx context.Context, userID string) (*models.Overview, error) {
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}
	accounts, err := a.store.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	jobs := make([]job, 0, len(accounts))
	for _, acc := range accounts {
		adapter, ok := a.registry.Get(acc.Platform)
		if !ok {
			a.logger.DebugWithContext(ctx, "skipping account without adapter",
				"account_id", acc.ID,
				"platform", string(acc.Platform),
			)
			continue
		}
		jobs = append(jobs, job{account: acc, adapter: adapter})
	}
	if len(jobs) == 0 {
		a.record(metrics.OutcomeSuccess)
		return models.EmptyOverview(), nil
	}

	snapshots := make([]*models.AnalyticsSnapshot, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range jobs {
		j := &jobs[i]
		g.Go(func() error {
			snap, err := a.fetch(gctx, j.adapter, &j.account)
			if err != nil {
				return &errors.ErrAnalyticsAggregation{
					AccountID: j.account.ID,
					Platform:  string(j.account.Platform),
					Err:       err,
				}
			}
			snapshots[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.record(metrics.OutcomeFailure)
		a.logger.ErrorWithContext(ctx, "analytics aggregation failed",
			"user_id", userID,
			"accounts", len(jobs),
			"error", err,
		)
		return nil, err
	}

	overview := merge(jobs, snapshots)
	a.record(metrics.OutcomeSuccess)
	a.logger.InfoWithContext(ctx, "analytics aggregated",
		"user_id", userID,
		"accounts", len(jobs),
		"total_followers", overview.TotalFollowers,
	)
	if a.history {
		a.saveHistory(ctx, userID, overview)
	}
	return overview, nil
}

func merge(jobs []job, snapshots []*models.AnalyticsSnapshot) *models.Overview {
	overview := models.EmptyOverview()
	var rateSum float64
	for i, snap := range snapshots {
		acc := jobs[i].account
		rate := snap.EngagementRate()
		rateSum += rate

		overview.TotalFollowers += snap.Followers
		overview.Impressions += snap.Impressions
		overview.Platforms = append(overview.Platforms, models.PlatformOverview{
			AccountID:      acc.ID,
			Platform:       acc.Platform,
			Username:       acc.Username,
			Followers:      snap.Followers,
			Impressions:    snap.Impressions,
			EngagementRate: models.Round1(rate),
			Unavailable:    snap.Unavailable,
		})
	}
	overview.EngagementRate = models.Round1(rateSum / float64(len(snapshots)))
	return overview
}

// fetch refreshes the token when needed and calls the adapter under the
// per-call timeout.
func (a *Aggregator) fetch(ctx context.Context, adapter platforms.Adapter, acc *models.Account) (*models.AnalyticsSnapshot, error) {
	fresh, err := a.ensureFresh(ctx, adapter, acc)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	snap, err := adapter.FetchAnalytics(callCtx, fresh)
	if err != nil {
		return nil, asFetchError(acc.Platform, err)
	}
	if snap == nil {
		snap = &models.AnalyticsSnapshot{}
	}
	return snap, nil
}

// asFetchError keeps adapter errors as they are and wraps anything else,
// such as a bare deadline, as an ErrAnalyticsFetch.
func asFetchError(p models.Platform, err error) error {
	var fetchErr *errors.ErrAnalyticsFetch
	if stderrors.As(err, &fetchErr) {
		return err
	}
	return &errors.ErrAnalyticsFetch{Platform: string(p), Err: err}
}

func (a *Aggregator) record(outcome string) {
	if a.recorder != nil {
		a.recorder.RecordAggregation(outcome)
	}
}
