package analytics

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
	"github.com/socialsync/socialsync/internal/platforms"
	"github.com/socialsync/socialsync/internal/store"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
)

// timeline resolves the user's Twitter account and its timeline reader.
func (a *Aggregator) timeline(ctx context.Context, userID string) (platforms.TimelineReader, *models.Account, error) {
	if userID == "" {
		return nil, nil, errors.ErrUnauthorized
	}
	acc, err := a.store.GetAccountByPlatform(ctx, userID, models.PlatformTwitter)
	if err != nil {
		return nil, nil, err
	}
	adapter, ok := a.registry.Get(models.PlatformTwitter)
	if !ok {
		return nil, nil, &errors.ErrUnsupportedPlatform{Platform: string(models.PlatformTwitter)}
	}
	reader, ok := adapter.(platforms.TimelineReader)
	if !ok {
		return nil, nil, &errors.ErrUnsupportedPlatform{Platform: string(models.PlatformTwitter)}
	}
	fresh, err := a.ensureFresh(ctx, adapter, acc)
	if err != nil {
		return nil, nil, err
	}
	return reader, fresh, nil
}

// Performance returns the daily series for the user's Twitter account, or
// for username when it is set.
func (a *Aggregator) Performance(ctx context.Context, userID, username string) ([]models.DailyPerformance, error) {
	reader, acc, err := a.timeline(ctx, userID)
	if err != nil {
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	series, err := reader.DailyPerformance(callCtx, acc, username)
	if err != nil {
		return nil, asFetchError(models.PlatformTwitter, err)
	}
	return series, nil
}

// Sentiment classifies recent tweets of the user's Twitter account, or of
// username when it is set.
func (a *Aggregator) Sentiment(ctx context.Context, userID, username string) (models.SentimentBreakdown, error) {
	reader, acc, err := a.timeline(ctx, userID)
	if err != nil {
		return models.SentimentBreakdown{}, err
	}
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	mood, err := reader.Sentiment(callCtx, acc, username)
	if err != nil {
		return models.SentimentBreakdown{}, asFetchError(models.PlatformTwitter, err)
	}
	return mood, nil
}

// MetaInsights returns insights for the user's Facebook pages and page-linked
// Instagram accounts. A non-empty platform restricts the set, and then at
// least one matching account must exist.
func (a *Aggregator) MetaInsights(ctx context.Context, userID string, platform models.Platform) ([]models.MetaInsights, error) {
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}
	if platform != "" && platform != models.PlatformFacebook && platform != models.PlatformInstagram {
		return nil, &errors.ErrUnsupportedPlatform{Platform: string(platform)}
	}
	accounts, err := a.store.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	type insightJob struct {
		account models.Account
		adapter platforms.Adapter
		reader  platforms.InsightsReader
	}
	candidates := models.AccountSlice(accounts)
	if platform != "" {
		candidates = candidates.FilterByPlatform(platform)
	}
	jobs := make([]insightJob, 0, len(candidates))
	for _, acc := range candidates {
		if acc.Platform == models.PlatformInstagram && !acc.IsPageLinked() {
			continue
		}
		adapter, ok := a.registry.Get(acc.Platform)
		if !ok {
			continue
		}
		reader, ok := adapter.(platforms.InsightsReader)
		if !ok {
			continue
		}
		jobs = append(jobs, insightJob{account: acc, adapter: adapter, reader: reader})
	}
	if len(jobs) == 0 {
		if platform != "" {
			return nil, &errors.ErrAccountNotFound{UserID: userID, Platform: string(platform)}
		}
		return []models.MetaInsights{}, nil
	}

	results := make([]models.MetaInsights, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range jobs {
		j := &jobs[i]
		g.Go(func() error {
			acc, err := a.ensureFresh(gctx, j.adapter, &j.account)
			if err != nil {
				return err
			}
			callCtx, cancel := context.WithTimeout(gctx, a.timeout)
			defer cancel()

			insights, err := j.reader.FetchInsights(callCtx, acc)
			if err != nil {
				return asFetchError(acc.Platform, err)
			}
			results[i] = *insights
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.ErrorWithContext(ctx, "meta insights failed", "user_id", userID, "error", err)
		return nil, err
	}
	return results, nil
}

// History returns stored overview records from the last days days. days is
// clamped to [1, 365] and defaults to 30.
func (a *Aggregator) History(ctx context.Context, userID string, platform models.Platform, days int) ([]models.AnalyticsRecord, error) {
	if userID == "" {
		return nil, errors.ErrUnauthorized
	}
	switch {
	case days <= 0:
		days = defaultHistoryDays
	case days > maxHistoryDays:
		days = maxHistoryDays
	}
	since := a.now().UTC().AddDate(0, 0, -(days - 1))
	return a.store.ListAnalyticsRecords(ctx, store.RecordFilter{
		UserID:   userID,
		Platform: platform,
		Since:    since,
	})
}

// saveHistory stores one record per platform for today. Failures are logged
// and do not affect the overview.
func (a *Aggregator) saveHistory(ctx context.Context, userID string, overview *models.Overview) {
	type bucket struct {
		followers   int64
		impressions int64
		rateSum     float64
		n           int
	}
	order := make([]models.Platform, 0, len(models.Platforms))
	buckets := make(map[models.Platform]*bucket)
	for _, p := range overview.Platforms {
		b, ok := buckets[p.Platform]
		if !ok {
			b = &bucket{}
			buckets[p.Platform] = b
			order = append(order, p.Platform)
		}
		b.followers += p.Followers
		b.impressions += p.Impressions
		b.rateSum += p.EngagementRate
		b.n++
	}

	today := a.now().UTC().Truncate(24 * time.Hour)
	for _, p := range order {
		b := buckets[p]
		rec := &models.AnalyticsRecord{
			UserID:         userID,
			Platform:       p,
			Date:           today,
			Followers:      b.followers,
			Impressions:    b.impressions,
			EngagementRate: models.Round1(b.rateSum / float64(b.n)),
		}
		if err := a.store.SaveAnalyticsRecord(ctx, rec); err != nil {
			a.logger.WarnWithContext(ctx, "failed to save analytics history",
				"user_id", userID,
				"platform", string(p),
				"error", err,
			)
		}
	}
}
