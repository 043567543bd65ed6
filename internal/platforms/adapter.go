// Package platforms normalizes each social network's OAuth and analytics
// APIs behind one Adapter interface.
package platforms

import (
	"context"
	"time"

	"github.com/socialsync/socialsync/internal/models"
)

// Token is the result of a code exchange, upgrade or refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scope        string
}

// Profile is the identity behind a token.
type Profile struct {
	ID          string
	Username    string
	DisplayName string
	// AccountType is set by Instagram only.
	AccountType models.InstagramAccountType
}

// Adapter is one platform's client.
type Adapter interface {
	Platform() models.Platform
	// UsesPKCE reports whether AuthURL expects a code challenge.
	UsesPKCE() bool
	AuthURL(state, codeChallenge string) string
	// ExchangeCode fails with ErrMissingAuthorizationCode, without any
	// upstream call, when code is empty.
	ExchangeCode(ctx context.Context, code, codeVerifier string) (*Token, error)
	// UpgradeToken swaps a short-lived token for a long-lived one where the
	// platform supports it and returns tok unchanged otherwise.
	UpgradeToken(ctx context.Context, tok *Token) (*Token, error)
	FetchProfile(ctx context.Context, tok *Token) (*Profile, error)
	FetchAnalytics(ctx context.Context, acc *models.Account) (*models.AnalyticsSnapshot, error)
	RefreshToken(ctx context.Context, acc *models.Account) (*Token, error)
}

// Page is a Facebook page the user manages, with its linked Instagram
// business account if any.
type Page struct {
	ID          string
	Name        string
	Category    string
	AccessToken string
	Instagram   *InstagramBusiness
}

type InstagramBusiness struct {
	ID                string
	Username          string
	ProfilePictureURL string
}

// PageLister is implemented by adapters whose connect yields several accounts.
type PageLister interface {
	ListPages(ctx context.Context, tok *Token) ([]Page, error)
}

// TimelineReader exposes per-post data for the performance and sentiment views.
type TimelineReader interface {
	DailyPerformance(ctx context.Context, acc *models.Account, username string) ([]models.DailyPerformance, error)
	Sentiment(ctx context.Context, acc *models.Account, username string) (models.SentimentBreakdown, error)
}

// InsightsReader returns raw Meta insight series for a page or business account.
type InsightsReader interface {
	FetchInsights(ctx context.Context, acc *models.Account) (*models.MetaInsights, error)
}

func expiresIn(now time.Time, seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := now.Add(time.Duration(seconds) * time.Second).UTC()
	return &t
}
