package platforms

import (
	"context"
	"sync"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
)

// Fake is an in-memory Adapter for tests. Zero-value fields produce empty
// results; the *Err fields force failures. Calls are counted per method.
type Fake struct {
	Name models.Platform
	PKCE bool

	Token     *Token
	Upgraded  *Token
	Refreshed *Token
	Profile   *Profile
	Snapshot  *models.AnalyticsSnapshot
	Pages     []Page
	Insights  *models.MetaInsights
	Series    []models.DailyPerformance
	Mood      models.SentimentBreakdown

	// Snapshots overrides Snapshot per account ID.
	Snapshots map[string]*models.AnalyticsSnapshot
	// Block makes FetchAnalytics wait for ctx cancellation.
	Block     bool

	ExchangeErr  error
	UpgradeErr   error
	ProfileErr   error
	AnalyticsErr error
	RefreshErr   error
	PagesErr     error

	mu    sync.Mutex
	calls map[string]int
}

func NewFake(p models.Platform) *Fake {
	return &Fake{Name: p}
}

func (f *Fake) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
}

// Calls returns how often method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls counts every upstream-shaped call (AuthURL excluded).
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *Fake) Platform() models.Platform { return f.Name }

func (f *Fake) UsesPKCE() bool { return f.PKCE }

func (f *Fake) AuthURL(state, codeChallenge string) string {
	u := "https://auth.example.test/" + string(f.Name) + "?state=" + state
	if codeChallenge != "" {
		u += "&code_challenge=" + codeChallenge
	}
	return u
}

func (f *Fake) ExchangeCode(_ context.Context, code, _ string) (*Token, error) {
	if code == "" {
		return nil, errors.ErrMissingAuthorizationCode
	}
	f.record("ExchangeCode")
	if f.ExchangeErr != nil {
		return nil, &errors.ErrAuthExchange{Platform: string(f.Name), Err: f.ExchangeErr}
	}
	if f.Token == nil {
		return &Token{AccessToken: "fake-access"}, nil
	}
	return f.Token, nil
}

func (f *Fake) UpgradeToken(_ context.Context, tok *Token) (*Token, error) {
	f.record("UpgradeToken")
	if f.UpgradeErr != nil {
		return nil, &errors.ErrAuthExchange{Platform: string(f.Name), Err: f.UpgradeErr}
	}
	if f.Upgraded == nil {
		return tok, nil
	}
	return f.Upgraded, nil
}

func (f *Fake) FetchProfile(_ context.Context, _ *Token) (*Profile, error) {
	f.record("FetchProfile")
	if f.ProfileErr != nil {
		return nil, &errors.ErrProfileFetch{Platform: string(f.Name), Err: f.ProfileErr}
	}
	if f.Profile == nil {
		return &Profile{ID: "fake-id", Username: "fake"}, nil
	}
	return f.Profile, nil
}

func (f *Fake) FetchAnalytics(ctx context.Context, acc *models.Account) (*models.AnalyticsSnapshot, error) {
	f.record("FetchAnalytics")
	if f.Block {
		<-ctx.Done()
		return nil, &errors.ErrAnalyticsFetch{Platform: string(f.Name), Err: ctx.Err()}
	}
	if f.AnalyticsErr != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(f.Name), Err: f.AnalyticsErr}
	}
	if s, ok := f.Snapshots[acc.ID]; ok {
		return s, nil
	}
	if f.Snapshot == nil {
		return &models.AnalyticsSnapshot{}, nil
	}
	return f.Snapshot, nil
}

func (f *Fake) RefreshToken(_ context.Context, acc *models.Account) (*Token, error) {
	f.record("RefreshToken")
	if f.RefreshErr != nil {
		return nil, &errors.ErrTokenRefresh{Platform: string(f.Name), Err: f.RefreshErr}
	}
	if f.Refreshed == nil {
		return &Token{AccessToken: acc.AccessToken, RefreshToken: acc.RefreshToken}, nil
	}
	return f.Refreshed, nil
}

func (f *Fake) ListPages(_ context.Context, _ *Token) ([]Page, error) {
	f.record("ListPages")
	if f.PagesErr != nil {
		return nil, &errors.ErrProfileFetch{Platform: string(f.Name), Err: f.PagesErr}
	}
	return f.Pages, nil
}

func (f *Fake) FetchInsights(_ context.Context, acc *models.Account) (*models.MetaInsights, error) {
	f.record("FetchInsights")
	if f.AnalyticsErr != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(f.Name), Err: f.AnalyticsErr}
	}
	if f.Insights == nil {
		return &models.MetaInsights{AccountID: acc.PlatformID, Platform: f.Name, Insights: []models.Insight{}}, nil
	}
	return f.Insights, nil
}

func (f *Fake) DailyPerformance(_ context.Context, _ *models.Account, _ string) ([]models.DailyPerformance, error) {
	f.record("DailyPerformance")
	if f.AnalyticsErr != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(f.Name), Err: f.AnalyticsErr}
	}
	if f.Series == nil {
		return []models.DailyPerformance{}, nil
	}
	return f.Series, nil
}

func (f *Fake) Sentiment(_ context.Context, _ *models.Account, _ string) (models.SentimentBreakdown, error) {
	f.record("Sentiment")
	if f.AnalyticsErr != nil {
		return models.SentimentBreakdown{}, &errors.ErrAnalyticsFetch{Platform: string(f.Name), Err: f.AnalyticsErr}
	}
	return f.Mood, nil
}

var (
	_ Adapter        = (*Fake)(nil)
	_ PageLister     = (*Fake)(nil)
	_ TimelineReader = (*Fake)(nil)
	_ InsightsReader = (*Fake)(nil)
)
