package platforms

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
)

const (
	twitterAuthURL  = "https://twitter.com/i/oauth2/authorize"
	twitterTokenURL = "https://api.twitter.com/2/oauth2/token"
	twitterAPIBase  = "https://api.twitter.com"

	twitterWindow = 7 * 24 * time.Hour
)

var twitterScopes = []string{"tweet.read", "users.read", "offline.access"}

// Twitter talks to the X API v2 with OAuth 2.0 user-context tokens.
type Twitter struct {
	cfg      config.PlatformConfig
	client   *Client
	authURL  string
	tokenURL string
	apiBase  string
	now      func() time.Time
}

func NewTwitter(cfg config.PlatformConfig, client *Client) *Twitter {
	return &Twitter{
		cfg:      cfg,
		client:   client,
		authURL:  orDefault(cfg.AuthURL, twitterAuthURL),
		tokenURL: orDefault(cfg.TokenURL, twitterTokenURL),
		apiBase:  strings.TrimRight(orDefault(cfg.APIBaseURL, twitterAPIBase), "/"),
		now:      time.Now,
	}
}

func (t *Twitter) Platform() models.Platform { return models.PlatformTwitter }

func (t *Twitter) UsesPKCE() bool { return true }

func (t *Twitter) AuthURL(state, codeChallenge string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", t.cfg.ClientID)
	params.Set("redirect_uri", t.cfg.RedirectURI)
	params.Set("scope", strings.Join(scopesOr(t.cfg.Scopes, twitterScopes), " "))
	params.Set("state", state)
	params.Set("code_challenge", codeChallenge)
	params.Set("code_challenge_method", "S256")
	return withQuery(t.authURL, params)
}

type twitterTokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

func (t *Twitter) ExchangeCode(ctx context.Context, code, codeVerifier string) (*Token, error) {
	if code == "" {
		return nil, errors.ErrMissingAuthorizationCode
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", t.cfg.RedirectURI)
	form.Set("code_verifier", codeVerifier)
	form.Set("client_id", t.cfg.ClientID)

	tok, err := t.token(ctx, "token_exchange", form)
	if err != nil {
		return nil, &errors.ErrAuthExchange{Platform: string(models.PlatformTwitter), Err: err}
	}
	return tok, nil
}

func (t *Twitter) token(ctx context.Context, op string, form url.Values) (*Token, error) {
	var resp twitterTokenResponse
	err := t.client.doJSON(ctx, request{
		platform:  string(models.PlatformTwitter),
		operation: op,
		method:    http.MethodPost,
		url:       t.tokenURL,
		form:      form,
		basicUser: t.cfg.ClientID,
		basicPass: t.cfg.ClientSecret,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiresIn(t.now(), resp.ExpiresIn),
		Scope:        resp.Scope,
	}, nil
}

// UpgradeToken is the identity: X tokens are refreshed, not exchanged.
func (t *Twitter) UpgradeToken(_ context.Context, tok *Token) (*Token, error) {
	return tok, nil
}

type twitterUser struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	PublicMetrics struct {
		FollowersCount int64 `json:"followers_count"`
	} `json:"public_metrics"`
}

func (t *Twitter) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	var resp struct {
		Data twitterUser `json:"data"`
	}
	err := t.client.doJSON(ctx, request{
		platform:  string(models.PlatformTwitter),
		operation: "profile",
		method:    http.MethodGet,
		url:       t.apiBase + "/2/users/me",
		header:    bearer(tok.AccessToken),
	}, &resp)
	if err != nil {
		return nil, &errors.ErrProfileFetch{Platform: string(models.PlatformTwitter), Err: err}
	}
	return &Profile{ID: resp.Data.ID, Username: resp.Data.Username, DisplayName: resp.Data.Name}, nil
}

type tweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		LikeCount       int64 `json:"like_count"`
		RetweetCount    int64 `json:"retweet_count"`
		ReplyCount      int64 `json:"reply_count"`
		ImpressionCount int64 `json:"impression_count"`
	} `json:"public_metrics"`
}

func (t *Twitter) user(ctx context.Context, token, userID string) (*twitterUser, error) {
	var resp struct {
		Data twitterUser `json:"data"`
	}
	err := t.client.doJSON(ctx, request{
		platform:  string(models.PlatformTwitter),
		operation: "user",
		method:    http.MethodGet,
		url:       withQuery(t.apiBase+"/2/users/"+url.PathEscape(userID), url.Values{"user.fields": {"public_metrics"}}),
		header:    bearer(token),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

func (t *Twitter) userByUsername(ctx context.Context, token, username string) (*twitterUser, error) {
	var resp struct {
		Data twitterUser `json:"data"`
	}
	err := t.client.doJSON(ctx, request{
		platform:  string(models.PlatformTwitter),
		operation: "user_by_username",
		method:    http.MethodGet,
		url:       withQuery(t.apiBase+"/2/users/by/username/"+url.PathEscape(username), url.Values{"user.fields": {"public_metrics"}}),
		header:    bearer(token),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data.ID == "" {
		return nil, &errors.ErrUpstreamStatus{Endpoint: "twitter user_by_username", StatusCode: http.StatusNotFound}
	}
	return &resp.Data, nil
}

// recentTweets returns up to 100 tweets posted within the analytics window.
func (t *Twitter) recentTweets(ctx context.Context, token, userID string, withWindow bool) ([]tweet, error) {
	params := url.Values{}
	params.Set("tweet.fields", "public_metrics,created_at,text")
	params.Set("max_results", "100")
	if withWindow {
		params.Set("start_time", t.now().Add(-twitterWindow).UTC().Format(time.RFC3339))
	}
	var resp struct {
		Data []tweet `json:"data"`
	}
	err := t.client.doJSON(ctx, request{
		platform:  string(models.PlatformTwitter),
		operation: "tweets",
		method:    http.MethodGet,
		url:       withQuery(t.apiBase+"/2/users/"+url.PathEscape(userID)+"/tweets", params),
		header:    bearer(token),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (t *Twitter) FetchAnalytics(ctx context.Context, acc *models.Account) (*models.AnalyticsSnapshot, error) {
	snap, err := t.fetchAnalytics(ctx, acc)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformTwitter), Err: err}
	}
	return snap, nil
}

func (t *Twitter) fetchAnalytics(ctx context.Context, acc *models.Account) (*models.AnalyticsSnapshot, error) {
	user, err := t.user(ctx, acc.AccessToken, acc.PlatformID)
	if err != nil {
		return nil, err
	}
	tweets, err := t.recentTweets(ctx, acc.AccessToken, acc.PlatformID, true)
	if err != nil {
		return nil, err
	}

	snap := &models.AnalyticsSnapshot{Followers: user.PublicMetrics.FollowersCount}
	for _, tw := range tweets {
		snap.Engagement.Likes += tw.PublicMetrics.LikeCount
		snap.Engagement.Retweets += tw.PublicMetrics.RetweetCount
		snap.Engagement.Replies += tw.PublicMetrics.ReplyCount
		snap.Impressions += tw.PublicMetrics.ImpressionCount
	}
	return snap, nil
}

// resolveUser returns the account's own user unless username names another one.
func (t *Twitter) resolveUser(ctx context.Context, acc *models.Account, username string) (*twitterUser, error) {
	if username == "" || strings.EqualFold(username, acc.Username) {
		return t.user(ctx, acc.AccessToken, acc.PlatformID)
	}
	return t.userByUsername(ctx, acc.AccessToken, username)
}

// DailyPerformance buckets the last week's tweets by UTC date.
func (t *Twitter) DailyPerformance(ctx context.Context, acc *models.Account, username string) ([]models.DailyPerformance, error) {
	user, err := t.resolveUser(ctx, acc, username)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformTwitter), Err: err}
	}
	tweets, err := t.recentTweets(ctx, acc.AccessToken, user.ID, true)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformTwitter), Err: err}
	}

	points := make([]PostPoint, 0, len(tweets))
	for _, tw := range tweets {
		points = append(points, PostPoint{
			CreatedAt: tw.CreatedAt,
			Likes:     tw.PublicMetrics.LikeCount,
			Retweets:  tw.PublicMetrics.RetweetCount,
		})
	}
	return DailySeries(points, user.PublicMetrics.FollowersCount), nil
}

// Sentiment classifies the user's latest tweets by keyword.
func (t *Twitter) Sentiment(ctx context.Context, acc *models.Account, username string) (models.SentimentBreakdown, error) {
	user, err := t.resolveUser(ctx, acc, username)
	if err != nil {
		return models.SentimentBreakdown{}, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformTwitter), Err: err}
	}
	tweets, err := t.recentTweets(ctx, acc.AccessToken, user.ID, false)
	if err != nil {
		return models.SentimentBreakdown{}, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformTwitter), Err: err}
	}
	texts := make([]string, 0, len(tweets))
	for _, tw := range tweets {
		texts = append(texts, tw.Text)
	}
	return KeywordSentiment(texts), nil
}

func (t *Twitter) RefreshToken(ctx context.Context, acc *models.Account) (*Token, error) {
	if acc.RefreshToken == "" {
		return nil, &errors.ErrTokenRefresh{Platform: string(models.PlatformTwitter), Err: errNoRefreshToken}
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", acc.RefreshToken)
	form.Set("client_id", t.cfg.ClientID)

	tok, err := t.token(ctx, "token_refresh", form)
	if err != nil {
		return nil, &errors.ErrTokenRefresh{Platform: string(models.PlatformTwitter), Err: err}
	}
	return tok, nil
}

var (
	_ Adapter        = (*Twitter)(nil)
	_ TimelineReader = (*Twitter)(nil)
)
