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
	instagramAuthURL  = "https://api.instagram.com/oauth/authorize"
	instagramTokenURL = "https://api.instagram.com/oauth/access_token"
	instagramAPIBase  = "https://graph.instagram.com"
)

var instagramScopes = []string{"user_profile", "user_media", "instagram_basic", "instagram_content_publish"}

// Instagram serves two kinds of accounts: standalone ones connected through
// Instagram Login (graph.instagram.com) and business accounts linked to a
// Facebook page (Graph API, page token). Page-linked token refresh goes
// through meta.
type Instagram struct {
	cfg      config.PlatformConfig
	client   *Client
	meta     *Facebook
	authURL  string
	tokenURL string
	apiBase  string
	graph    string
	now      func() time.Time
}

func NewInstagram(cfg config.PlatformConfig, client *Client, meta *Facebook) *Instagram {
	return &Instagram{
		cfg:      cfg,
		client:   client,
		meta:     meta,
		authURL:  orDefault(cfg.AuthURL, instagramAuthURL),
		tokenURL: orDefault(cfg.TokenURL, instagramTokenURL),
		apiBase:  strings.TrimRight(orDefault(cfg.APIBaseURL, instagramAPIBase), "/"),
		graph:    graphBase(cfg.GraphBaseURL),
		now:      time.Now,
	}
}

func (i *Instagram) Platform() models.Platform { return models.PlatformInstagram }

func (i *Instagram) UsesPKCE() bool { return false }

func (i *Instagram) AuthURL(state, _ string) string {
	params := url.Values{}
	params.Set("client_id", i.cfg.ClientID)
	params.Set("redirect_uri", i.cfg.RedirectURI)
	params.Set("scope", strings.Join(scopesOr(i.cfg.Scopes, instagramScopes), ","))
	params.Set("response_type", "code")
	params.Set("state", state)
	return withQuery(i.authURL, params)
}

func (i *Instagram) ExchangeCode(ctx context.Context, code, _ string) (*Token, error) {
	if code == "" {
		return nil, errors.ErrMissingAuthorizationCode
	}
	form := url.Values{}
	form.Set("client_id", i.cfg.ClientID)
	form.Set("client_secret", i.cfg.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", i.cfg.RedirectURI)
	form.Set("code", code)

	var resp struct {
		AccessToken string `json:"access_token"`
		UserID      any    `json:"user_id"`
	}
	err := i.client.doJSON(ctx, request{
		platform:  string(models.PlatformInstagram),
		operation: "token_exchange",
		method:    http.MethodPost,
		url:       i.tokenURL,
		form:      form,
	}, &resp)
	if err != nil {
		return nil, &errors.ErrAuthExchange{Platform: string(models.PlatformInstagram), Err: err}
	}
	return &Token{AccessToken: resp.AccessToken}, nil
}

type instagramTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (i *Instagram) longLived(ctx context.Context, op, path string, params url.Values) (*Token, error) {
	var resp instagramTokenResponse
	err := i.client.doJSON(ctx, request{
		platform:  string(models.PlatformInstagram),
		operation: op,
		method:    http.MethodGet,
		url:       withQuery(i.apiBase+path, params),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: resp.AccessToken, ExpiresAt: expiresIn(i.now(), resp.ExpiresIn)}, nil
}

func (i *Instagram) UpgradeToken(ctx context.Context, tok *Token) (*Token, error) {
	params := url.Values{}
	params.Set("grant_type", "ig_exchange_token")
	params.Set("client_secret", i.cfg.ClientSecret)
	params.Set("access_token", tok.AccessToken)

	long, err := i.longLived(ctx, "token_upgrade", "/access_token", params)
	if err != nil {
		return nil, &errors.ErrAuthExchange{Platform: string(models.PlatformInstagram), Err: err}
	}
	return long, nil
}

func (i *Instagram) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	var resp struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		AccountType string `json:"account_type"`
		MediaCount  int64  `json:"media_count"`
	}
	err := i.client.doJSON(ctx, request{
		platform:  string(models.PlatformInstagram),
		operation: "profile",
		method:    http.MethodGet,
		url: withQuery(i.apiBase+"/me", url.Values{
			"fields":       {"id,username,account_type,media_count"},
			"access_token": {tok.AccessToken},
		}),
	}, &resp)
	if err != nil {
		return nil, &errors.ErrProfileFetch{Platform: string(models.PlatformInstagram), Err: err}
	}
	accountType, ok := models.ParseInstagramAccountType(resp.AccountType)
	if !ok {
		accountType = models.InstagramPersonal
	}
	return &Profile{ID: resp.ID, Username: resp.Username, DisplayName: resp.Username, AccountType: accountType}, nil
}

func (i *Instagram) FetchAnalytics(ctx context.Context, acc *models.Account) (*models.AnalyticsSnapshot, error) {
	var (
		snap *models.AnalyticsSnapshot
		err  error
	)
	if acc.IsPageLinked() {
		snap, err = i.businessAnalytics(ctx, acc)
	} else {
		snap, err = i.standaloneAnalytics(ctx, acc)
	}
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformInstagram), Err: err}
	}
	return snap, nil
}

func (i *Instagram) standaloneAnalytics(ctx context.Context, acc *models.Account) (*models.AnalyticsSnapshot, error) {
	var profile struct {
		FollowersCount int64 `json:"followers_count"`
	}
	err := i.client.doJSON(ctx, request{
		platform:  string(models.PlatformInstagram),
		operation: "followers",
		method:    http.MethodGet,
		url: withQuery(i.apiBase+"/me", url.Values{
			"fields":       {"followers_count"},
			"access_token": {acc.AccessToken},
		}),
	}, &profile)
	if err != nil {
		return nil, err
	}

	var media struct {
		Data []struct {
			ID            string `json:"id"`
			LikeCount     int64  `json:"like_count"`
			CommentsCount int64  `json:"comments_count"`
			Timestamp     string `json:"timestamp"`
		} `json:"data"`
	}
	err = i.client.doJSON(ctx, request{
		platform:  string(models.PlatformInstagram),
		operation: "media",
		method:    http.MethodGet,
		url: withQuery(i.apiBase+"/me/media", url.Values{
			"fields":       {"id,like_count,comments_count,timestamp"},
			"access_token": {acc.AccessToken},
		}),
	}, &media)
	if err != nil {
		return nil, err
	}

	snap := &models.AnalyticsSnapshot{Followers: profile.FollowersCount}
	for _, m := range media.Data {
		snap.Engagement.Likes += m.LikeCount
		snap.Engagement.Replies += m.CommentsCount
	}
	snap.MarkUnavailable(models.MetricImpressions)
	return snap, nil
}

func businessID(acc *models.Account) string {
	if acc.InstagramBusinessID != "" {
		return acc.InstagramBusinessID
	}
	return acc.PlatformID
}

func (i *Instagram) businessFollowers(ctx context.Context, igID, token string) (int64, error) {
	var resp struct {
		FollowersCount int64 `json:"followers_count"`
	}
	err := i.client.doJSON(ctx, request{
		platform:  string(models.PlatformInstagram),
		operation: "business_followers",
		method:    http.MethodGet,
		url: withQuery(i.graph+"/"+url.PathEscape(igID), url.Values{
			"fields":       {"followers_count"},
			"access_token": {token},
		}),
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.FollowersCount, nil
}

func (i *Instagram) businessAnalytics(ctx context.Context, acc *models.Account) (*models.AnalyticsSnapshot, error) {
	id := businessID(acc)
	followers, err := i.businessFollowers(ctx, id, acc.AccessToken)
	if err != nil {
		return nil, err
	}
	insights, err := graphInsights(ctx, i.client, string(models.PlatformInstagram), i.graph, id, acc.AccessToken, igMetric)
	if err != nil {
		return nil, err
	}
	return &models.AnalyticsSnapshot{
		Followers:   followers,
		Impressions: insightTotal(insights, "impressions"),
	}, nil
}

// FetchInsights is available for page-linked business accounts only.
func (i *Instagram) FetchInsights(ctx context.Context, acc *models.Account) (*models.MetaInsights, error) {
	if !acc.IsPageLinked() {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformInstagram), Err: errNotBusinessAccount}
	}
	id := businessID(acc)
	followers, err := i.businessFollowers(ctx, id, acc.AccessToken)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformInstagram), Err: err}
	}
	insights, err := graphInsights(ctx, i.client, string(models.PlatformInstagram), i.graph, id, acc.AccessToken, igMetric)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformInstagram), Err: err}
	}
	return &models.MetaInsights{
		AccountID: id,
		Platform:  models.PlatformInstagram,
		Name:      acc.Username,
		Followers: followers,
		Insights:  insights,
	}, nil
}

// RefreshToken extends a standalone long-lived token with ig_refresh_token.
// Page-linked accounts refresh like Facebook pages.
func (i *Instagram) RefreshToken(ctx context.Context, acc *models.Account) (*Token, error) {
	if acc.IsPageLinked() {
		if i.meta == nil {
			return nil, &errors.ErrTokenRefresh{Platform: string(models.PlatformInstagram), Err: errNoRefreshToken}
		}
		tok, err := i.meta.RefreshToken(ctx, acc)
		if err != nil {
			return nil, &errors.ErrTokenRefresh{Platform: string(models.PlatformInstagram), Err: err}
		}
		return tok, nil
	}

	params := url.Values{}
	params.Set("grant_type", "ig_refresh_token")
	params.Set("access_token", acc.AccessToken)

	tok, err := i.longLived(ctx, "token_refresh", "/refresh_access_token", params)
	if err != nil {
		return nil, &errors.ErrTokenRefresh{Platform: string(models.PlatformInstagram), Err: err}
	}
	return tok, nil
}

var (
	_ Adapter        = (*Instagram)(nil)
	_ InsightsReader = (*Instagram)(nil)
)
