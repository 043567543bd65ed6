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

var facebookScopes = []string{
	"pages_show_list",
	"pages_read_engagement",
	"instagram_basic",
	"instagram_content_publish",
	"pages_manage_posts",
	"business_management",
}

// Facebook connects a Meta user and exposes each managed page as an account.
// Page accounts store the page token as AccessToken and the long-lived user
// token as RefreshToken.
type Facebook struct {
	cfg     config.PlatformConfig
	client  *Client
	authURL string
	graph   string
	now     func() time.Time
}

func NewFacebook(cfg config.PlatformConfig, client *Client) *Facebook {
	return &Facebook{
		cfg:     cfg,
		client:  client,
		authURL: orDefault(cfg.AuthURL, metaDialogURL),
		graph:   graphBase(cfg.GraphBaseURL),
		now:     time.Now,
	}
}

func (f *Facebook) Platform() models.Platform { return models.PlatformFacebook }

func (f *Facebook) UsesPKCE() bool { return false }

func (f *Facebook) AuthURL(state, _ string) string {
	params := url.Values{}
	params.Set("client_id", f.cfg.ClientID)
	params.Set("redirect_uri", f.cfg.RedirectURI)
	params.Set("scope", strings.Join(scopesOr(f.cfg.Scopes, facebookScopes), ","))
	params.Set("response_type", "code")
	params.Set("state", state)
	return withQuery(f.authURL, params)
}

type graphTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (f *Facebook) tokenURL() string {
	return orDefault(f.cfg.TokenURL, f.graph+"/oauth/access_token")
}

func (f *Facebook) ExchangeCode(ctx context.Context, code, _ string) (*Token, error) {
	if code == "" {
		return nil, errors.ErrMissingAuthorizationCode
	}
	params := url.Values{}
	params.Set("grant_type", "authorization_code")
	params.Set("client_id", f.cfg.ClientID)
	params.Set("client_secret", f.cfg.ClientSecret)
	params.Set("redirect_uri", f.cfg.RedirectURI)
	params.Set("code", code)

	var resp graphTokenResponse
	err := f.client.doJSON(ctx, request{
		platform:  string(models.PlatformFacebook),
		operation: "token_exchange",
		method:    http.MethodGet,
		url:       withQuery(f.tokenURL(), params),
	}, &resp)
	if err != nil {
		return nil, &errors.ErrAuthExchange{Platform: string(models.PlatformFacebook), Err: err}
	}
	return &Token{AccessToken: resp.AccessToken, ExpiresAt: expiresIn(f.now(), resp.ExpiresIn)}, nil
}

func (f *Facebook) exchangeLongLived(ctx context.Context, op, userToken string) (*Token, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", f.cfg.ClientID)
	params.Set("client_secret", f.cfg.ClientSecret)
	params.Set("fb_exchange_token", userToken)

	var resp graphTokenResponse
	err := f.client.doJSON(ctx, request{
		platform:  string(models.PlatformFacebook),
		operation: op,
		method:    http.MethodGet,
		url:       withQuery(f.tokenURL(), params),
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Token{AccessToken: resp.AccessToken, ExpiresAt: expiresIn(f.now(), resp.ExpiresIn)}, nil
}

// UpgradeToken swaps the short-lived user token for a ~60 day one.
func (f *Facebook) UpgradeToken(ctx context.Context, tok *Token) (*Token, error) {
	long, err := f.exchangeLongLived(ctx, "token_upgrade", tok.AccessToken)
	if err != nil {
		return nil, &errors.ErrAuthExchange{Platform: string(models.PlatformFacebook), Err: err}
	}
	return long, nil
}

func (f *Facebook) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	var resp struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := f.client.doJSON(ctx, request{
		platform:  string(models.PlatformFacebook),
		operation: "profile",
		method:    http.MethodGet,
		url:       withQuery(f.graph+"/me", url.Values{"fields": {"id,name"}, "access_token": {tok.AccessToken}}),
	}, &resp)
	if err != nil {
		return nil, &errors.ErrProfileFetch{Platform: string(models.PlatformFacebook), Err: err}
	}
	return &Profile{ID: resp.ID, Username: resp.Name, DisplayName: resp.Name}, nil
}

// ListPages returns the user's pages, each with its linked Instagram
// business account when one exists.
func (f *Facebook) ListPages(ctx context.Context, tok *Token) ([]Page, error) {
	var resp struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			AccessToken string `json:"access_token"`
			Category    string `json:"category"`
		} `json:"data"`
	}
	err := f.client.doJSON(ctx, request{
		platform:  string(models.PlatformFacebook),
		operation: "pages",
		method:    http.MethodGet,
		url: withQuery(f.graph+"/me/accounts", url.Values{
			"fields":       {"id,name,access_token,category"},
			"access_token": {tok.AccessToken},
		}),
	}, &resp)
	if err != nil {
		return nil, &errors.ErrProfileFetch{Platform: string(models.PlatformFacebook), Err: err}
	}

	pages := make([]Page, 0, len(resp.Data))
	for _, p := range resp.Data {
		page := Page{ID: p.ID, Name: p.Name, Category: p.Category, AccessToken: p.AccessToken}
		ig, err := f.linkedInstagram(ctx, p.ID, p.AccessToken)
		if err != nil {
			return nil, &errors.ErrProfileFetch{Platform: string(models.PlatformFacebook), Err: err}
		}
		page.Instagram = ig
		pages = append(pages, page)
	}
	return pages, nil
}

func (f *Facebook) linkedInstagram(ctx context.Context, pageID, pageToken string) (*InstagramBusiness, error) {
	var resp struct {
		InstagramBusinessAccount *struct {
			ID                string `json:"id"`
			Username          string `json:"username"`
			ProfilePictureURL string `json:"profile_picture_url"`
		} `json:"instagram_business_account"`
	}
	err := f.client.doJSON(ctx, request{
		platform:  string(models.PlatformFacebook),
		operation: "page_instagram",
		method:    http.MethodGet,
		url: withQuery(f.graph+"/"+url.PathEscape(pageID), url.Values{
			"fields":       {"instagram_business_account{id,username,profile_picture_url}"},
			"access_token": {pageToken},
		}),
	}, &resp)
	if err != nil {
		return nil, err
	}
	ig := resp.InstagramBusinessAccount
	if ig == nil || ig.ID == "" {
		return nil, nil
	}
	return &InstagramBusiness{ID: ig.ID, Username: ig.Username, ProfilePictureURL: ig.ProfilePictureURL}, nil
}

func (f *Facebook) pageFollowers(ctx context.Context, pageID, token string) (int64, error) {
	var resp struct {
		FollowersCount int64 `json:"followers_count"`
		FanCount       int64 `json:"fan_count"`
	}
	err := f.client.doJSON(ctx, request{
		platform:  string(models.PlatformFacebook),
		operation: "page_followers",
		method:    http.MethodGet,
		url: withQuery(f.graph+"/"+url.PathEscape(pageID), url.Values{
			"fields":       {"followers_count,fan_count"},
			"access_token": {token},
		}),
	}, &resp)
	if err != nil {
		return 0, err
	}
	if resp.FollowersCount == 0 {
		return resp.FanCount, nil
	}
	return resp.FollowersCount, nil
}

func pageID(acc *models.Account) string {
	if acc.FacebookPageID != "" {
		return acc.FacebookPageID
	}
	return acc.PlatformID
}

func (f *Facebook) FetchAnalytics(ctx context.Context, acc *models.Account) (*models.AnalyticsSnapshot, error) {
	id := pageID(acc)
	followers, err := f.pageFollowers(ctx, id, acc.AccessToken)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformFacebook), Err: err}
	}
	insights, err := graphInsights(ctx, f.client, string(models.PlatformFacebook), f.graph, id, acc.AccessToken, facebookMetric)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformFacebook), Err: err}
	}
	return &models.AnalyticsSnapshot{
		Followers:   followers,
		Impressions: insightTotal(insights, "page_impressions"),
		Engagement:  models.Engagement{Likes: insightTotal(insights, "page_post_engagements")},
	}, nil
}

func (f *Facebook) FetchInsights(ctx context.Context, acc *models.Account) (*models.MetaInsights, error) {
	id := pageID(acc)
	followers, err := f.pageFollowers(ctx, id, acc.AccessToken)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformFacebook), Err: err}
	}
	insights, err := graphInsights(ctx, f.client, string(models.PlatformFacebook), f.graph, id, acc.AccessToken, facebookMetric)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformFacebook), Err: err}
	}
	name := acc.FacebookPageName
	if name == "" {
		name = acc.Username
	}
	return &models.MetaInsights{
		AccountID: id,
		Platform:  models.PlatformFacebook,
		Name:      name,
		Followers: followers,
		Insights:  insights,
	}, nil
}

// RefreshToken re-exchanges the stored long-lived user token. Page tokens
// derived from a long-lived user token do not expire, so AccessToken is
// returned unchanged.
func (f *Facebook) RefreshToken(ctx context.Context, acc *models.Account) (*Token, error) {
	if acc.RefreshToken == "" {
		return nil, &errors.ErrTokenRefresh{Platform: string(models.PlatformFacebook), Err: errNoRefreshToken}
	}
	long, err := f.exchangeLongLived(ctx, "token_refresh", acc.RefreshToken)
	if err != nil {
		return nil, &errors.ErrTokenRefresh{Platform: string(models.PlatformFacebook), Err: err}
	}
	return &Token{AccessToken: acc.AccessToken, RefreshToken: long.AccessToken, ExpiresAt: long.ExpiresAt}, nil
}

var (
	_ Adapter        = (*Facebook)(nil)
	_ PageLister     = (*Facebook)(nil)
	_ InsightsReader = (*Facebook)(nil)
)
