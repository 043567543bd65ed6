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
	linkedInAuthURL  = "https://www.linkedin.com/oauth/v2/authorization"
	linkedInTokenURL = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedInAPIBase  = "https://api.linkedin.com"
)

var linkedInScopes = []string{"r_liteprofile", "r_organization_social", "rw_organization_admin"}

// LinkedIn reports organization (company page) analytics for the member's
// administered organizations.
type LinkedIn struct {
	cfg      config.PlatformConfig
	client   *Client
	authURL  string
	tokenURL string
	apiBase  string
	now      func() time.Time
}

func NewLinkedIn(cfg config.PlatformConfig, client *Client) *LinkedIn {
	return &LinkedIn{
		cfg:      cfg,
		client:   client,
		authURL:  orDefault(cfg.AuthURL, linkedInAuthURL),
		tokenURL: orDefault(cfg.TokenURL, linkedInTokenURL),
		apiBase:  strings.TrimRight(orDefault(cfg.APIBaseURL, linkedInAPIBase), "/"),
		now:      time.Now,
	}
}

func (l *LinkedIn) Platform() models.Platform { return models.PlatformLinkedIn }

func (l *LinkedIn) UsesPKCE() bool { return false }

func (l *LinkedIn) AuthURL(state, _ string) string {
	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("client_id", l.cfg.ClientID)
	params.Set("redirect_uri", l.cfg.RedirectURI)
	params.Set("scope", strings.Join(scopesOr(l.cfg.Scopes, linkedInScopes), " "))
	params.Set("state", state)
	return withQuery(l.authURL, params)
}

type linkedInTokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

func (l *LinkedIn) ExchangeCode(ctx context.Context, code, _ string) (*Token, error) {
	if code == "" {
		return nil, errors.ErrMissingAuthorizationCode
	}
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", l.cfg.RedirectURI)
	form.Set("client_id", l.cfg.ClientID)
	form.Set("client_secret", l.cfg.ClientSecret)

	tok, err := l.token(ctx, "token_exchange", form)
	if err != nil {
		return nil, &errors.ErrAuthExchange{Platform: string(models.PlatformLinkedIn), Err: err}
	}
	return tok, nil
}

func (l *LinkedIn) token(ctx context.Context, op string, form url.Values) (*Token, error) {
	var resp linkedInTokenResponse
	err := l.client.doJSON(ctx, request{
		platform:  string(models.PlatformLinkedIn),
		operation: op,
		method:    http.MethodPost,
		url:       l.tokenURL,
		form:      form,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiresIn(l.now(), resp.ExpiresIn),
		Scope:        resp.Scope,
	}, nil
}

func (l *LinkedIn) UpgradeToken(_ context.Context, tok *Token) (*Token, error) {
	return tok, nil
}

func (l *LinkedIn) FetchProfile(ctx context.Context, tok *Token) (*Profile, error) {
	var resp struct {
		ID                 string `json:"id"`
		LocalizedFirstName string `json:"localizedFirstName"`
		LocalizedLastName  string `json:"localizedLastName"`
	}
	err := l.client.doJSON(ctx, request{
		platform:  string(models.PlatformLinkedIn),
		operation: "profile",
		method:    http.MethodGet,
		url:       l.apiBase + "/v2/me",
		header:    bearer(tok.AccessToken),
	}, &resp)
	if err != nil {
		return nil, &errors.ErrProfileFetch{Platform: string(models.PlatformLinkedIn), Err: err}
	}
	name := strings.TrimSpace(resp.LocalizedFirstName + " " + resp.LocalizedLastName)
	return &Profile{ID: resp.ID, Username: name, DisplayName: name}, nil
}

// organizations returns the ids of the organizations the member administers.
func (l *LinkedIn) organizations(ctx context.Context, token string) ([]string, error) {
	params := url.Values{}
	params.Set("q", "roleAssignee")
	params.Set("role", "ADMINISTRATOR")
	params.Set("state", "APPROVED")

	var resp struct {
		Elements []struct {
			OrganizationalTarget string `json:"organizationalTarget"`
		} `json:"elements"`
	}
	err := l.client.doJSON(ctx, request{
		platform:  string(models.PlatformLinkedIn),
		operation: "organizations",
		method:    http.MethodGet,
		url:       withQuery(l.apiBase+"/v2/organizationalEntityAcls", params),
		header:    bearer(token),
	}, &resp)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		urn := el.OrganizationalTarget
		if i := strings.LastIndex(urn, ":"); i >= 0 {
			urn = urn[i+1:]
		}
		if urn != "" {
			ids = append(ids, urn)
		}
	}
	return ids, nil
}

// FetchAnalytics reads follower statistics of the first administered
// organization. LinkedIn does not expose impressions or engagement here.
func (l *LinkedIn) FetchAnalytics(ctx context.Context, acc *models.Account) (*models.AnalyticsSnapshot, error) {
	orgs, err := l.organizations(ctx, acc.AccessToken)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformLinkedIn), Err: err}
	}
	if len(orgs) == 0 {
		return nil, &errors.ErrAnalyticsFetch{
			Platform: string(models.PlatformLinkedIn),
			Err:      &errors.ErrNoOrganization{Platform: string(models.PlatformLinkedIn)},
		}
	}

	params := url.Values{}
	params.Set("q", "organizationalEntity")
	params.Set("organizationalEntity", "urn:li:organization:"+orgs[0])

	var resp struct {
		Elements []struct {
			FollowerCounts struct {
				OrganicFollowerCount int64 `json:"organicFollowerCount"`
			} `json:"followerCounts"`
		} `json:"elements"`
	}
	err = l.client.doJSON(ctx, request{
		platform:  string(models.PlatformLinkedIn),
		operation: "follower_statistics",
		method:    http.MethodGet,
		url:       withQuery(l.apiBase+"/v2/organizationalEntityFollowerStatistics", params),
		header:    bearer(acc.AccessToken),
	}, &resp)
	if err != nil {
		return nil, &errors.ErrAnalyticsFetch{Platform: string(models.PlatformLinkedIn), Err: err}
	}

	snap := &models.AnalyticsSnapshot{}
	if len(resp.Elements) > 0 {
		snap.Followers = resp.Elements[0].FollowerCounts.OrganicFollowerCount
	}
	snap.MarkUnavailable(models.MetricImpressions, models.MetricEngagement)
	return snap, nil
}

func (l *LinkedIn) RefreshToken(ctx context.Context, acc *models.Account) (*Token, error) {
	if acc.RefreshToken == "" {
		return nil, &errors.ErrTokenRefresh{Platform: string(models.PlatformLinkedIn), Err: errNoRefreshToken}
	}
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", acc.RefreshToken)
	form.Set("client_id", l.cfg.ClientID)
	form.Set("client_secret", l.cfg.ClientSecret)

	tok, err := l.token(ctx, "token_refresh", form)
	if err != nil {
		return nil, &errors.ErrTokenRefresh{Platform: string(models.PlatformLinkedIn), Err: err}
	}
	return tok, nil
}

var _ Adapter = (*LinkedIn)(nil)
