// Package connect runs the OAuth account-linking flow: it issues a
// server-side state, exchanges the returned code and persists the resulting
// accounts.
package connect

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/socialsync/socialsync/internal/config"
	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/metrics"
	"github.com/socialsync/socialsync/internal/models"
	"github.com/socialsync/socialsync/internal/platforms"
	"github.com/socialsync/socialsync/internal/store"
)

const unknownPlatform = "unknown"

// Recorder receives one outcome per finished flow.
type Recorder interface {
	RecordConnect(platform, outcome string)
}

// Notifier is told about finished flows.
type Notifier interface {
	ConnectSucceeded(platform string, accounts int)
	ConnectFailed(platform string)
}

// Result is the outcome of Complete. RedirectURL is always set.
type Result struct {
	Platform    string
	UserID      string
	Stage       Stage
	Accounts    []models.Account
	RedirectURL string
	// Err is the failure cause. It is logged, never shown to the user.
	Err error
}

// Orchestrator drives Begin and Complete.
type Orchestrator struct {
	store       store.Store
	registry    *platforms.Registry
	frontendURL string
	stateTTL    time.Duration
	logger      *logging.Logger
	recorder    Recorder
	notifier    Notifier
	now         func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *logging.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithClock replaces time.Now; tests use it to expire states.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func NewOrchestrator(s store.Store, registry *platforms.Registry, frontendURL string, cfg config.ConnectConfig, opts ...Option) *Orchestrator {
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	o := &Orchestrator{
		store:       s,
		registry:    registry,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		stateTTL:    ttl,
		logger:      logging.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Begin stores a fresh state (and PKCE verifier where the platform uses one)
// for userID and returns the provider's authorization URL.
func (o *Orchestrator) Begin(ctx context.Context, userID, platform string) (string, error) {
	if userID == "" {
		return "", errors.ErrUnauthorized
	}
	adapter, err := o.registry.ByName(platform)
	if err != nil {
		return "", err
	}

	state, err := platforms.NewState()
	if err != nil {
		return "", err
	}
	var verifier, challenge string
	if adapter.UsesPKCE() {
		if verifier, err = platforms.NewCodeVerifier(); err != nil {
			return "", err
		}
		challenge = platforms.CodeChallengeS256(verifier)
	}

	now := o.now().UTC()
	err = o.store.SaveOAuthState(ctx, &models.OAuthState{
		State:        state,
		UserID:       userID,
		Platform:     adapter.Platform(),
		CodeVerifier: verifier,
		CreatedAt:    now,
		ExpiresAt:    now.Add(o.stateTTL),
	})
	if err != nil {
		return "", err
	}

	o.logger.InfoWithContext(ctx, "connect initiated",
		"user_id", userID,
		"platform", string(adapter.Platform()),
		"stage", StageInitiated.String(),
	)
	return adapter.AuthURL(state, challenge), nil
}

// Complete handles the provider callback. The user is the one who began the
// flow, recovered from the stored state.
func (o *Orchestrator) Complete(ctx context.Context, platform, code, state string) *Result {
	res := &Result{Platform: strings.ToLower(strings.TrimSpace(platform)), Stage: StageInitiated}
	res.Err = o.complete(ctx, res, code, state)
	o.finish(ctx, res)
	return res
}

func (o *Orchestrator) complete(ctx context.Context, res *Result, code, state string) error {
	adapter, err := o.registry.ByName(res.Platform)
	if err != nil {
		// The callback is unauthenticated; keep caller input out of labels.
		res.Platform = unknownPlatform
		return err
	}
	p := adapter.Platform()
	res.Platform = string(p)

	if code == "" {
		return errors.ErrMissingAuthorizationCode
	}
	if state == "" {
		return errors.ErrInvalidState
	}
	st, err := o.store.ConsumeOAuthState(ctx, state, o.now())
	if err != nil {
		return err
	}
	if st.Platform != p {
		return fmt.Errorf("state issued for %s: %w", st.Platform, errors.ErrInvalidState)
	}
	res.UserID = st.UserID
	res.Stage = StageCodeReceived

	tok, err := adapter.ExchangeCode(ctx, code, st.CodeVerifier)
	if err != nil {
		return err
	}
	res.Stage = StageTokenExchanged

	if p == models.PlatformFacebook || p == models.PlatformInstagram {
		if tok, err = adapter.UpgradeToken(ctx, tok); err != nil {
			return err
		}
		res.Stage = StageLongLivedUpgrade
	}

	if lister, ok := adapter.(platforms.PageLister); ok && p == models.PlatformFacebook {
		return o.completePages(ctx, res, lister, tok)
	}

	profile, err := adapter.FetchProfile(ctx, tok)
	if err != nil {
		return err
	}
	res.Stage = StageProfileFetched

	acc := accountFromProfile(st.UserID, p, tok, profile)
	if err := acc.Validate(); err != nil {
		return fmt.Errorf("invalid %s account: %w", p, err)
	}
	if err := o.store.UpsertAccount(ctx, acc); err != nil {
		return err
	}
	res.Accounts = []models.Account{*acc}
	res.Stage = StageAccountPersisted
	return nil
}

// completePages saves one Facebook account per page and one Instagram
// business account per page with a linked Instagram account.
func (o *Orchestrator) completePages(ctx context.Context, res *Result, lister platforms.PageLister, userTok *platforms.Token) error {
	pages, err := lister.ListPages(ctx, userTok)
	if err != nil {
		return err
	}
	res.Stage = StageProfileFetched

	accounts := make([]*models.Account, 0, len(pages)*2)
	for _, page := range pages {
		accounts = append(accounts, &models.Account{
			UserID:               res.UserID,
			Platform:             models.PlatformFacebook,
			PlatformID:           page.ID,
			Username:             page.Name,
			DisplayName:          page.Name,
			AccessToken:          page.AccessToken,
			RefreshToken:         userTok.AccessToken,
			TokenExpiresAt:       userTok.ExpiresAt,
			FacebookPageID:       page.ID,
			FacebookPageName:     page.Name,
			FacebookPageCategory: page.Category,
		})
		if page.Instagram == nil {
			continue
		}
		accounts = append(accounts, &models.Account{
			UserID:                  res.UserID,
			Platform:                models.PlatformInstagram,
			PlatformID:              page.Instagram.ID,
			Username:                page.Instagram.Username,
			DisplayName:             page.Instagram.Username,
			AccessToken:             page.AccessToken,
			RefreshToken:            userTok.AccessToken,
			TokenExpiresAt:          userTok.ExpiresAt,
			InstagramBusinessID:     page.Instagram.ID,
			InstagramAccountType:    models.InstagramBusiness,
			ConnectedFacebookPageID: page.ID,
		})
	}

	for _, acc := range accounts {
		if err := acc.Validate(); err != nil {
			return fmt.Errorf("invalid %s account %s: %w", acc.Platform, acc.PlatformID, err)
		}
	}
	for _, acc := range accounts {
		if err := o.store.SaveAccount(ctx, acc); err != nil {
			return err
		}
		res.Accounts = append(res.Accounts, *acc)
	}
	res.Stage = StageAccountPersisted
	return nil
}

func accountFromProfile(userID string, p models.Platform, tok *platforms.Token, profile *platforms.Profile) *models.Account {
	acc := &models.Account{
		UserID:         userID,
		Platform:       p,
		PlatformID:     profile.ID,
		Username:       profile.Username,
		DisplayName:    profile.DisplayName,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiresAt: tok.ExpiresAt,
	}
	if p == models.PlatformInstagram {
		acc.InstagramBusinessID = profile.ID
		acc.InstagramAccountType = profile.AccountType
		if acc.InstagramAccountType == "" {
			acc.InstagramAccountType = models.InstagramPersonal
		}
		// Instagram Login tokens are refreshed by presenting themselves.
		if acc.RefreshToken == "" {
			acc.RefreshToken = tok.AccessToken
		}
	}
	return acc
}

func (o *Orchestrator) finish(ctx context.Context, res *Result) {
	if res.Err == nil && !res.Stage.Terminal() {
		res.Err = fmt.Errorf("connect flow stopped at stage %s", res.Stage)
	}
	tag := res.Platform
	if tag == "" {
		tag = unknownPlatform
	}

	if res.Err != nil {
		failedAt := res.Stage
		res.Stage = StageFailed
		res.RedirectURL = o.redirect("error", url.QueryEscape(tag)+"_connection_failed")

		o.logger.ErrorWithContext(ctx, "connect failed",
			"user_id", res.UserID,
			"platform", tag,
			"stage", failedAt.String(),
			"error", res.Err,
		)
		o.logger.Audit(ctx, logging.NewAuditEvent(logging.ConnectFailure, "connect_account", logging.StatusFailure).
			WithUserID(res.UserID).
			WithPlatform(tag).
			WithDetail("stage", failedAt.String()).
			WithError(res.Err))
		if o.recorder != nil {
			o.recorder.RecordConnect(tag, metrics.OutcomeFailure)
		}
		if o.notifier != nil && !isClientError(res.Err) {
			o.notifier.ConnectFailed(tag)
		}
		return
	}

	res.RedirectURL = o.redirect("connected", tag)
	o.logger.InfoWithContext(ctx, "connect completed",
		"user_id", res.UserID,
		"platform", tag,
		"accounts", len(res.Accounts),
	)
	o.logger.Audit(ctx, logging.NewAuditEvent(logging.AccountConnect, "connect_account", logging.StatusSuccess).
		WithUserID(res.UserID).
		WithPlatform(tag).
		WithDetail("accounts", len(res.Accounts)))
	if o.recorder != nil {
		o.recorder.RecordConnect(tag, metrics.OutcomeSuccess)
	}
	if o.notifier != nil {
		o.notifier.ConnectSucceeded(tag, len(res.Accounts))
	}
}

func (o *Orchestrator) redirect(key, value string) string {
	return o.frontendURL + "/dashboard?" + key + "=" + value
}

// isClientError reports failures caused by the callback request itself
// rather than by the platform.
func isClientError(err error) bool {
	var unsupported *errors.ErrUnsupportedPlatform
	return stderrors.Is(err, errors.ErrMissingAuthorizationCode) ||
		stderrors.Is(err, errors.ErrInvalidState) ||
		stderrors.As(err, &unsupported)
}
