package analytics

import (
	"context"
	stderrors "errors"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/metrics"
	"github.com/socialsync/socialsync/internal/models"
	"github.com/socialsync/socialsync/internal/platforms"
	"github.com/socialsync/socialsync/internal/store"
)

// ensureFresh refreshes acc's token when it expires within the skew and
// persists the result. The returned account carries the new credentials;
// acc itself is not modified.
func (a *Aggregator) ensureFresh(ctx context.Context, adapter platforms.Adapter, acc *models.Account) (*models.Account, error) {
	if !acc.TokenExpiresWithin(a.now(), a.skew) {
		return acc, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	tok, err := adapter.RefreshToken(callCtx, acc)
	if err == nil && (tok == nil || tok.AccessToken == "") {
		err = stderrors.New("refresh returned no access token")
	}
	if err == nil {
		err = a.store.UpdateAccountTokens(ctx, acc.ID, store.TokenUpdate{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    tok.ExpiresAt,
		})
	}

	event := logging.NewAuditEvent(logging.TokenRefresh, "refresh_token", logging.StatusSuccess).
		WithUserID(acc.UserID).
		WithPlatform(string(acc.Platform)).
		WithDetail("account_id", acc.ID)
	if a.recorder != nil {
		a.recorder.RecordTokenRefresh(string(acc.Platform), metrics.Outcome(err))
	}
	if err != nil {
		a.logger.Audit(ctx, event.WithError(err))
		var refreshErr *errors.ErrTokenRefresh
		if stderrors.As(err, &refreshErr) {
			return nil, err
		}
		return nil, &errors.ErrTokenRefresh{Platform: string(acc.Platform), Err: err}
	}
	a.logger.Audit(ctx, event)

	fresh := *acc
	fresh.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		fresh.RefreshToken = tok.RefreshToken
	}
	fresh.TokenExpiresAt = tok.ExpiresAt
	return &fresh, nil
}
