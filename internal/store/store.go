package store

import (
	"context"
	"time"

	"github.com/socialsync/socialsync/internal/models"
)

// Store persists linked accounts, in-flight OAuth states and analytics history.
type Store interface {
	// UpsertAccount writes the user's single directly-connected account for
	// acc.Platform. An existing row for (userID, platform) that was not created
	// through a Facebook page is updated in place and keeps its ID.
	UpsertAccount(ctx context.Context, acc *models.Account) error
	// SaveAccount writes an account keyed by (userID, platform, platformID).
	// Used by the page flow where one connect yields several accounts.
	SaveAccount(ctx context.Context, acc *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	// GetAccountByPlatform returns the user's first account for the platform.
	GetAccountByPlatform(ctx context.Context, userID string, platform models.Platform) (*models.Account, error)
	// ListAccountsByUser returns accounts ordered by creation time, then ID.
	ListAccountsByUser(ctx context.Context, userID string) ([]models.Account, error)
	// DeleteAccountsByPlatform removes every account the user has on the platform.
	DeleteAccountsByPlatform(ctx context.Context, userID string, platform models.Platform) (int, error)
	UpdateAccountTokens(ctx context.Context, id string, tokens TokenUpdate) error

	SaveOAuthState(ctx context.Context, state *models.OAuthState) error
	// ConsumeOAuthState returns and deletes the state. Unknown or expired
	// states yield errors.ErrInvalidState.
	ConsumeOAuthState(ctx context.Context, state string, now time.Time) (*models.OAuthState, error)
	DeleteExpiredOAuthStates(ctx context.Context, now time.Time) (int, error)

	// SaveAnalyticsRecord keeps one record per (user, platform, UTC day); later
	// writes on the same day replace earlier ones.
	SaveAnalyticsRecord(ctx context.Context, rec *models.AnalyticsRecord) error
	ListAnalyticsRecords(ctx context.Context, filter RecordFilter) ([]models.AnalyticsRecord, error)

	Stats(ctx context.Context) (StoreStats, error)
	Close() error
}

// TokenUpdate carries refreshed credentials. An empty RefreshToken keeps the stored one.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// RecordFilter selects analytics history. Zero fields do not filter.
type RecordFilter struct {
	UserID   string
	Platform models.Platform
	Since    time.Time
}

// StoreStats contains statistics about the store
type StoreStats struct {
	AccountCount     int `json:"accounts"`
	PendingStates    int `json:"pendingStates"`
	AnalyticsRecords int `json:"analyticsRecords"`
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
