package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/logging"
	"github.com/socialsync/socialsync/internal/models"
)

// SQLiteStore persists accounts, OAuth states and analytics history in SQLite
// with WAL mode. Writes are serialized through mu.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	logger *logging.Logger

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	closeOnce     sync.Once
	retentionDays int
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithLogger sets the logger used for background cleanup failures.
func WithLogger(logger *logging.Logger) SQLiteOption {
	return func(s *SQLiteStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRetention keeps analytics history for the given number of days. 0 keeps everything.
func WithRetention(days int) SQLiteOption {
	return func(s *SQLiteStore) {
		s.retentionDays = days
	}
}

// NewSQLiteStore opens (creating if needed) the database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string, opts ...SQLiteOption) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &errors.ErrDirectoryCreate{Path: dir, Err: err}
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &errors.ErrDatabaseOpen{Path: dbPath, Err: err}
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{
		db:            db,
		logger:        logging.NewLogger(),
		cleanupDone:   make(chan struct{}),
		retentionDays: 90,
	}
	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

func runMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "create migrations table", Err: err}
	}

	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "get current migration version", Err: err}
	}

	migrations := []struct {
		version int
		up      string
	}{
		{
			version: 1,
			up: `
				CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					platform TEXT NOT NULL,
					platform_id TEXT NOT NULL,
					username TEXT NOT NULL DEFAULT '',
					display_name TEXT NOT NULL DEFAULT '',
					access_token TEXT NOT NULL,
					refresh_token TEXT NOT NULL DEFAULT '',
					token_expires_at DATETIME,
					facebook_page_id TEXT NOT NULL DEFAULT '',
					facebook_page_name TEXT NOT NULL DEFAULT '',
					facebook_page_category TEXT NOT NULL DEFAULT '',
					instagram_business_id TEXT NOT NULL DEFAULT '',
					instagram_account_type TEXT NOT NULL DEFAULT '',
					connected_facebook_page_id TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_identity ON accounts(user_id, platform, platform_id);
				CREATE INDEX IF NOT EXISTS idx_accounts_user ON accounts(user_id, created_at, id);

				CREATE TABLE IF NOT EXISTS oauth_states (
					state TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					platform TEXT NOT NULL,
					code_verifier TEXT NOT NULL DEFAULT '',
					created_at DATETIME NOT NULL,
					expires_at DATETIME NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_oauth_states_expires_at ON oauth_states(expires_at);
			`,
		},
		{
			version: 2,
			up: `
				CREATE TABLE IF NOT EXISTS analytics_history (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					platform TEXT NOT NULL,
					day DATETIME NOT NULL,
					followers INTEGER NOT NULL DEFAULT 0,
					engagement_rate REAL NOT NULL DEFAULT 0,
					impressions INTEGER NOT NULL DEFAULT 0,
					sentiment_positive INTEGER NOT NULL DEFAULT 0,
					sentiment_negative INTEGER NOT NULL DEFAULT 0,
					sentiment_neutral INTEGER NOT NULL DEFAULT 0
				);

				CREATE UNIQUE INDEX IF NOT EXISTS idx_analytics_history_day ON analytics_history(user_id, platform, day);
			`,
		},
	}

	tx, err := db.Begin()
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "begin transaction", Err: err}
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, m := range migrations {
		if m.version > currentVersion {
			if _, err := tx.Exec(m.up); err != nil {
				return &errors.ErrDatabaseMigration{Version: m.version, Err: err}
			}
			if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
				return &errors.ErrDatabaseMigration{Version: m.version, Err: err}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &errors.ErrDatabaseQuery{Operation: "commit migrations", Err: err}
	}

	return nil
}

// StartCleanup periodically removes expired OAuth states and history older
// than the retention window. It stops when the store is closed.
func (s *SQLiteStore) StartCleanup(interval time.Duration) {
	if interval <= 0 || s.cleanupTicker != nil {
		return
	}
	s.cleanupTicker = time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-s.cleanupTicker.C:
				s.cleanupOldData()
			case <-s.cleanupDone:
				return
			}
		}
	}()
}

func (s *SQLiteStore) cleanupOldData() {
	ctx := context.Background()
	now := time.Now().UTC()

	if n, err := s.DeleteExpiredOAuthStates(ctx, now); err != nil {
		s.logger.Error("cleanup failed", "table", "oauth_states", "error", err.Error())
	} else if n > 0 {
		s.logger.Debug("expired oauth states removed", "count", n)
	}

	if s.retentionDays <= 0 {
		return
	}
	cutoff := dayOf(now.AddDate(0, 0, -s.retentionDays))
	s.mu.Lock()
	_, err := s.db.ExecContext(ctx, "DELETE FROM analytics_history WHERE day < ?", cutoff)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("cleanup failed", "table", "analytics_history", "error", err.Error())
	}
}

// Close stops background cleanup and closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cleanupTicker != nil {
			s.cleanupTicker.Stop()
		}
		close(s.cleanupDone)
		if s.db != nil {
			err = s.db.Close()
		}
	})
	return err
}

// Account operations

const accountColumns = `id, user_id, platform, platform_id, username, display_name, access_token, refresh_token,
	token_expires_at, facebook_page_id, facebook_page_name, facebook_page_category,
	instagram_business_id, instagram_account_type, connected_facebook_page_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var acc models.Account
	err := row.Scan(&acc.ID, &acc.UserID, &acc.Platform, &acc.PlatformID, &acc.Username, &acc.DisplayName,
		&acc.AccessToken, &acc.RefreshToken, &acc.TokenExpiresAt, &acc.FacebookPageID, &acc.FacebookPageName,
		&acc.FacebookPageCategory, &acc.InstagramBusinessID, &acc.InstagramAccountType, &acc.ConnectedFacebookPageID,
		&acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

// UpsertAccount updates the user's directly-connected account for the platform
// or inserts a new one.
func (s *SQLiteStore) UpsertAccount(ctx context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "begin upsert account", Err: err}
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var existingID string
	var createdAt time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT id, created_at FROM accounts
		WHERE user_id = ? AND platform = ? AND connected_facebook_page_id = ''
		ORDER BY created_at, id LIMIT 1
	`, acc.UserID, acc.Platform).Scan(&existingID, &createdAt)
	switch {
	case err == sql.ErrNoRows:
		if err := insertAccount(ctx, tx, acc); err != nil {
			return err
		}
	case err != nil:
		return &errors.ErrDatabaseQuery{Operation: "find account", Err: err}
	default:
		acc.ID = existingID
		acc.CreatedAt = createdAt
		if err := updateAccount(ctx, tx, acc); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return &errors.ErrDatabaseQuery{Operation: "commit upsert account", Err: err}
	}
	return nil
}

// SaveAccount upserts on (user_id, platform, platform_id).
func (s *SQLiteStore) SaveAccount(ctx context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if acc.ID == "" {
		acc.ID = uuid.New().String()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, platform, platform_id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			token_expires_at = excluded.token_expires_at,
			facebook_page_id = excluded.facebook_page_id,
			facebook_page_name = excluded.facebook_page_name,
			facebook_page_category = excluded.facebook_page_category,
			instagram_business_id = excluded.instagram_business_id,
			instagram_account_type = excluded.instagram_account_type,
			connected_facebook_page_id = excluded.connected_facebook_page_id,
			updated_at = excluded.updated_at
	`, accountArgs(acc)...)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "save account", Err: err}
	}

	// The conflict path keeps the original row; report its identity back.
	row := s.db.QueryRowContext(ctx, `SELECT id, created_at FROM accounts WHERE user_id = ? AND platform = ? AND platform_id = ?`,
		acc.UserID, acc.Platform, acc.PlatformID)
	if err := row.Scan(&acc.ID, &acc.CreatedAt); err != nil {
		return &errors.ErrDatabaseQuery{Operation: "reload account", Err: err}
	}
	return nil
}

func accountArgs(acc *models.Account) []any {
	return []any{acc.ID, acc.UserID, acc.Platform, acc.PlatformID, acc.Username, acc.DisplayName,
		acc.AccessToken, acc.RefreshToken, acc.TokenExpiresAt, acc.FacebookPageID, acc.FacebookPageName,
		acc.FacebookPageCategory, acc.InstagramBusinessID, acc.InstagramAccountType, acc.ConnectedFacebookPageID,
		acc.CreatedAt, acc.UpdatedAt}
}

func insertAccount(ctx context.Context, tx *sql.Tx, acc *models.Account) error {
	now := time.Now().UTC()
	if acc.ID == "" {
		acc.ID = uuid.New().String()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = now

	_, err := tx.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, accountArgs(acc)...)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "insert account", Err: err}
	}
	return nil
}

func updateAccount(ctx context.Context, tx *sql.Tx, acc *models.Account) error {
	acc.UpdatedAt = time.Now().UTC()
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts SET
			platform_id = ?, username = ?, display_name = ?, access_token = ?, refresh_token = ?,
			token_expires_at = ?, facebook_page_id = ?, facebook_page_name = ?, facebook_page_category = ?,
			instagram_business_id = ?, instagram_account_type = ?, connected_facebook_page_id = ?, updated_at = ?
		WHERE id = ?
	`, acc.PlatformID, acc.Username, acc.DisplayName, acc.AccessToken, acc.RefreshToken,
		acc.TokenExpiresAt, acc.FacebookPageID, acc.FacebookPageName, acc.FacebookPageCategory,
		acc.InstagramBusinessID, acc.InstagramAccountType, acc.ConnectedFacebookPageID, acc.UpdatedAt, acc.ID)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "update account", Err: err}
	}
	return nil
}

func (s *SQLiteStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, err := scanAccount(s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrAccountNotFound{UserID: id}
	}
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get account", Err: err}
	}
	return acc, nil
}

func (s *SQLiteStore) GetAccountByPlatform(ctx context.Context, userID string, platform models.Platform) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, err := scanAccount(s.db.QueryRowContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE user_id = ? AND platform = ?
		ORDER BY created_at, id LIMIT 1
	`, userID, platform))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrAccountNotFound{UserID: userID, Platform: string(platform)}
	}
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get account by platform", Err: err}
	}
	return acc, nil
}

func (s *SQLiteStore) ListAccountsByUser(ctx context.Context, userID string) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE user_id = ?
		ORDER BY created_at, id
	`, userID)
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "list accounts", Err: err}
	}
	defer rows.Close()

	accounts := make([]models.Account, 0)
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, &errors.ErrDatabaseQuery{Operation: "scan account", Err: err}
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "list accounts", Err: err}
	}
	return accounts, nil
}

func (s *SQLiteStore) DeleteAccountsByPlatform(ctx context.Context, userID string, platform models.Platform) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE user_id = ? AND platform = ?", userID, platform)
	if err != nil {
		return 0, &errors.ErrDatabaseQuery{Operation: "delete accounts", Err: err}
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return 0, &errors.ErrAccountNotFound{UserID: userID, Platform: string(platform)}
	}
	return int(rows), nil
}

func (s *SQLiteStore) UpdateAccountTokens(ctx context.Context, id string, tokens TokenUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET
			access_token = ?,
			refresh_token = CASE WHEN ? = '' THEN refresh_token ELSE ? END,
			token_expires_at = ?,
			updated_at = ?
		WHERE id = ?
	`, tokens.AccessToken, tokens.RefreshToken, tokens.RefreshToken, tokens.ExpiresAt, time.Now().UTC(), id)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "update account tokens", Err: err}
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return &errors.ErrAccountNotFound{UserID: id}
	}
	return nil
}

// OAuth state operations

func (s *SQLiteStore) SaveOAuthState(ctx context.Context, state *models.OAuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state.CreatedAt.IsZero() {
		state.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO oauth_states (state, user_id, platform, code_verifier, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, state.State, state.UserID, state.Platform, state.CodeVerifier, state.CreatedAt, state.ExpiresAt.UTC())
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "save oauth state", Err: err}
	}
	return nil
}

// ConsumeOAuthState deletes the row in the same transaction that reads it.
func (s *SQLiteStore) ConsumeOAuthState(ctx context.Context, state string, now time.Time) (*models.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "begin consume oauth state", Err: err}
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var st models.OAuthState
	err = tx.QueryRowContext(ctx, `
		SELECT state, user_id, platform, code_verifier, created_at, expires_at
		FROM oauth_states WHERE state = ?
	`, state).Scan(&st.State, &st.UserID, &st.Platform, &st.CodeVerifier, &st.CreatedAt, &st.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, errors.ErrInvalidState
	}
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "get oauth state", Err: err}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM oauth_states WHERE state = ?", state); err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "delete oauth state", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "commit consume oauth state", Err: err}
	}

	if st.Expired(now) {
		return nil, errors.ErrInvalidState
	}
	return &st, nil
}

func (s *SQLiteStore) DeleteExpiredOAuthStates(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM oauth_states WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, &errors.ErrDatabaseQuery{Operation: "delete expired oauth states", Err: err}
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}

// Analytics history

func (s *SQLiteStore) SaveAnalyticsRecord(ctx context.Context, rec *models.AnalyticsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Date = dayOf(rec.Date)
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics_history (id, user_id, platform, day, followers, engagement_rate, impressions,
			sentiment_positive, sentiment_negative, sentiment_neutral)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, platform, day) DO UPDATE SET
			followers = excluded.followers,
			engagement_rate = excluded.engagement_rate,
			impressions = excluded.impressions,
			sentiment_positive = excluded.sentiment_positive,
			sentiment_negative = excluded.sentiment_negative,
			sentiment_neutral = excluded.sentiment_neutral
	`, rec.ID, rec.UserID, rec.Platform, rec.Date, rec.Followers, rec.EngagementRate, rec.Impressions,
		rec.Sentiment.Positive, rec.Sentiment.Negative, rec.Sentiment.Neutral)
	if err != nil {
		return &errors.ErrDatabaseQuery{Operation: "save analytics record", Err: err}
	}
	return nil
}

func (s *SQLiteStore) ListAnalyticsRecords(ctx context.Context, filter RecordFilter) ([]models.AnalyticsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, user_id, platform, day, followers, engagement_rate, impressions,
		sentiment_positive, sentiment_negative, sentiment_neutral
		FROM analytics_history WHERE 1 = 1`
	var args []any
	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Platform != "" {
		query += " AND platform = ?"
		args = append(args, filter.Platform)
	}
	if !filter.Since.IsZero() {
		query += " AND day >= ?"
		args = append(args, dayOf(filter.Since))
	}
	query += " ORDER BY day, platform"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "list analytics records", Err: err}
	}
	defer rows.Close()

	records := make([]models.AnalyticsRecord, 0)
	for rows.Next() {
		var rec models.AnalyticsRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Platform, &rec.Date, &rec.Followers, &rec.EngagementRate,
			&rec.Impressions, &rec.Sentiment.Positive, &rec.Sentiment.Negative, &rec.Sentiment.Neutral); err != nil {
			return nil, &errors.ErrDatabaseQuery{Operation: "scan analytics record", Err: err}
		}
		rec.Date = rec.Date.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &errors.ErrDatabaseQuery{Operation: "list analytics records", Err: err}
	}
	return records, nil
}

// Stats returns statistics about the store
func (s *SQLiteStore) Stats(ctx context.Context) (StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats StoreStats
	counts := []struct {
		table string
		dest  *int
	}{
		{"accounts", &stats.AccountCount},
		{"oauth_states", &stats.PendingStates},
		{"analytics_history", &stats.AnalyticsRecords},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return StoreStats{}, &errors.ErrDatabaseQuery{Operation: "count " + c.table, Err: err}
		}
	}
	return stats, nil
}

// Ensure SQLiteStore implements the Store interface
var _ Store = (*SQLiteStore)(nil)
