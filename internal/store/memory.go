package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/socialsync/socialsync/internal/errors"
	"github.com/socialsync/socialsync/internal/models"
)

// MemoryStore keeps everything in maps. It is thread-safe and is used by
// tests and by `serve --memory`.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account // key: account ID
	states   map[string]*models.OAuthState
	records  map[string]*models.AnalyticsRecord // key: user|platform|day
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*models.Account),
		states:   make(map[string]*models.OAuthState),
		records:  make(map[string]*models.AnalyticsRecord),
		now:      time.Now,
	}
}

// Account operations

func (s *MemoryStore) UpsertAccount(_ context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.UserID == acc.UserID && existing.Platform == acc.Platform && !existing.IsPageLinked() {
			s.replaceLocked(existing, acc)
			return nil
		}
	}
	s.insertLocked(acc)
	return nil
}

func (s *MemoryStore) SaveAccount(_ context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.UserID == acc.UserID && existing.Platform == acc.Platform && existing.PlatformID == acc.PlatformID {
			s.replaceLocked(existing, acc)
			return nil
		}
	}
	s.insertLocked(acc)
	return nil
}

func (s *MemoryStore) insertLocked(acc *models.Account) {
	now := s.now().UTC()
	if acc.ID == "" {
		acc.ID = uuid.New().String()
	}
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = now
	}
	acc.UpdatedAt = now
	stored := *acc
	s.accounts[acc.ID] = &stored
}

func (s *MemoryStore) replaceLocked(existing, acc *models.Account) {
	acc.ID = existing.ID
	acc.CreatedAt = existing.CreatedAt
	acc.UpdatedAt = s.now().UTC()
	stored := *acc
	s.accounts[acc.ID] = &stored
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return nil, &errors.ErrAccountNotFound{UserID: id}
	}
	out := *acc
	return &out, nil
}

func (s *MemoryStore) GetAccountByPlatform(ctx context.Context, userID string, platform models.Platform) (*models.Account, error) {
	accounts, err := s.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	acc, ok := models.AccountSlice(accounts).First(platform)
	if !ok {
		return nil, &errors.ErrAccountNotFound{UserID: userID, Platform: string(platform)}
	}
	return acc, nil
}

func (s *MemoryStore) ListAccountsByUser(_ context.Context, userID string) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Account, 0)
	for _, acc := range s.accounts {
		if acc.UserID == userID {
			result = append(result, *acc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *MemoryStore) DeleteAccountsByPlatform(_ context.Context, userID string, platform models.Platform) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, acc := range s.accounts {
		if acc.UserID == userID && acc.Platform == platform {
			delete(s.accounts, id)
			deleted++
		}
	}
	if deleted == 0 {
		return 0, &errors.ErrAccountNotFound{UserID: userID, Platform: string(platform)}
	}
	return deleted, nil
}

func (s *MemoryStore) UpdateAccountTokens(_ context.Context, id string, tokens TokenUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return &errors.ErrAccountNotFound{UserID: id}
	}
	acc.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		acc.RefreshToken = tokens.RefreshToken
	}
	acc.TokenExpiresAt = tokens.ExpiresAt
	acc.UpdatedAt = s.now().UTC()
	return nil
}

// OAuth state operations

func (s *MemoryStore) SaveOAuthState(_ context.Context, state *models.OAuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *state
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}
	s.states[state.State] = &stored
	return nil
}

func (s *MemoryStore) ConsumeOAuthState(_ context.Context, state string, now time.Time) (*models.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[state]
	if !ok {
		return nil, errors.ErrInvalidState
	}
	delete(s.states, state)
	if st.Expired(now) {
		return nil, errors.ErrInvalidState
	}
	out := *st
	return &out, nil
}

func (s *MemoryStore) DeleteExpiredOAuthStates(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, st := range s.states {
		if st.Expired(now) {
			delete(s.states, key)
			removed++
		}
	}
	return removed, nil
}

// Analytics history

func recordKey(userID string, platform models.Platform, day time.Time) string {
	return userID + "|" + string(platform) + "|" + day.Format("2006-01-02")
}

func (s *MemoryStore) SaveAnalyticsRecord(_ context.Context, rec *models.AnalyticsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Date = dayOf(rec.Date)
	key := recordKey(rec.UserID, rec.Platform, rec.Date)
	if existing, ok := s.records[key]; ok {
		rec.ID = existing.ID
	} else if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	stored := *rec
	s.records[key] = &stored
	return nil
}

func (s *MemoryStore) ListAnalyticsRecords(_ context.Context, filter RecordFilter) ([]models.AnalyticsRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.AnalyticsRecord, 0)
	for _, rec := range s.records {
		if filter.UserID != "" && rec.UserID != filter.UserID {
			continue
		}
		if filter.Platform != "" && rec.Platform != filter.Platform {
			continue
		}
		if !filter.Since.IsZero() && rec.Date.Before(dayOf(filter.Since)) {
			continue
		}
		result = append(result, *rec)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		return result[i].Platform < result[j].Platform
	})
	return result, nil
}

// Stats returns statistics about the store
func (s *MemoryStore) Stats(_ context.Context) (StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreStats{
		AccountCount:     len(s.accounts),
		PendingStates:    len(s.states),
		AnalyticsRecords: len(s.records),
	}, nil
}

// Close implements Store Close (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements the Store interface
var _ Store = (*MemoryStore)(nil)
