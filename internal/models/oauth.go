package models

import "time"

// OAuthState is the server-side half of an in-flight authorization.
// It is looked up by State on callback and consumed exactly once.
type OAuthState struct {
	State        string    `json:"state"`
	UserID       string    `json:"userId"`
	Platform     Platform  `json:"platform"`
	CodeVerifier string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the state can no longer be redeemed at now.
func (s *OAuthState) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
