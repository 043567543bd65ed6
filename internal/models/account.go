package models

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies a social network.
type Platform string

const (
	PlatformTwitter   Platform = "twitter"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
)

// Platforms lists every supported platform in display order.
var Platforms = []Platform{PlatformTwitter, PlatformLinkedIn, PlatformFacebook, PlatformInstagram}

// ParsePlatform accepts any case and "x" as an alias for twitter.
func ParsePlatform(s string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "twitter", "x":
		return PlatformTwitter, true
	case "linkedin":
		return PlatformLinkedIn, true
	case "instagram":
		return PlatformInstagram, true
	case "facebook", "meta":
		return PlatformFacebook, true
	default:
		return "", false
	}
}

// Valid reports whether p is one of the canonical platform values.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitter, PlatformLinkedIn, PlatformInstagram, PlatformFacebook:
		return true
	}
	return false
}

func (p Platform) String() string {
	return string(p)
}

// InstagramAccountType as reported by the Instagram API.
type InstagramAccountType string

const (
	InstagramBusiness InstagramAccountType = "BUSINESS"
	InstagramCreator  InstagramAccountType = "CREATOR"
	InstagramPersonal InstagramAccountType = "PERSONAL"
)

// ParseInstagramAccountType defaults to PERSONAL for empty input. The
// Instagram Login API reports creators as MEDIA_CREATOR.
func ParseInstagramAccountType(s string) (InstagramAccountType, bool) {
	switch InstagramAccountType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", InstagramPersonal:
		return InstagramPersonal, true
	case InstagramBusiness:
		return InstagramBusiness, true
	case InstagramCreator, "MEDIA_CREATOR":
		return InstagramCreator, true
	default:
		return "", false
	}
}

// Account is a user's linked platform identity. Tokens never leave the process
// through JSON.
type Account struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Platform       Platform   `json:"platform"`
	PlatformID     string     `json:"platformId"`
	Username       string     `json:"username"`
	DisplayName    string     `json:"displayName,omitempty"`
	AccessToken    string     `json:"-"`
	RefreshToken   string     `json:"-"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`

	FacebookPageID       string `json:"facebookPageId,omitempty"`
	FacebookPageName     string `json:"facebookPageName,omitempty"`
	FacebookPageCategory string `json:"facebookPageCategory,omitempty"`

	InstagramBusinessID     string               `json:"instagramBusinessId,omitempty"`
	InstagramAccountType    InstagramAccountType `json:"instagramAccountType,omitempty"`
	ConnectedFacebookPageID string               `json:"connectedFacebookPageId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the common fields and the platform-conditional ones.
func (a *Account) Validate() error {
	if a.UserID == "" {
		return fmt.Errorf("user ID is required")
	}
	if !a.Platform.Valid() {
		return fmt.Errorf("unsupported platform %q", a.Platform)
	}
	if a.PlatformID == "" {
		return fmt.Errorf("platform ID is required")
	}
	if a.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}

	switch a.Platform {
	case PlatformFacebook:
		if a.FacebookPageID == "" || a.FacebookPageName == "" || a.FacebookPageCategory == "" {
			return fmt.Errorf("facebook accounts require page id, name and category")
		}
	case PlatformInstagram:
		if a.InstagramBusinessID == "" {
			return fmt.Errorf("instagram accounts require an instagram business id")
		}
		if _, ok := ParseInstagramAccountType(string(a.InstagramAccountType)); !ok || a.InstagramAccountType == "" {
			return fmt.Errorf("invalid instagram account type %q", a.InstagramAccountType)
		}
		if a.InstagramAccountType == InstagramBusiness && a.ConnectedFacebookPageID == "" {
			return fmt.Errorf("instagram business accounts require a connected facebook page")
		}
	}
	return nil
}

// TokenExpiresWithin reports whether the token expires before now+d.
// Accounts without a recorded expiry never report true.
func (a *Account) TokenExpiresWithin(now time.Time, d time.Duration) bool {
	if a.TokenExpiresAt == nil {
		return false
	}
	return a.TokenExpiresAt.Before(now.Add(d))
}

// IsPageLinked reports whether the account was created through a Facebook page.
func (a *Account) IsPageLinked() bool {
	return a.ConnectedFacebookPageID != ""
}

// AccountSlice is a slice of accounts with helper methods.
type AccountSlice []Account

// FilterByPlatform returns accounts for a specific platform.
func (as AccountSlice) FilterByPlatform(p Platform) AccountSlice {
	var result AccountSlice
	for _, a := range as {
		if a.Platform == p {
			result = append(result, a)
		}
	}
	return result
}

// First returns the first account for the platform.
func (as AccountSlice) First(p Platform) (*Account, bool) {
	for i := range as {
		if as[i].Platform == p {
			return &as[i], true
		}
	}
	return nil, false
}

// AccountSummary is the public view returned by the accounts listing.
type AccountSummary struct {
	AccountID   string   `json:"accountId"`
	Platform    Platform `json:"platform"`
	Username    string   `json:"username"`
	DisplayName string   `json:"displayName,omitempty"`
	IsConnected bool     `json:"isConnected"`
}

func (a *Account) Summary() AccountSummary {
	return AccountSummary{
		AccountID:   a.ID,
		Platform:    a.Platform,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		IsConnected: true,
	}
}
