package platforms

import (
	stderrors "errors"
	"strings"
)

var (
	errNoRefreshToken     = stderrors.New("no refresh token stored")
	errNotBusinessAccount = stderrors.New("insights require a page-linked business account")
)

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func scopesOr(configured, defaults []string) []string {
	if len(configured) > 0 {
		return configured
	}
	return defaults
}
