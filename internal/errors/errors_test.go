package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestConfigErrors(t *testing.T) {
	notFound := &ErrConfigNotFound{Path: "/tmp/config.yaml"}
	if !strings.Contains(notFound.Error(), "config file not found") {
		t.Fatalf("unexpected error message: %s", notFound.Error())
	}
	if !strings.Contains(notFound.Error(), notFound.Path) {
		t.Fatalf("expected path in error message: %s", notFound.Error())
	}

	base := errors.New("bad yaml")
	parse := &ErrConfigParse{Err: base}
	if !errors.Is(parse, base) {
		t.Fatalf("expected unwrap to base error")
	}

	validation := &ErrConfigValidation{Err: base}
	if !strings.Contains(validation.Error(), "config validation failed") {
		t.Fatalf("unexpected validation message: %s", validation.Error())
	}
	if !errors.Is(validation, base) {
		t.Fatalf("expected unwrap to base error")
	}
}

func TestDatabaseErrors(t *testing.T) {
	base := errors.New("db")

	op := &ErrDatabaseOpen{Path: "/tmp/db.sqlite", Err: base}
	if !errors.Is(op, base) {
		t.Fatalf("expected unwrap to base error")
	}

	mig := &ErrDatabaseMigration{Version: 2, Err: base}
	if !strings.Contains(mig.Error(), "migration 2") {
		t.Fatalf("unexpected migration message: %s", mig.Error())
	}

	query := &ErrDatabaseQuery{Operation: "upsert account", Err: base}
	if !strings.Contains(query.Error(), "upsert account") {
		t.Fatalf("unexpected query message: %s", query.Error())
	}
}

func TestPlatformErrorsUnwrap(t *testing.T) {
	status := &ErrUpstreamStatus{Endpoint: "twitter token", StatusCode: 400}

	cases := []error{
		&ErrAuthExchange{Platform: "twitter", Err: status},
		&ErrProfileFetch{Platform: "linkedin", Err: status},
		&ErrAnalyticsFetch{Platform: "facebook", Err: status},
		&ErrTokenRefresh{Platform: "instagram", Err: status},
		&ErrAnalyticsAggregation{AccountID: "a1", Platform: "twitter", Err: status},
		&ErrGeneration{Operation: "generate", Err: status},
	}

	for _, err := range cases {
		var target *ErrUpstreamStatus
		if !errors.As(err, &target) {
			t.Fatalf("expected %T to unwrap to ErrUpstreamStatus", err)
		}
		if target.StatusCode != 400 {
			t.Fatalf("unexpected status %d", target.StatusCode)
		}
	}
}

func TestAggregationWrapsNoOrganization(t *testing.T) {
	err := &ErrAnalyticsAggregation{
		AccountID: "acc-1",
		Platform:  "linkedin",
		Err:       &ErrAnalyticsFetch{Platform: "linkedin", Err: &ErrNoOrganization{Platform: "linkedin"}},
	}

	var noOrg *ErrNoOrganization
	if !errors.As(err, &noOrg) {
		t.Fatalf("expected no organization in chain")
	}
	if !strings.Contains(err.Error(), "acc-1") {
		t.Fatalf("expected account id in message: %s", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{ErrUnauthorized, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", ErrUnauthorized), http.StatusUnauthorized},
		{ErrMissingAuthorizationCode, http.StatusBadRequest},
		{ErrInvalidState, http.StatusBadRequest},
		{&ErrUnsupportedPlatform{Platform: "myspace"}, http.StatusBadRequest},
		{&ErrAccountNotFound{UserID: "u1", Platform: "twitter"}, http.StatusNotFound},
		{&ErrNoOrganization{Platform: "linkedin"}, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
