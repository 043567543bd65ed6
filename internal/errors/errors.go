package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Config errors

type ErrConfigNotFound struct {
	Path string
}

func (e *ErrConfigNotFound) Error() string {
	return fmt.Sprintf("config file not found: %s", e.Path)
}

type ErrConfigParse struct {
	Err error
}

func (e *ErrConfigParse) Error() string {
	return fmt.Sprintf("failed to parse YAML: %v", e.Err)
}

func (e *ErrConfigParse) Unwrap() error {
	return e.Err
}

type ErrConfigValidation struct {
	Err error
}

func (e *ErrConfigValidation) Error() string {
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ErrConfigValidation) Unwrap() error {
	return e.Err
}

// Database errors

type ErrDatabaseOpen struct {
	Path string
	Err  error
}

func (e *ErrDatabaseOpen) Error() string {
	return fmt.Sprintf("failed to open database %s: %v", e.Path, e.Err)
}

func (e *ErrDatabaseOpen) Unwrap() error {
	return e.Err
}

type ErrDatabaseMigration struct {
	Version int
	Err     error
}

func (e *ErrDatabaseMigration) Error() string {
	return fmt.Sprintf("database migration %d failed: %v", e.Version, e.Err)
}

func (e *ErrDatabaseMigration) Unwrap() error {
	return e.Err
}

type ErrDatabaseQuery struct {
	Operation string
	Err       error
}

func (e *ErrDatabaseQuery) Error() string {
	return fmt.Sprintf("database query failed for operation %s: %v", e.Operation, e.Err)
}

func (e *ErrDatabaseQuery) Unwrap() error {
	return e.Err
}

// Server errors

type ErrServerStart struct {
	Addr string
	Err  error
}

func (e *ErrServerStart) Error() string {
	return fmt.Sprintf("failed to start server on %s: %v", e.Addr, e.Err)
}

func (e *ErrServerStart) Unwrap() error {
	return e.Err
}

type ErrServerShutdown struct {
	Err error
}

func (e *ErrServerShutdown) Error() string {
	return fmt.Sprintf("server shutdown failed: %v", e.Err)
}

func (e *ErrServerShutdown) Unwrap() error {
	return e.Err
}

// Filesystem errors

type ErrDirectoryCreate struct {
	Path string
	Err  error
}

func (e *ErrDirectoryCreate) Error() string {
	return fmt.Sprintf("failed to create directory %s: %v", e.Path, e.Err)
}

func (e *ErrDirectoryCreate) Unwrap() error {
	return e.Err
}

type ErrFileRead struct {
	Path string
	Err  error
}

func (e *ErrFileRead) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

func (e *ErrFileRead) Unwrap() error {
	return e.Err
}

// Auth and identity errors

var (
	ErrUnauthorized             = errors.New("unauthorized")
	ErrMissingAuthorizationCode = errors.New("missing authorization code")
	ErrInvalidState             = errors.New("invalid or expired oauth state")
)

type ErrUnsupportedPlatform struct {
	Platform string
}

func (e *ErrUnsupportedPlatform) Error() string {
	return fmt.Sprintf("unsupported platform: %s", e.Platform)
}

type ErrAccountNotFound struct {
	UserID   string
	Platform string
}

func (e *ErrAccountNotFound) Error() string {
	if e.Platform != "" {
		return fmt.Sprintf("no %s account connected for user %s", e.Platform, e.UserID)
	}
	return fmt.Sprintf("account not found for user %s", e.UserID)
}

// Upstream platform errors

type ErrUpstreamStatus struct {
	Endpoint   string
	StatusCode int
}

func (e *ErrUpstreamStatus) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Endpoint, e.StatusCode)
}

type ErrAuthExchange struct {
	Platform string
	Err      error
}

func (e *ErrAuthExchange) Error() string {
	return fmt.Sprintf("%s token exchange failed: %v", e.Platform, e.Err)
}

func (e *ErrAuthExchange) Unwrap() error {
	return e.Err
}

type ErrProfileFetch struct {
	Platform string
	Err      error
}

func (e *ErrProfileFetch) Error() string {
	return fmt.Sprintf("%s profile fetch failed: %v", e.Platform, e.Err)
}

func (e *ErrProfileFetch) Unwrap() error {
	return e.Err
}

type ErrAnalyticsFetch struct {
	Platform string
	Err      error
}

func (e *ErrAnalyticsFetch) Error() string {
	return fmt.Sprintf("%s analytics fetch failed: %v", e.Platform, e.Err)
}

func (e *ErrAnalyticsFetch) Unwrap() error {
	return e.Err
}

type ErrTokenRefresh struct {
	Platform string
	Err      error
}

func (e *ErrTokenRefresh) Error() string {
	return fmt.Sprintf("%s token refresh failed: %v", e.Platform, e.Err)
}

func (e *ErrTokenRefresh) Unwrap() error {
	return e.Err
}

type ErrNoOrganization struct {
	Platform string
}

func (e *ErrNoOrganization) Error() string {
	return fmt.Sprintf("no administered %s organization found", e.Platform)
}

// Aggregation errors

type ErrAnalyticsAggregation struct {
	AccountID string
	Platform  string
	Err       error
}

func (e *ErrAnalyticsAggregation) Error() string {
	return fmt.Sprintf("analytics aggregation failed at %s account %s: %v", e.Platform, e.AccountID, e.Err)
}

func (e *ErrAnalyticsAggregation) Unwrap() error {
	return e.Err
}

// AI errors

type ErrGeneration struct {
	Operation string
	Err       error
}

func (e *ErrGeneration) Error() string {
	return fmt.Sprintf("generation failed for %s: %v", e.Operation, e.Err)
}

func (e *ErrGeneration) Unwrap() error {
	return e.Err
}

// HTTPStatus maps an error from the taxonomy onto the status code returned to API clients.
func HTTPStatus(err error) int {
	var (
		notFound    *ErrAccountNotFound
		unsupported *ErrUnsupportedPlatform
		noOrg       *ErrNoOrganization
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrMissingAuthorizationCode), errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case errors.As(err, &unsupported):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &noOrg):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
