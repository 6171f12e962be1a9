// Package errs holds the failure taxonomy shared by the analytics engine and the HTTP layer.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed request parameters.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError reports a pool, market or series with no matching data.
type NotFoundError struct{ Msg string }

func (e *NotFoundError) Error() string { return e.Msg }

// InsufficientDataError reports that fewer points exist than a computation needs.
type InsufficientDataError struct{ Msg string }

func (e *InsufficientDataError) Error() string { return e.Msg }

// AlignmentError reports two series whose day boundaries disagree.
type AlignmentError struct{ Msg string }

func (e *AlignmentError) Error() string { return e.Msg }

// UpstreamFetchError wraps a failed fetch from a price feed or the chain registry.
type UpstreamFetchError struct {
	Feed string
	Err  error
}

func (e *UpstreamFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Feed, e.Err)
}

func (e *UpstreamFetchError) Unwrap() error { return e.Err }

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

func InsufficientData(format string, args ...any) error {
	return &InsufficientDataError{Msg: fmt.Sprintf(format, args...)}
}

func Alignment(format string, args ...any) error {
	return &AlignmentError{Msg: fmt.Sprintf(format, args...)}
}

func Upstream(feed string, err error) error {
	return &UpstreamFetchError{Feed: feed, Err: err}
}

// Is* helpers classify wrapped errors.

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}

func IsAlignment(err error) bool {
	var target *AlignmentError
	return errors.As(err, &target)
}

func IsUpstream(err error) bool {
	var target *UpstreamFetchError
	return errors.As(err, &target)
}
