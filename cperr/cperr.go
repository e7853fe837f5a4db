// Package cperr defines the error kinds surfaced by the Carbon Portal client.
//
// Every failure the library reports belongs to one of a small set of kinds:
// authentication problems, malformed persisted credentials, identifier
// resolution failures, metadata problems, unsupported format requests, binary
// decode mismatches, and remote (HTTP/network) failures. The kinds are plain
// error types that integrate with errors.Is and errors.As, so callers can
// branch on the class of a failure without matching message strings.
package cperr

import (
	"errors"
	"fmt"
)

// AuthError reports missing, invalid or expired credentials, including
// HTTP 401 responses from the portal.
type AuthError struct {
	// Reason is one of "missing", "invalid" or "expired".
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

// NewAuthError creates an AuthError with the given reason.
func NewAuthError(reason string) *AuthError {
	return &AuthError{Reason: reason}
}

// CredentialsError reports a malformed persisted credentials file.
type CredentialsError struct {
	Path string
	Err  error
}

func (e *CredentialsError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("credentials file %s: %v", e.Path, e.Err)
	}
	return "credentials file " + e.Path + ": no usable credentials"
}

func (e *CredentialsError) Unwrap() error { return e.Err }

// ResolveError reports a persistent identifier that could not be
// canonicalised. Where resolution is optional the library returns an empty
// result instead of this error.
type ResolveError struct {
	PID string
}

func (e *ResolveError) Error() string {
	return "cannot resolve pid " + e.PID
}

// MetaError reports missing metadata or a metadata document that is
// schema-incompatible with the requested accessor, such as asking for the
// column listing of a spatio-temporal object.
type MetaError struct {
	Detail string
}

func (e *MetaError) Error() string {
	return "metadata: " + e.Detail
}

// FormatError reports an unsupported citation format or column-group keyword.
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return "unsupported format " + e.Format
}

// DecodeError reports a binary payload that does not match its schema.
// Column is the zero-based index of the offending column.
type DecodeError struct {
	Column int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode column %d: %v", e.Column, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RemoteError reports a non-401 HTTP failure or a network error. For HTTP
// failures the status code and the captured response body are available.
type RemoteError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("remote error: status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("remote error: %v", e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsAuth reports whether err is or wraps an AuthError.
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsRemote reports whether err is or wraps a RemoteError.
func IsRemote(err error) bool {
	var target *RemoteError
	return errors.As(err, &target)
}

// IsDecode reports whether err is or wraps a DecodeError.
func IsDecode(err error) bool {
	var target *DecodeError
	return errors.As(err, &target)
}

// IsFormat reports whether err is or wraps a FormatError.
func IsFormat(err error) bool {
	var target *FormatError
	return errors.As(err, &target)
}

// IsMeta reports whether err is or wraps a MetaError.
func IsMeta(err error) bool {
	var target *MetaError
	return errors.As(err, &target)
}
