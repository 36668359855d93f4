// Package errors provides sentinel errors and custom error types for the add2git application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for each failure class of the sync pipeline
var (
	// ErrValidation indicates a bad or missing file or credential path
	ErrValidation = errors.New("validation failed")

	// ErrCredential indicates an unreadable or malformed SSH key
	ErrCredential = errors.New("invalid credential")

	// ErrNetwork indicates a connection or protocol failure talking to the remote
	ErrNetwork = errors.New("network failure")

	// ErrAuth indicates the remote rejected the supplied credential
	ErrAuth = errors.New("authentication failed")

	// ErrRejected indicates the remote refused a non-fast-forward push
	ErrRejected = errors.New("push rejected")

	// ErrState indicates the repository is not in a state the operation requires
	ErrState = errors.New("invalid repository state")

	// ErrIO indicates a path could not be read from disk
	ErrIO = errors.New("i/o failure")

	// ErrConflict indicates a merge found paths changed differently on both sides
	ErrConflict = errors.New("merge conflict")
)

// ValidationError represents a bad command line input such as a missing file
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Is returns true if the target error is ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// CredentialError represents a key file that cannot be used for authentication
type CredentialError struct {
	Path string
	Err  error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("could not load ssh key %s: %v", e.Path, e.Err)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrCredential
func (e *CredentialError) Is(target error) bool {
	return target == ErrCredential
}

// NewCredentialError creates a new CredentialError
func NewCredentialError(path string, err error) *CredentialError {
	return &CredentialError{Path: path, Err: err}
}

// NetworkError represents a transport failure during fetch or push
type NetworkError struct {
	Op     string
	Remote string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Remote, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrNetwork
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(op, remote string, err error) *NetworkError {
	return &NetworkError{Op: op, Remote: remote, Err: err}
}

// AuthError represents a credential rejected by the remote
type AuthError struct {
	Op     string
	Remote string
	Err    error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s %s: authentication rejected: %v", e.Op, e.Remote, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrAuth
func (e *AuthError) Is(target error) bool {
	return target == ErrAuth
}

// NewAuthError creates a new AuthError
func NewAuthError(op, remote string, err error) *AuthError {
	return &AuthError{Op: op, Remote: remote, Err: err}
}

// RejectedError represents a push refused because the remote branch moved on
type RejectedError struct {
	Remote string
	Branch string
	Err    error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("push of %s to %s was rejected as a non-fast-forward update; fetch and merge again before pushing: %v", e.Branch, e.Remote, e.Err)
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrRejected
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// NewRejectedError creates a new RejectedError
func NewRejectedError(remote, branch string, err error) *RejectedError {
	return &RejectedError{Remote: remote, Branch: branch, Err: err}
}

// StateError represents an unmet precondition on the repository
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}

// Is returns true if the target error is ErrState
func (e *StateError) Is(target error) bool {
	return target == ErrState
}

// NewStateError creates a new StateError
func NewStateError(format string, args ...interface{}) *StateError {
	return &StateError{Message: fmt.Sprintf(format, args...)}
}

// IOError represents a path that is missing or unreadable
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Is returns true if the target error is ErrIO
func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// NewIOError creates a new IOError
func NewIOError(path string, err error) *IOError {
	return &IOError{Path: path, Err: err}
}

// ConflictWarning records paths that were changed differently on both sides of a merge.
// It is never returned as a pipeline failure; the merge completes with the local version.
type ConflictWarning struct {
	Paths []string
	// Diffs maps a conflicting path to a unified diff of local against remote content.
	Diffs map[string]string
}

func (w *ConflictWarning) Error() string {
	return fmt.Sprintf("merge conflicts detected in %d path(s), kept local version: %s", len(w.Paths), strings.Join(w.Paths, ", "))
}

// Is returns true if the target error is ErrConflict
func (w *ConflictWarning) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictWarning creates a new ConflictWarning
func NewConflictWarning(paths []string, diffs map[string]string) *ConflictWarning {
	if diffs == nil {
		diffs = map[string]string{}
	}
	return &ConflictWarning{Paths: paths, Diffs: diffs}
}
