/*
errors.go - Centralized error types for the engine and its collaborators

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on the sentinels with errors.Is and pull details out of
  the structured types with errors.As.

ERROR CATEGORIES:
  1. Input errors - malformed or out-of-range request fields
  2. Lookup errors - a catalog has nothing for the requested key
  3. Policy errors - a rule (claim limit) refused the request
  4. Configuration errors - a required setting is missing

NOT AN ERROR:
  An unparsable task-log timestamp is a classification (the row is
  invalid), reported in the task count, never returned as an error.

SEE ALSO:
  - compensation/: Returns these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInput is returned for non-positive hours, negative amounts,
	// missing required fields and malformed numbers.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a catalog has no entry for a key, e.g. an
	// activity name with no configured tiers.
	ErrNotFound = errors.New("not found")

	// ErrClaimLimitReached is returned when a user already submitted the
	// allowed number of KPI-bearing calculations for the day.
	ErrClaimLimitReached = errors.New("daily KPI claim limit reached")

	// ErrTaskRateNotConfigured is returned when a task-counted calculation
	// is requested and no per-task rate is configured.
	ErrTaskRateNotConfigured = errors.New("per-task rate not configured")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidInputError describes which field was rejected and why.
type InvalidInputError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError names the kind of thing that was looked up and its key.
type NotFoundError struct {
	Kind string // e.g. "activity tiers"
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %q", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ClaimLimitError reports the count that blocked a KPI claim.
type ClaimLimitError struct {
	UserID   UserID
	Date     TimePoint
	Existing int
	Limit    int
}

func (e *ClaimLimitError) Error() string {
	return fmt.Sprintf("user %s already has %d KPI claim(s) on %s (limit %d)",
		e.UserID, e.Existing, e.Date, e.Limit)
}

func (e *ClaimLimitError) Unwrap() error {
	return ErrClaimLimitReached
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing catalog entry.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if a policy refused an otherwise valid request.
func IsConflict(err error) bool {
	return errors.Is(err, ErrClaimLimitReached)
}
