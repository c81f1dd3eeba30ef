package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors, compared with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Record errors
var (
	// ErrBetNotFound is returned when no canonical record matches the lookup.
	ErrBetNotFound = errors.New("bet not found")

	// ErrAutoVerifiedSource is returned when an operator tries to verify a
	// record whose source is trusted automatically.
	ErrAutoVerifiedSource = errors.New("records from an automated source are verified on import")

	// ErrTooManyIDs is returned when a bulk verification exceeds MaxVerifyBatch.
	ErrTooManyIDs = errors.New("too many bet ids in one request")

	// ErrNoIDs is returned when a bulk verification carries no ids.
	ErrNoIDs = errors.New("no bet ids supplied")

	// ErrInvalidStatusFilter is returned when a query names a status that
	// cannot appear in the requested listing.
	ErrInvalidStatusFilter = errors.New("invalid status filter")
)

// Row mapping errors. These never escape a batch; they are counted in the
// BatchReport instead.
var (
	// ErrMissingField is returned when a required column is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidDate is returned when a timestamp does not match the source format.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidNumber is returned when a numeric column cannot be parsed.
	ErrInvalidNumber = errors.New("invalid number")

	// ErrUnknownStatus is returned when a status string is outside the
	// source's documented vocabulary.
	ErrUnknownStatus = errors.New("unknown status")
)

// Batch errors
var (
	// ErrUnknownSource is returned for a source name that is not a known feed.
	ErrUnknownSource = errors.New("unknown source")

	// ErrSourceConflict is returned when the store already holds records for a
	// sportsbook from the feed that is not its authority. The batch is aborted.
	ErrSourceConflict = errors.New("sportsbook already has records from another source")

	// ErrCommitFailed is returned when the batch transaction could not be
	// committed. Nothing from the batch is persisted.
	ErrCommitFailed = errors.New("batch commit failed")

	// ErrImportInProgress is returned when another import for the same source
	// holds the lock.
	ErrImportInProgress = errors.New("an import for this source is already running")

	// ErrInvalidAuthority is returned when the sportsbook authority tables
	// overlap or an alias is ambiguous.
	ErrInvalidAuthority = errors.New("invalid sportsbook authority configuration")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the token lacks the operator role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// IsNotFound returns true when err (or any error in its chain) is a domain
// "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBetNotFound)
}

// IsRowError returns true for errors that reject a single row without
// affecting the rest of the batch.
func IsRowError(err error) bool {
	rowErrors := []error{
		ErrMissingField,
		ErrInvalidDate,
		ErrInvalidNumber,
		ErrUnknownStatus,
	}
	for _, target := range rowErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
