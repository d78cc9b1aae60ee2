// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. The constants form a stable, machine-readable taxonomy that
// supplements the human-readable messages in ErrorResponse.
//
// Conventions:
//   - Codes are lowercase snake_case.
//   - Generic codes mirror common HTTP status semantics.
//   - Domain-specific codes (create_failed, reveal_mismatch, ...) are
//     reserved for business outcomes that a status alone cannot convey.
//
// Handlers select the most specific matching code and pass it to fail()
// along with the corresponding status and message; clients branch on the
// code for programmatic handling.
package handlers

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeCreateFailed     = "create_failed"
	ErrCodeListFailed       = "list_failed"
	ErrCodeDeleteFailed     = "delete_failed"
	ErrCodeRevealMismatch   = "reveal_mismatch"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
