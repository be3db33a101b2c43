package dto

import "net/http"

// Error codes recognized across the API. These are the domain error
// codes surfaced as-is in response envelopes.
const (
	ErrCodeUnknown             = "UNKNOWN_ERROR"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeUnauthorizedAction  = "UNAUTHORIZED_ACTION"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeStorage             = "STORAGE_ERROR"
	ErrCodeUnknownAction       = "UNKNOWN_ACTION"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:             http.StatusInternalServerError,
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeUnauthenticated:     http.StatusUnauthorized,
	ErrCodeUnauthorizedAction:  http.StatusForbidden,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeStorage:             http.StatusInternalServerError,
	ErrCodeUnknownAction:       http.StatusBadRequest,

	// User aggregate validation codes
	"INVALID_EMAIL":       http.StatusBadRequest,
	"INVALID_NAME":        http.StatusBadRequest,
	"INVALID_ROLE":        http.StatusBadRequest,
	"INVALID_PASSWORD":    http.StatusBadRequest,
	"PASSWORD_HASH_ERROR": http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500 so that a new domain code never silently
// turns into a success.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
