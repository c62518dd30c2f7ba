package dto

import (
	"net/http"
	"strings"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
	// ErrCodeValidationLength is used when a field length is invalid
	ErrCodeValidationLength = "ERR_VALIDATION_LENGTH"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeInsufficientStock is used when stock is insufficient
	ErrCodeInsufficientStock = "ERR_INSUFFICIENT_STOCK"
	// ErrCodePlanLimit is used when an operation exceeds the plan's quota
	ErrCodePlanLimit = "ERR_PLAN_LIMIT"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
	// ErrCodeTooManyRequests is an alias for rate limiting
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:      http.StatusUnprocessableEntity,
	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,

	// Plan quota errors -> 402 Payment Required
	ErrCodePlanLimit: http.StatusPaymentRequired,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes that don't follow one of
// the recognized suffix patterns to standardized API codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":              ErrCodeNotFound,
	"ALREADY_EXISTS":         ErrCodeAlreadyExists,
	"INVALID_INPUT":          ErrCodeInvalidInput,
	"INVALID_STATE":          ErrCodeInvalidState,
	"UNAUTHORIZED":           ErrCodeUnauthorized,
	"FORBIDDEN":              ErrCodeForbidden,
	"CONCURRENCY_CONFLICT":   ErrCodeConcurrencyConflict,
	"OPTIMISTIC_LOCK_ERROR":  ErrCodeConcurrencyConflict,
	"INSUFFICIENT_STOCK":     ErrCodeInsufficientStock,
	"RESERVED_EXCEEDS_STOCK": ErrCodeInsufficientStock,
	"VALIDATION_ERROR":       ErrCodeValidation,
	"BAD_REQUEST":            ErrCodeBadRequest,
	"INTERNAL_ERROR":         ErrCodeInternal,

	// Authentication
	"INVALID_CREDENTIALS": ErrCodeUnauthorized,
	"TOKEN_EXPIRED":       ErrCodeTokenExpired,
	"TOKEN_INVALID":       ErrCodeTokenInvalid,
	"TOKEN_REVOKED":       ErrCodeTokenInvalid,
	"TOKEN_MAX_REFRESH":   ErrCodeTokenInvalid,
	"TOKEN_ERROR":         ErrCodeUnauthorized,
	"ACCOUNT_LOCKED":      ErrCodeForbidden,
	"ACCOUNT_INACTIVE":    ErrCodeForbidden,
	"ACCOUNT_DEACTIVATED": ErrCodeForbidden,
	"ORG_SUSPENDED":       ErrCodeForbidden,

	// Plan quotas
	"PLAN_LIMIT_REACHED": ErrCodePlanLimit,

	// Business rules that don't match a suffix pattern
	"LAST_ADMIN":           ErrCodeBusinessRule,
	"CANNOT_DELETE":        ErrCodeBusinessRule,
	"CANNOT_DEACTIVATE":    ErrCodeBusinessRule,
	"CANNOT_ACTIVATE":      ErrCodeBusinessRule,
	"CATEGORY_IN_USE":      ErrCodeBusinessRule,
	"SYNC_ALREADY_PENDING": ErrCodeConflict,
	"DUPLICATE_EVENT":      ErrCodeConflict,
	"NOT_DEACTIVATED":      ErrCodeInvalidState,
	"IMPORT_FAILED":        ErrCodeBusinessRule,
	"INSUFFICIENT_DATA":    ErrCodeBusinessRule,
	"SUBSCRIPTION_CANCELED": ErrCodeInvalidState,
	"BILLING_UNAVAILABLE":   ErrCodeInternal,
	"EVALUATION_ERROR":      ErrCodeInternal,
	"PASSWORD_HASH_ERROR":   ErrCodeInternal,
	"WEAK_PASSWORD":         ErrCodeValidation,
	"FILE_TOO_LARGE":        ErrCodeValidation,
	"UNKNOWN_PLAN":          ErrCodeInvalidInput,
	"MISSING_BEFORE":        ErrCodeInvalidInput,
	"RATE_LIMIT_EXCEEDED":   ErrCodeRateLimited,
}

// NormalizeErrorCode converts a domain error code to the standardized API
// format. Codes follow naming conventions (FOO_NOT_FOUND, INVALID_FOO,
// FOO_TAKEN, ALREADY_FOO), so unmapped codes are classified by pattern;
// anything unrecognized passes through as-is and maps to a 500.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	switch {
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return ErrCodeNotFound
	case strings.HasSuffix(code, "_TAKEN"), strings.HasSuffix(code, "_EXISTS"):
		return ErrCodeAlreadyExists
	case strings.HasPrefix(code, "INVALID_"):
		return ErrCodeInvalidInput
	case strings.HasPrefix(code, "ALREADY_"):
		return ErrCodeInvalidState
	}
	return code
}
