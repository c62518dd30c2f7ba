package shared

import "errors"

// DomainError is an error with a stable machine-readable code. The interface
// layer maps codes to HTTP statuses; the message is safe to show to clients.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code, so errors.Is works against the sentinels
// below even when the error was built elsewhere with the same code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Sentinel errors shared across bounded contexts.
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrRateLimited         = NewDomainError("RATE_LIMIT_EXCEEDED", "Too many requests")
	ErrPlanLimitReached    = NewDomainError("PLAN_LIMIT_REACHED", "Subscription plan limit reached")
	ErrDuplicateEvent      = NewDomainError("DUPLICATE_EVENT", "Event has already been processed")
)
