package errors

import (
	"errors"
	"net/http"
)

// Domain errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnknownEvent      = errors.New("unknown event type")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrChainUnavailable  = errors.New("chain unavailable")
	ErrProfileNotOnChain = errors.New("profile does not exist on chain")
	ErrSyncInProgress    = errors.New("sync already in progress")
)

const (
	CodeInvalidInput     = "INVALID_INPUT"
	CodeUnknownEvent     = "UNKNOWN_EVENT"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeConflict         = "CONFLICT"
	CodeChainUnavailable = "CHAIN_UNAVAILABLE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// AppError represents application error with HTTP status
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new app error
func NewAppError(status int, code, message string, err error) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, CodeNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeInvalidInput, message, ErrInvalidInput)
}

func Unauthorized(message string) *AppError {
	return NewAppError(http.StatusUnauthorized, CodeUnauthorized, message, ErrUnauthorized)
}

func Conflict(message string) *AppError {
	return NewAppError(http.StatusConflict, CodeConflict, message, ErrSyncInProgress)
}

func ServiceUnavailable(message string, err error) *AppError {
	return NewAppError(http.StatusServiceUnavailable, CodeChainUnavailable, message, err)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternalError, "internal server error", err)
}

// FromError maps wrapped domain errors onto an AppError. Input errors keep
// their message so callers can see which field was rejected.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, ErrUnknownEvent):
		return NewAppError(http.StatusBadRequest, CodeUnknownEvent, err.Error(), err)
	case errors.Is(err, ErrInvalidInput):
		return NewAppError(http.StatusBadRequest, CodeInvalidInput, err.Error(), err)
	case errors.Is(err, ErrProfileNotOnChain):
		return NewAppError(http.StatusNotFound, CodeNotFound, ErrProfileNotOnChain.Error(), err)
	case errors.Is(err, ErrNotFound):
		return NewAppError(http.StatusNotFound, CodeNotFound, ErrNotFound.Error(), err)
	case errors.Is(err, ErrUnauthorized):
		return NewAppError(http.StatusUnauthorized, CodeUnauthorized, ErrUnauthorized.Error(), err)
	case errors.Is(err, ErrSyncInProgress):
		return NewAppError(http.StatusConflict, CodeConflict, ErrSyncInProgress.Error(), err)
	case errors.Is(err, ErrChainUnavailable):
		return ServiceUnavailable("chain unavailable, retry later", err)
	default:
		return InternalError(err)
	}
}
