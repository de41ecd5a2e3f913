package errors

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
)

type ErrorType string

const (
	ErrNotFound            ErrorType = "ENTRY_NOT_FOUND_ERROR"
	ErrValidation          ErrorType = "VALIDATION_ERROR"
	ErrPaymentRequired     ErrorType = "PAYMENT_REQUIRED"
	ErrOnChain             ErrorType = "ON_CHAIN_ERROR"
	ErrUpstreamUnavailable ErrorType = "UPSTREAM_UNAVAILABLE"
	ErrRateLimited         ErrorType = "RATE_LIMITED"
	ErrFailedDependency    ErrorType = "FAILED_DEPENDENCY"
	ErrFatal               ErrorType = "FATAL_ERROR"
	ErrNotImplemented      ErrorType = "NOT_IMPLEMENTED_ERROR"
)

type AppError struct {
	Code        int       `json:"-"`
	Type        ErrorType `json:"type"`
	Message     string    `json:"message"`
	Internal    string    `json:"internal,omitempty"`
	Remediation []string  `json:"remediation,omitempty"`
	Data        any       `json:"data,omitempty"`
}

func (a AppError) Error() string {
	return fmt.Sprintf("%s: %s", a.Type, a.Message)
}

func (a AppError) Serialize(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(a.Code)
	if err := json.NewEncoder(w).Encode(map[string]any{"success": false, "error": a}); err != nil {
		panic(a)
	}
}

// WithRemediation returns a copy of the error carrying extra human-readable steps.
func (a AppError) WithRemediation(steps ...string) AppError {
	a.Remediation = append(append([]string{}, a.Remediation...), steps...)
	return a
}

func (a AppError) WithData(data any) AppError {
	a.Data = data
	return a
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func New(msg string) error {
	return errors.New(msg)
}

func HandleDataDBError(err error) AppError {
	if Is(err, sql.ErrNoRows) || Is(err, redis.Nil) {
		return NewNotFoundError("resource not found")
	}
	return NewFatalError(err)
}

func HandleTxDBError(err error) AppError {
	return NewFailedDependencyError("payment ledger unavailable").withInternal(err)
}

func HandleBindError(err error) AppError {
	if errors.As(err, &AppError{}) {
		return AsAppError(err)
	}

	if v, ok := err.(validator.ValidationErrors); ok {
		var message string
		switch v[0].ActualTag() {
		case "required":
			message = fmt.Sprintf("%s is required", v[0].Field())
		case "required_without":
			message = fmt.Sprintf("%s is required when %s is not provided", v[0].Field(), v[0].Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of values: (%s), value received: %v", v[0].Field(), v[0].Param(), v[0].Value())
		case "gt":
			message = fmt.Sprintf("%s must be greater than (%s), value received: %v", v[0].Field(), v[0].Param(), v[0].Value())
		case "eth_addr":
			message = fmt.Sprintf("%s must be a valid EVM address, value received: %v", v[0].Field(), v[0].Value())
		default:
			message = fmt.Sprintf("Validation failed on field { %s }, Condition: %s", v[0].Field(), v[0].ActualTag())
			if v[0].Param() != "" {
				message += fmt.Sprintf("{ %s }", v[0].Param())
			}
			if v[0].Value() != "" && v[0].Value() != nil {
				message += fmt.Sprintf(", Value Received: %v", v[0].Value())
			}
		}

		return AppError{
			Code:     http.StatusBadRequest,
			Type:     ErrValidation,
			Message:  message,
			Internal: err.Error(),
		}
	}
	if Is(err, io.EOF) {
		return NewValidationError("No request body")
	}

	vErr := NewValidationError("invalid request received")
	vErr.Internal = err.Error()

	return vErr
}

func (a AppError) withInternal(err error) AppError {
	if err != nil {
		a.Internal = err.Error()
	}
	return a
}

func NewValidationError(msg string) AppError {
	return AppError{
		Code:    http.StatusBadRequest,
		Type:    ErrValidation,
		Message: msg,
	}
}

func NewNotFoundError(msg string) AppError {
	return AppError{
		Code:    http.StatusNotFound,
		Type:    ErrNotFound,
		Message: msg,
	}
}

// NewPaymentRequiredError carries the payment instructions the caller has to fulfil.
func NewPaymentRequiredError(msg string, payment any) AppError {
	return AppError{
		Code:    http.StatusPaymentRequired,
		Type:    ErrPaymentRequired,
		Message: msg,
		Data:    payment,
	}
}

func NewOnChainError(msg string, err error) AppError {
	return AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    ErrOnChain,
		Message: msg,
	}.withInternal(err)
}

func NewUpstreamError(upstream string, err error) AppError {
	return AppError{
		Code:    http.StatusServiceUnavailable,
		Type:    ErrUpstreamUnavailable,
		Message: fmt.Sprintf("%s is currently unavailable", upstream),
	}.withInternal(err)
}

func NewRateLimitError() AppError {
	return AppError{
		Code:    http.StatusTooManyRequests,
		Type:    ErrRateLimited,
		Message: "too many requests, slow down",
	}
}

func NewFatalError(err error) AppError {
	return AppError{
		Code:     http.StatusInternalServerError,
		Type:     ErrFatal,
		Message:  "Oops! something happened on our end.",
		Internal: err.Error(),
	}
}

func NewUnknownError(err any) AppError {
	return NewFatalError(fmt.Errorf("%v", err))
}

func NewFailedDependencyError(msg string) AppError {
	return AppError{
		Code:    http.StatusFailedDependency,
		Type:    ErrFailedDependency,
		Message: msg,
	}
}

func NewImplementationError() AppError {
	return AppError{
		Code:    http.StatusNotImplemented,
		Type:    ErrNotImplemented,
		Message: "functionality not implemented requires additional information",
	}
}

func AsAppError(err error) AppError {
	apperr := new(AppError)
	if errors.As(err, apperr) {
		return *apperr
	}
	return NewFatalError(err)
}
