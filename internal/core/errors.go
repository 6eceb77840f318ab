// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicateKey = errors.New("duplicate key")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrTokenInvalid = errors.New("token invalid")
)

// Engine error kinds. Every rejected operation leaves durable state
// untouched; these classify why the operation was rejected.
var (
	ErrInvalidParameters      = errors.New("invalid plan parameters")
	ErrNoActivePlan           = errors.New("no active plan")
	ErrPaymentsAlreadyStarted = errors.New("payments already started")
	ErrZeroAmount             = errors.New("zero amount")
	ErrNothingToReclaim       = errors.New("nothing to reclaim")
	ErrNotArmed               = errors.New("payouts not armed")
	ErrNoPaymentsRemaining    = errors.New("no payments remaining")
	ErrTooEarly               = errors.New("payout interval not elapsed")
	ErrNoFundsAvailable       = errors.New("no funds available")
	ErrRateUnavailable        = errors.New("exchange rate unavailable")
	ErrTransferFailed         = errors.New("value transfer failed")
	ErrReentrantCall          = errors.New("reentrant call")
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

func NewAppError(code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

func UnauthorizedError(message string) *AppError {
	return NewAppError("UNAUTHORIZED", message, http.StatusUnauthorized)
}

func ForbiddenError(message string) *AppError {
	return NewAppError("FORBIDDEN", message, http.StatusForbidden)
}

func DuplicateError(resource string) *AppError {
	return NewAppError(
		"DUPLICATE",
		fmt.Sprintf("%s already exists", resource),
		http.StatusConflict,
	)
}

func TokenExpiredError() *AppError {
	return NewAppError(
		"TOKEN_EXPIRED",
		"access token has expired",
		http.StatusUnauthorized,
	)
}

func TokenRevokedError() *AppError {
	return NewAppError(
		"TOKEN_REVOKED",
		"access token has been revoked",
		http.StatusUnauthorized,
	)
}

func TokenInvalidError() *AppError {
	return NewAppError(
		"TOKEN_INVALID",
		"access token is invalid",
		http.StatusUnauthorized,
	)
}

// engineErrorCodes maps engine sentinels to stable API error codes and
// HTTP statuses. Conflict (409) marks rejections caused by the record's
// current lifecycle state rather than the request's shape.
var engineErrorCodes = []struct {
	sentinel error
	code     string
	status   int
}{
	{ErrInvalidParameters, "INVALID_PARAMETERS", http.StatusBadRequest},
	{ErrNoActivePlan, "NO_ACTIVE_PLAN", http.StatusNotFound},
	{ErrPaymentsAlreadyStarted, "PAYMENTS_ALREADY_STARTED", http.StatusConflict},
	{ErrZeroAmount, "ZERO_AMOUNT", http.StatusBadRequest},
	{ErrNothingToReclaim, "NOTHING_TO_RECLAIM", http.StatusConflict},
	{ErrNotArmed, "NOT_ARMED", http.StatusConflict},
	{ErrNoPaymentsRemaining, "NO_PAYMENTS_REMAINING", http.StatusConflict},
	{ErrTooEarly, "TOO_EARLY", http.StatusConflict},
	{ErrNoFundsAvailable, "NO_FUNDS_AVAILABLE", http.StatusConflict},
	{ErrRateUnavailable, "RATE_UNAVAILABLE", http.StatusServiceUnavailable},
	{ErrTransferFailed, "TRANSFER_FAILED", http.StatusBadGateway},
	{ErrReentrantCall, "OPERATION_IN_PROGRESS", http.StatusConflict},
}

// EngineError translates an engine sentinel wrapped anywhere in err's
// chain into an AppError, or nil when err is not an engine rejection.
func EngineError(err error) *AppError {
	for _, m := range engineErrorCodes {
		if errors.Is(err, m.sentinel) {
			return NewAppError(m.code, m.sentinel.Error(), m.status)
		}
	}
	return nil
}
