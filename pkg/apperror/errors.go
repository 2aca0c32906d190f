package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger (LED) ----

func ErrInvalidAmount(err error) *AppError {
	return Wrap("LED_001", "Amount must be a positive whole number of minor units", http.StatusBadRequest, err)
}

func ErrSelfReferential(err error) *AppError {
	return Wrap("LED_002", "Source and destination must be different wallets", http.StatusUnprocessableEntity, err)
}

func ErrInsufficientFunds(err error) *AppError {
	return Wrap("LED_003", "Insufficient balance in wallet", http.StatusPaymentRequired, err)
}

func ErrWalletNotFound(err error) *AppError {
	return Wrap("LED_004", "Wallet not found", http.StatusNotFound, err)
}

func ErrCurrencyMismatch(err error) *AppError {
	return Wrap("LED_005", "Wallets hold different currencies", http.StatusUnprocessableEntity, err)
}

// ErrBusy is returned once optimistic retries are exhausted. Clients may retry.
func ErrBusy(err error) *AppError {
	return Wrap("LED_006", "Wallet is busy, please retry", http.StatusServiceUnavailable, err)
}

func ErrReferenceMismatch(err error) *AppError {
	return Wrap("LED_007", "Confirmation id was already used for a different funding", http.StatusConflict, err)
}

func ErrTransactionNotFound(err error) *AppError {
	return Wrap("LED_008", "Transaction not found", http.StatusNotFound, err)
}

func ErrBalanceOverflow(err error) *AppError {
	return Wrap("LED_009", "Credit exceeds the maximum wallet balance", http.StatusUnprocessableEntity, err)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_002", "Not allowed to access this resource", http.StatusForbidden)
}

// ---- Gateway (GW) ----

func ErrGatewayDeclined(err error) *AppError {
	return Wrap("GW_001", "Payment method was declined", http.StatusPaymentRequired, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a 400 error for malformed requests.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}
