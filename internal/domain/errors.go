package domain

import "fmt"

// AppError is the base domain error type.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Cause   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// Standard domain error constructors.

func ErrInvalidAmount(msg string) *AppError {
	return &AppError{Code: "INVALID_AMOUNT", Message: msg, Status: 400}
}

func ErrDailyLimit(capTokens, remaining int64) *AppError {
	return &AppError{
		Code:    "DAILY_LIMIT",
		Message: fmt.Sprintf("daily deposit cap is %d tokens, %d remaining today", capTokens, remaining),
		Status:  400,
	}
}

func ErrInsufficient() *AppError {
	return &AppError{Code: "INSUFFICIENT", Message: "insufficient balance", Status: 400}
}

func ErrNoRefundableFunds() *AppError {
	return &AppError{Code: "NO_REFUNDABLE_FUNDS", Message: "no refundable deposits within the refund window", Status: 400}
}

// ErrDuplicate signals a (kind, external_id) collision. Wallet operations
// treat it as success and return the original entry; it never reaches HTTP.
func ErrDuplicate(externalID string) *AppError {
	return &AppError{Code: "DUPLICATE", Message: fmt.Sprintf("ledger entry already exists for %s", externalID), Status: 200}
}

func ErrInvalidSignature(msg string) *AppError {
	return &AppError{Code: "INVALID_SIGNATURE", Message: msg, Status: 400}
}

func ErrWalletBusy() *AppError {
	return &AppError{Code: "WALLET_BUSY", Message: "wallet is busy, retry shortly", Status: 503}
}

func ErrDisabled(feature string) *AppError {
	return &AppError{Code: "DISABLED", Message: fmt.Sprintf("%s is currently disabled", feature), Status: 503}
}

func ErrProcessor(msg string, cause error) *AppError {
	return &AppError{Code: "PROCESSOR_ERROR", Message: msg, Status: 502, Cause: cause}
}

func ErrNotFound(entity, id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: fmt.Sprintf("%s %s not found", entity, id), Status: 404}
}

func ErrStateConflict(msg string) *AppError {
	return &AppError{Code: "STATE_CONFLICT", Message: msg, Status: 409}
}

func ErrValidation(msg string) *AppError {
	return &AppError{Code: "VALIDATION_ERROR", Message: msg, Status: 400}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: msg, Status: 401}
}

func ErrForbidden(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Message: msg, Status: 403}
}

func ErrInternal(msg string, cause error) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: msg, Status: 500, Cause: cause}
}
