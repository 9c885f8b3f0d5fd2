package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrValidation             = errors.New("validation failed")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrOverpayment            = errors.New("payment amount exceeds outstanding balance")
	ErrScheduleIntegrity      = errors.New("schedule integrity violation")
	ErrLoanNotFound           = errors.New("loan not found")
	ErrLoanAlreadyExists      = errors.New("loan already exists")
	ErrInvalidPaymentAmount   = errors.New("invalid payment amount")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeInvalidStateTransition = "INVALID_STATE_TRANSITION"
	ErrCodeOverpayment            = "OVERPAYMENT"
	ErrCodeScheduleIntegrity      = "SCHEDULE_INTEGRITY"
	ErrCodeLoanNotFound           = "LOAN_NOT_FOUND"
	ErrCodeLoanAlreadyExists      = "LOAN_ALREADY_EXISTS"
	ErrCodeInvalidPaymentAmount   = "INVALID_PAYMENT_AMOUNT"
	ErrCodeDatabaseError          = "DATABASE_ERROR"
	ErrCodeCacheError             = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapValidation(message string) *BusinessError {
	return NewBusinessError(
		ErrCodeValidation,
		message,
		ErrValidation,
	)
}

func WrapInvalidStateTransition(loanID, currentStatus, event string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidStateTransition,
		fmt.Sprintf("Loan %s cannot %s while %s", loanID, event, currentStatus),
		ErrInvalidStateTransition,
	)
}

func WrapOverpayment(loanID, amount, outstanding string) *BusinessError {
	return NewBusinessError(
		ErrCodeOverpayment,
		fmt.Sprintf("Payment of %s on loan %s exceeds outstanding balance %s", amount, loanID, outstanding),
		ErrOverpayment,
	)
}

func WrapScheduleIntegrity(loanID, detail string) *BusinessError {
	return NewBusinessError(
		ErrCodeScheduleIntegrity,
		fmt.Sprintf("Loan %s schedule is inconsistent: %s", loanID, detail),
		ErrScheduleIntegrity,
	)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapLoanAlreadyExists(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanAlreadyExists,
		fmt.Sprintf("Loan with ID %s already exists", loanID),
		ErrLoanAlreadyExists,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"cache operation failed",
		err,
	)
}
