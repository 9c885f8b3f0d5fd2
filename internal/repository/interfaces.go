package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tiendapos/lending-engine/internal/domain"
)

// LoanRepository defines the interface for loan aggregate persistence
type LoanRepository interface {
	// Create inserts a new loan row
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByLoanID retrieves a loan row by its business ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// Update writes back the loan-level balances, dates and status
	Update(ctx context.Context, loan *domain.Loan) error

	// CreateSchedule inserts the amortization entries for a new loan
	CreateSchedule(ctx context.Context, entries []*domain.AmortizationEntry) error

	// GetScheduleByLoanID retrieves the amortization entries ordered by sequence
	GetScheduleByLoanID(ctx context.Context, loanID string) ([]*domain.AmortizationEntry, error)

	// SaveSnapshot persists a post-operation aggregate in one transaction:
	// the loan row, every changed schedule entry and, when not nil, the
	// appended payment record
	SaveSnapshot(ctx context.Context, loan *domain.Loan, payment *domain.LoanPayment) error

	// ListActiveLoanIDs returns the business IDs of all active loans,
	// used by the overdue scheduler
	ListActiveLoanIDs(ctx context.Context) ([]string, error)

	// GetOverdueEntries gets unsettled entries past their due date
	GetOverdueEntries(ctx context.Context, loanID string, now time.Time) ([]*domain.AmortizationEntry, error)
}

// PaymentRepository defines the interface for payment history persistence.
// Payments are append-only; there is deliberately no update or delete.
type PaymentRepository interface {
	// Create appends a new payment record
	Create(ctx context.Context, payment *domain.LoanPayment) error

	// GetByLoanID retrieves all payments for a loan in recording order
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.LoanPayment, error)

	// GetTotalPaid sums the recorded payments for a loan
	GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error)
}
