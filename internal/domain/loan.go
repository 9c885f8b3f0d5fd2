package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusPending   = "pending"
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	LoanStatusDefaulted = "defaulted"
	LoanStatusCancelled = "cancelled"
)

// Loan is the aggregate root for a consumer loan. It owns its amortization
// schedule and payment history exclusively; nothing else mutates them.
//
// Balance invariant: RemainingBalance is what the unsettled schedule entries
// still owe plus accrued, unpaid late fees, never negative, kept at two
// decimal places. PaidAmount is the cumulative payment total and only grows.
type Loan struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	LoanID           string          `json:"loan_id" db:"loan_id"`
	CustomerID       string          `json:"customer_id" db:"customer_id"`
	Principal        decimal.Decimal `json:"principal" db:"principal"`
	AnnualRate       decimal.Decimal `json:"annual_rate" db:"annual_rate"` // percent, e.g. 12 = 12% APR
	TermMonths       int             `json:"term_months" db:"term_months"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment" db:"monthly_payment"`
	TotalAmount      decimal.Decimal `json:"total_amount" db:"total_amount"` // principal + total interest
	PaidAmount       decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	LateFeeRate      decimal.Decimal `json:"late_fee_rate" db:"late_fee_rate"` // annual percent on overdue balances
	LateFees         decimal.Decimal `json:"late_fees" db:"late_fees"`         // accrued, not yet paid
	DaysOverdue      int             `json:"days_overdue" db:"days_overdue"`
	Status           string          `json:"status" db:"status"`
	StartDate        time.Time       `json:"start_date" db:"start_date"`
	EndDate          *time.Time      `json:"end_date,omitempty" db:"end_date"`
	NextPaymentDate  *time.Time      `json:"next_payment_date,omitempty" db:"next_payment_date"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`

	Schedule []*AmortizationEntry `json:"schedule" db:"-"`
	Payments []*LoanPayment       `json:"payments" db:"-"`
}

// IsTerminal reports whether the loan has reached a final state and may no
// longer be mutated.
func (l *Loan) IsTerminal() bool {
	switch l.Status {
	case LoanStatusCompleted, LoanStatusDefaulted, LoanStatusCancelled:
		return true
	}
	return false
}

// Clone returns a deep copy of the aggregate. Lifecycle operations work on a
// clone and commit it back only on success, so a failed operation never leaves
// the caller's snapshot half-mutated.
func (l *Loan) Clone() *Loan {
	cp := *l
	if l.EndDate != nil {
		d := *l.EndDate
		cp.EndDate = &d
	}
	if l.NextPaymentDate != nil {
		d := *l.NextPaymentDate
		cp.NextPaymentDate = &d
	}
	cp.Schedule = make([]*AmortizationEntry, len(l.Schedule))
	for i, e := range l.Schedule {
		ec := *e
		if e.PaidDate != nil {
			d := *e.PaidDate
			ec.PaidDate = &d
		}
		if e.FeeAccruedThrough != nil {
			d := *e.FeeAccruedThrough
			ec.FeeAccruedThrough = &d
		}
		cp.Schedule[i] = &ec
	}
	cp.Payments = make([]*LoanPayment, len(l.Payments))
	for i, p := range l.Payments {
		pc := *p
		cp.Payments[i] = &pc
	}
	return &cp
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LoanID     string          `json:"loan_id" validate:"required"`
	CustomerID string          `json:"customer_id" validate:"required"`
	Principal  decimal.Decimal `json:"principal" validate:"required"`
	AnnualRate decimal.Decimal `json:"annual_rate"`
	TermMonths int             `json:"term_months" validate:"required,gte=1"`
	StartDate  time.Time       `json:"start_date" validate:"required"`

	// LateFeeRate is the annual moratory rate in percent. Nil means the
	// configured default applies; an explicit zero makes the loan fee-free.
	LateFeeRate *decimal.Decimal `json:"late_fee_rate,omitempty"`
}

type RecordPaymentRequest struct {
	Amount     decimal.Decimal `json:"amount" validate:"required"`
	Date       time.Time       `json:"date"`
	Method     string          `json:"method" validate:"required"`
	RecordedBy string          `json:"recorded_by" validate:"required"`
}

type CreateLoanResponse struct {
	Loan     *Loan                `json:"loan"`
	Schedule []*AmortizationEntry `json:"schedule"`
}

type OutstandingResponse struct {
	LoanID      string          `json:"loan_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
	LateFees    decimal.Decimal `json:"late_fees"`
	DaysOverdue int             `json:"days_overdue"`
}

type ScheduleResponse struct {
	LoanID   string               `json:"loan_id"`
	Schedule []*AmortizationEntry `json:"schedule"`
}
