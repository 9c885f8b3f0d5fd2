package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EntryStatusPending = "pending"
	EntryStatusPaid    = "paid"
	EntryStatusPartial = "partial"
	EntryStatusOverdue = "overdue"
)

// AmortizationEntry is one scheduled installment. The financial columns are
// fixed once the schedule is built; only Status, AmountPaid, PaidDate and the
// fee accrual watermark change afterwards, and only through the engine.
type AmortizationEntry struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	LoanID           string          `json:"loan_id" db:"loan_id"`
	Sequence         int             `json:"sequence" db:"sequence"`
	DueDate          time.Time       `json:"due_date" db:"due_date"`
	BeginningBalance decimal.Decimal `json:"beginning_balance" db:"beginning_balance"`
	ScheduledPayment decimal.Decimal `json:"scheduled_payment" db:"scheduled_payment"`
	PrincipalPortion decimal.Decimal `json:"principal_portion" db:"principal_portion"`
	InterestPortion  decimal.Decimal `json:"interest_portion" db:"interest_portion"`
	EndingBalance    decimal.Decimal `json:"ending_balance" db:"ending_balance"`
	Status           string          `json:"status" db:"status"`
	AmountPaid       decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	PaidDate         *time.Time      `json:"paid_date,omitempty" db:"paid_date"`

	// FeeAccruedThrough marks the date up to which late fees have been
	// accrued for this entry, so repeated evaluations never double-charge.
	FeeAccruedThrough *time.Time `json:"fee_accrued_through,omitempty" db:"fee_accrued_through"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Outstanding returns the unpaid portion of the scheduled payment.
func (e *AmortizationEntry) Outstanding() decimal.Decimal {
	out := e.ScheduledPayment.Sub(e.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// InterestOutstanding returns the unpaid interest of this entry. Payments
// consume interest before principal, so whatever AmountPaid has covered so
// far is counted against interest first.
func (e *AmortizationEntry) InterestOutstanding() decimal.Decimal {
	out := e.InterestPortion.Sub(e.AmountPaid)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// PrincipalOutstanding returns the unpaid principal of this entry.
func (e *AmortizationEntry) PrincipalOutstanding() decimal.Decimal {
	return e.Outstanding().Sub(e.InterestOutstanding())
}

// IsSettled reports whether the entry has been fully paid.
func (e *AmortizationEntry) IsSettled() bool {
	return e.Status == EntryStatusPaid
}
