package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanPayment records one applied payment with the exact split the allocator
// produced. Rows are append-only: a mistaken payment is corrected by a new
// compensating event, never by editing this one.
type LoanPayment struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	LoanID           string          `json:"loan_id" db:"loan_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	PrincipalApplied decimal.Decimal `json:"principal_applied" db:"principal_applied"`
	InterestApplied  decimal.Decimal `json:"interest_applied" db:"interest_applied"`
	LateFeeApplied   decimal.Decimal `json:"late_fee_applied" db:"late_fee_applied"`
	PaymentDate      time.Time       `json:"payment_date" db:"payment_date"`
	Method           string          `json:"method" db:"method"`
	RecordedBy       string          `json:"recorded_by" db:"recorded_by"`
	RemainingBalance decimal.Decimal `json:"remaining_balance" db:"remaining_balance"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
}
