package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tiendapos/lending-engine/internal/domain"
	customError "github.com/tiendapos/lending-engine/pkg/errors"
	"github.com/tiendapos/lending-engine/pkg/utils"
)

// AllocatePayment applies a payment against the loan's ledger and appends the
// resulting LoanPayment record. Allocation order is a business rule, not an
// accident: accrued late fees are consumed first, then interest and principal
// of the earliest unsettled entry, cascading to later entries in sequence
// order when the payment covers more than one installment.
//
// The loan must have current late fees when this runs; the lifecycle calls
// EvaluateOverdue immediately before allocating.
func AllocatePayment(loan *domain.Loan, amount decimal.Decimal, date time.Time, method, recordedBy string) (*domain.LoanPayment, error) {
	if !amount.IsPositive() {
		return nil, customError.WrapInvalidPaymentAmount(amount.String())
	}
	if amount.Sub(loan.RemainingBalance).GreaterThan(utils.CentTolerance) {
		return nil, customError.WrapOverpayment(loan.LoanID, amount.String(), loan.RemainingBalance.String())
	}

	remaining := amount

	// 1. Late fees.
	feeApplied := decimal.Min(remaining, loan.LateFees)
	loan.LateFees = loan.LateFees.Sub(feeApplied)
	remaining = remaining.Sub(feeApplied)

	// 2. Interest then principal, earliest entry first.
	interestApplied := decimal.Zero
	principalApplied := decimal.Zero

	for _, entry := range loan.Schedule {
		if remaining.IsZero() {
			break
		}
		if entry.IsSettled() {
			continue
		}

		toInterest := decimal.Min(remaining, entry.InterestOutstanding())
		remaining = remaining.Sub(toInterest)

		toPrincipal := decimal.Min(remaining, entry.PrincipalOutstanding())
		remaining = remaining.Sub(toPrincipal)

		applied := toInterest.Add(toPrincipal)
		if applied.IsZero() {
			continue
		}

		entry.AmountPaid = entry.AmountPaid.Add(applied)
		if utils.CoversWithinTolerance(entry.AmountPaid, entry.ScheduledPayment) {
			entry.Status = domain.EntryStatusPaid
			paidDate := date
			entry.PaidDate = &paidDate
		} else {
			entry.Status = domain.EntryStatusPartial
		}

		interestApplied = interestApplied.Add(toInterest)
		principalApplied = principalApplied.Add(toPrincipal)
	}

	// The overpayment check above guarantees the schedule can absorb the
	// whole amount; leftover beyond rounding tolerance means the entries
	// and the loan totals disagree.
	if remaining.GreaterThan(utils.CentTolerance) {
		return nil, customError.WrapScheduleIntegrity(loan.LoanID,
			"payment could not be fully allocated against the schedule")
	}

	loan.PaidAmount = loan.PaidAmount.Add(amount)
	loan.RemainingBalance = outstandingBalance(loan)
	if utils.IsSettled(loan.RemainingBalance) {
		loan.RemainingBalance = decimal.Zero
	}
	loan.UpdatedAt = date

	payment := &domain.LoanPayment{
		ID:               uuid.New(),
		LoanID:           loan.LoanID,
		Amount:           amount,
		PrincipalApplied: principalApplied,
		InterestApplied:  interestApplied,
		LateFeeApplied:   feeApplied,
		PaymentDate:      date,
		Method:           method,
		RecordedBy:       recordedBy,
		RemainingBalance: loan.RemainingBalance,
		CreatedAt:        date,
	}
	loan.Payments = append(loan.Payments, payment)

	advanceNextPaymentDate(loan)

	return payment, nil
}

// advanceNextPaymentDate points the loan at the earliest entry that still
// needs money. Nil once every installment is settled.
func advanceNextPaymentDate(loan *domain.Loan) {
	for _, entry := range loan.Schedule {
		if !entry.IsSettled() {
			due := entry.DueDate
			loan.NextPaymentDate = &due
			return
		}
	}
	loan.NextPaymentDate = nil
}
