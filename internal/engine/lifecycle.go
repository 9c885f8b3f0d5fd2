package engine

import (
	"time"

	"github.com/tiendapos/lending-engine/internal/domain"
	customError "github.com/tiendapos/lending-engine/pkg/errors"
)

// Policy holds the business policy knobs the lifecycle needs.
type Policy struct {
	// DefaultAfterDays is the days-overdue threshold past which an active
	// loan is escalated to defaulted.
	DefaultAfterDays int
}

// Lifecycle enforces the loan state machine:
//
//	pending -> active -> completed
//	pending -> active -> defaulted
//	pending -> cancelled
//
// completed, defaulted and cancelled are terminal. Every operation takes a
// loan snapshot and returns a new one; on error the input is returned
// untouched, so callers get all-or-nothing semantics.
type Lifecycle struct {
	policy Policy
}

func NewLifecycle(policy Policy) *Lifecycle {
	return &Lifecycle{policy: policy}
}

// Disburse activates a pending loan: terms are locked and the end and
// next-payment dates are stamped from the built schedule.
func (lc *Lifecycle) Disburse(loan *domain.Loan, now time.Time) (*domain.Loan, error) {
	if loan.Status != domain.LoanStatusPending {
		return loan, customError.WrapInvalidStateTransition(loan.LoanID, loan.Status, "disburse")
	}
	if err := VerifySchedule(loan); err != nil {
		return loan, err
	}

	next := loan.Clone()
	next.Status = domain.LoanStatusActive

	first := next.Schedule[0].DueDate
	last := next.Schedule[len(next.Schedule)-1].DueDate
	next.NextPaymentDate = &first
	next.EndDate = &last
	next.UpdatedAt = now

	return next, nil
}

// Cancel voids a loan that was never disbursed.
func (lc *Lifecycle) Cancel(loan *domain.Loan, now time.Time) (*domain.Loan, error) {
	if loan.Status != domain.LoanStatusPending {
		return loan, customError.WrapInvalidStateTransition(loan.LoanID, loan.Status, "cancel")
	}

	next := loan.Clone()
	next.Status = domain.LoanStatusCancelled
	next.UpdatedAt = now

	return next, nil
}

// RecordPayment settles accrued late fees as of the payment date, then
// allocates the payment across the schedule. A payment that clears the
// balance completes the loan.
func (lc *Lifecycle) RecordPayment(loan *domain.Loan, req *domain.RecordPaymentRequest) (*domain.Loan, *domain.LoanPayment, error) {
	if loan.Status != domain.LoanStatusActive {
		return loan, nil, customError.WrapInvalidStateTransition(loan.LoanID, loan.Status, "record a payment")
	}

	next := loan.Clone()

	// Fees owed must be current at the moment the payment lands.
	EvaluateOverdue(next, req.Date)

	payment, err := AllocatePayment(next, req.Amount, req.Date, req.Method, req.RecordedBy)
	if err != nil {
		return loan, nil, err
	}

	if next.RemainingBalance.IsZero() {
		next.Status = domain.LoanStatusCompleted
	}

	return next, payment, nil
}

// EvaluateOverdue refreshes overdue status and late fees as of 'now' and
// escalates to defaulted once the policy threshold is crossed.
func (lc *Lifecycle) EvaluateOverdue(loan *domain.Loan, now time.Time) (*domain.Loan, error) {
	if loan.Status != domain.LoanStatusActive {
		return loan, customError.WrapInvalidStateTransition(loan.LoanID, loan.Status, "evaluate overdue status")
	}

	next := loan.Clone()
	EvaluateOverdue(next, now)

	if lc.policy.DefaultAfterDays > 0 && next.DaysOverdue >= lc.policy.DefaultAfterDays {
		next.Status = domain.LoanStatusDefaulted
	}

	return next, nil
}
