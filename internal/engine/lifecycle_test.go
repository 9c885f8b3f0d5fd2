package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiendapos/lending-engine/internal/domain"
	customError "github.com/tiendapos/lending-engine/pkg/errors"
)

func newTestLifecycle() *Lifecycle {
	return NewLifecycle(Policy{DefaultAfterDays: 90})
}

func pendingLoan(t *testing.T) *domain.Loan {
	t.Helper()
	loan, err := BuildSchedule(buildRequest("1200", "0", 12))
	require.NoError(t, err)
	return loan
}

func activeLoan(t *testing.T) *domain.Loan {
	t.Helper()
	lc := newTestLifecycle()
	loan, err := lc.Disburse(pendingLoan(t), time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return loan
}

func paymentRequest(amount int64, date time.Time) *domain.RecordPaymentRequest {
	return &domain.RecordPaymentRequest{
		Amount:     decimal.NewFromInt(amount),
		Date:       date,
		Method:     "cash",
		RecordedBy: "cashier-7",
	}
}

func TestDisburse_ActivatesPendingLoan(t *testing.T) {
	lc := newTestLifecycle()
	loan := pendingLoan(t)

	active, err := lc.Disburse(loan, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusActive, active.Status)
	require.NotNil(t, active.NextPaymentDate)
	assert.Equal(t, active.Schedule[0].DueDate, *active.NextPaymentDate)
	require.NotNil(t, active.EndDate)
	assert.Equal(t, active.Schedule[len(active.Schedule)-1].DueDate, *active.EndDate)

	// The input snapshot is untouched; the caller persists the returned one.
	assert.Equal(t, domain.LoanStatusPending, loan.Status)
}

func TestDisburse_RejectedOutsidePending(t *testing.T) {
	lc := newTestLifecycle()
	loan := activeLoan(t)

	_, err := lc.Disburse(loan, time.Now())
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
}

func TestCancel_OnlyWhilePending(t *testing.T) {
	lc := newTestLifecycle()

	cancelled, err := lc.Cancel(pendingLoan(t), time.Now())
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCancelled, cancelled.Status)

	_, err = lc.Cancel(activeLoan(t), time.Now())
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)

	_, err = lc.Cancel(cancelled, time.Now())
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
}

func TestRecordPayment_RejectedOutsideActive(t *testing.T) {
	lc := newTestLifecycle()
	req := paymentRequest(100, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	_, _, err := lc.RecordPayment(pendingLoan(t), req)
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)

	cancelled, err := lc.Cancel(pendingLoan(t), time.Now())
	require.NoError(t, err)
	_, _, err = lc.RecordPayment(cancelled, req)
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
}

func TestRecordPayment_UpdatesLedgerAndAdvancesDueDate(t *testing.T) {
	lc := newTestLifecycle()
	loan := activeLoan(t)

	// Pay the first installment on its due date.
	next, payment, err := lc.RecordPayment(loan, paymentRequest(100, loan.Schedule[0].DueDate))
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusActive, next.Status)
	assert.Equal(t, domain.EntryStatusPaid, next.Schedule[0].Status)
	assert.True(t, payment.PrincipalApplied.Equal(decimal.NewFromInt(100)))
	require.NotNil(t, next.NextPaymentDate)
	assert.Equal(t, next.Schedule[1].DueDate, *next.NextPaymentDate)

	// Input snapshot untouched.
	assert.True(t, loan.PaidAmount.IsZero())
	assert.Equal(t, domain.EntryStatusPending, loan.Schedule[0].Status)
}

func TestRecordPayment_SettlesAccruedFeesFirst(t *testing.T) {
	lc := newTestLifecycle()
	loan := activeLoan(t)

	// 20 days after the first due date; 100 outstanding at 0.1%/day = 2.00 in fees.
	payDate := loan.Schedule[0].DueDate.AddDate(0, 0, 20)
	next, payment, err := lc.RecordPayment(loan, paymentRequest(50, payDate))
	require.NoError(t, err)

	assert.True(t, payment.LateFeeApplied.Equal(decimal.RequireFromString("2.00")),
		"fees accrued at payment time must be settled first, got %s", payment.LateFeeApplied)
	assert.True(t, payment.PrincipalApplied.Equal(decimal.RequireFromString("48.00")))
	assert.True(t, next.LateFees.IsZero())
	assert.Equal(t, domain.EntryStatusPartial, next.Schedule[0].Status)
}

func TestRecordPayment_CompletionRequiresSettledSchedule(t *testing.T) {
	lc := newTestLifecycle()
	loan := activeLoan(t)

	// 20 days late: 2.00 in fees on the first 100 installment. Paying only
	// the fees leaves the full schedule debt in place.
	payDate := loan.Schedule[0].DueDate.AddDate(0, 0, 20)
	next, payment, err := lc.RecordPayment(loan, paymentRequest(2, payDate))
	require.NoError(t, err)
	require.True(t, payment.LateFeeApplied.Equal(decimal.NewFromInt(2)))

	assert.Equal(t, domain.LoanStatusActive, next.Status)
	assert.True(t, next.RemainingBalance.Equal(decimal.NewFromInt(1200)),
		"a fee-only payment must not count against the installments, got %s", next.RemainingBalance)

	// The reported balance then pays the loan off completely.
	final, _, err := lc.RecordPayment(next, paymentRequest(1200, payDate))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusCompleted, final.Status)
	assert.True(t, final.RemainingBalance.IsZero())
	for _, entry := range final.Schedule {
		assert.Equal(t, domain.EntryStatusPaid, entry.Status)
	}
}

func TestRecordPayment_FinalPaymentCompletesLoan(t *testing.T) {
	lc := newTestLifecycle()
	loan := activeLoan(t)

	// Pay everything before anything falls due.
	payDate := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	next, _, err := lc.RecordPayment(loan, paymentRequest(1200, payDate))
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusCompleted, next.Status)
	assert.True(t, next.RemainingBalance.IsZero())
	assert.Nil(t, next.NextPaymentDate)
	for _, entry := range next.Schedule {
		assert.Equal(t, domain.EntryStatusPaid, entry.Status)
	}
}

func TestRecordPayment_OverpaymentLeavesLoanUnchanged(t *testing.T) {
	lc := newTestLifecycle()
	loan := activeLoan(t)

	_, _, err := lc.RecordPayment(loan, paymentRequest(5000, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, customError.ErrOverpayment)

	assert.True(t, loan.PaidAmount.IsZero())
	assert.True(t, loan.LateFees.IsZero())
	assert.Empty(t, loan.Payments)
}

func TestEvaluateOverdue_DefaultsPastThreshold(t *testing.T) {
	lc := newTestLifecycle()
	loan := activeLoan(t)

	// 89 days overdue: still active.
	next, err := lc.EvaluateOverdue(loan, loan.Schedule[0].DueDate.AddDate(0, 0, 89))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, next.Status)
	assert.Equal(t, 89, next.DaysOverdue)

	// 90 days overdue: defaulted.
	next, err = lc.EvaluateOverdue(loan, loan.Schedule[0].DueDate.AddDate(0, 0, 90))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusDefaulted, next.Status)
}

func TestEvaluateOverdue_RejectedOutsideActive(t *testing.T) {
	lc := newTestLifecycle()

	_, err := lc.EvaluateOverdue(pendingLoan(t), time.Now())
	assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)
}

func TestTerminalStatesRejectEverything(t *testing.T) {
	lc := newTestLifecycle()

	// Complete a loan, then try every event against it.
	completed, _, err := lc.RecordPayment(activeLoan(t),
		paymentRequest(1200, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	require.Equal(t, domain.LoanStatusCompleted, completed.Status)

	// Default a loan the same way.
	defaulted, err := lc.EvaluateOverdue(activeLoan(t),
		time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 200))
	require.NoError(t, err)
	require.Equal(t, domain.LoanStatusDefaulted, defaulted.Status)

	for _, loan := range []*domain.Loan{completed, defaulted} {
		statusBefore := loan.Status

		_, err := lc.Disburse(loan, time.Now())
		assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)

		_, err = lc.Cancel(loan, time.Now())
		assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)

		_, _, err = lc.RecordPayment(loan, paymentRequest(10, time.Now()))
		assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)

		_, err = lc.EvaluateOverdue(loan, time.Now())
		assert.ErrorIs(t, err, customError.ErrInvalidStateTransition)

		assert.Equal(t, statusBefore, loan.Status, "terminal loans are never mutated")
	}
}

func TestRecordPayment_SequenceToCompletion(t *testing.T) {
	lc := newTestLifecycle()
	loan := activeLoan(t)

	lastPaid := loan.PaidAmount
	lastRemaining := loan.RemainingBalance
	payDate := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	for _, amount := range []int64{100, 100, 400, 600} {
		next, _, err := lc.RecordPayment(loan, paymentRequest(amount, payDate))
		require.NoError(t, err)

		assert.True(t, next.PaidAmount.GreaterThanOrEqual(lastPaid))
		assert.True(t, next.RemainingBalance.LessThanOrEqual(lastRemaining))
		lastPaid = next.PaidAmount
		lastRemaining = next.RemainingBalance
		loan = next
	}

	assert.Equal(t, domain.LoanStatusCompleted, loan.Status)
	assert.True(t, loan.RemainingBalance.IsZero())
}
