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

func feeRate(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func buildRequest(principal string, rate string, term int) *domain.CreateLoanRequest {
	return &domain.CreateLoanRequest{
		LoanID:      "LOAN123",
		CustomerID:  "CUST1",
		Principal:   decimal.RequireFromString(principal),
		AnnualRate:  decimal.RequireFromString(rate),
		TermMonths:  term,
		StartDate:   time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		LateFeeRate: feeRate("36.5"),
	}
}

func TestBuildSchedule_StandardLoan(t *testing.T) {
	// 12,000 at 12% APR over 12 months: 1% monthly, annuity payment 1066.19.
	loan, err := BuildSchedule(buildRequest("12000", "12", 12))
	require.NoError(t, err)

	assert.Equal(t, domain.LoanStatusPending, loan.Status)
	assert.True(t, loan.MonthlyPayment.Equal(decimal.RequireFromString("1066.19")),
		"expected monthly payment 1066.19, got %s", loan.MonthlyPayment)
	assert.Len(t, loan.Schedule, 12)

	// First installment: interest on the full principal.
	first := loan.Schedule[0]
	assert.True(t, first.InterestPortion.Equal(decimal.RequireFromString("120.00")))
	assert.True(t, first.PrincipalPortion.Equal(decimal.RequireFromString("946.19")))
	assert.True(t, first.BeginningBalance.Equal(decimal.RequireFromString("12000")))

	// Final installment clears the balance exactly.
	final := loan.Schedule[11]
	assert.True(t, final.EndingBalance.IsZero(),
		"final ending balance must be exactly zero, got %s", final.EndingBalance)
	assert.True(t, final.PrincipalPortion.Equal(final.BeginningBalance))

	// Principal portions sum back to the principal to the cent.
	sum := decimal.Zero
	totalInterest := decimal.Zero
	for _, entry := range loan.Schedule {
		sum = sum.Add(entry.PrincipalPortion)
		totalInterest = totalInterest.Add(entry.InterestPortion)
		assert.Equal(t, domain.EntryStatusPending, entry.Status)
		assert.True(t, entry.AmountPaid.IsZero())
	}
	assert.True(t, sum.Equal(loan.Principal))
	assert.True(t, loan.TotalAmount.Equal(loan.Principal.Add(totalInterest)))
	assert.True(t, loan.RemainingBalance.Equal(loan.TotalAmount))
}

func TestBuildSchedule_BalancesChain(t *testing.T) {
	loan, err := BuildSchedule(buildRequest("5000", "18.5", 24))
	require.NoError(t, err)

	for i, entry := range loan.Schedule {
		assert.Equal(t, i+1, entry.Sequence)
		assert.True(t, entry.EndingBalance.Equal(entry.BeginningBalance.Sub(entry.PrincipalPortion)))
		if i > 0 {
			assert.True(t, entry.BeginningBalance.Equal(loan.Schedule[i-1].EndingBalance))
		}
	}
	assert.True(t, loan.Schedule[len(loan.Schedule)-1].EndingBalance.IsZero())
}

func TestBuildSchedule_ZeroRate(t *testing.T) {
	loan, err := BuildSchedule(buildRequest("1200", "0", 12))
	require.NoError(t, err)

	assert.True(t, loan.MonthlyPayment.Equal(decimal.RequireFromString("100")))
	assert.True(t, loan.TotalAmount.Equal(loan.Principal), "zero rate means zero interest")

	for _, entry := range loan.Schedule {
		assert.True(t, entry.InterestPortion.IsZero())
	}
}

func TestBuildSchedule_ZeroRateRoundingAbsorbedInFinal(t *testing.T) {
	// 1000 / 3 does not divide evenly; the final installment absorbs the cent.
	loan, err := BuildSchedule(buildRequest("1000", "0", 3))
	require.NoError(t, err)

	assert.True(t, loan.MonthlyPayment.Equal(decimal.RequireFromString("333.33")))
	assert.True(t, loan.Schedule[0].PrincipalPortion.Equal(decimal.RequireFromString("333.33")))
	assert.True(t, loan.Schedule[1].PrincipalPortion.Equal(decimal.RequireFromString("333.33")))
	assert.True(t, loan.Schedule[2].PrincipalPortion.Equal(decimal.RequireFromString("333.34")))
	assert.True(t, loan.Schedule[2].ScheduledPayment.Equal(decimal.RequireFromString("333.34")))
	assert.True(t, loan.Schedule[2].EndingBalance.IsZero())
}

func TestBuildSchedule_DueDatesAdvanceMonthly(t *testing.T) {
	req := buildRequest("6000", "10", 6)
	req.StartDate = time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	loan, err := BuildSchedule(req)
	require.NoError(t, err)

	expected := []time.Time{
		time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC),
	}
	for i, entry := range loan.Schedule {
		assert.Equal(t, expected[i], entry.DueDate, "entry %d due date", i+1)
	}
}

func TestBuildSchedule_SingleInstallment(t *testing.T) {
	loan, err := BuildSchedule(buildRequest("1000", "12", 1))
	require.NoError(t, err)

	require.Len(t, loan.Schedule, 1)
	entry := loan.Schedule[0]
	assert.True(t, entry.PrincipalPortion.Equal(decimal.RequireFromString("1000")))
	assert.True(t, entry.InterestPortion.Equal(decimal.RequireFromString("10.00")))
	assert.True(t, entry.ScheduledPayment.Equal(decimal.RequireFromString("1010.00")))
	assert.True(t, entry.EndingBalance.IsZero())
}

func TestBuildSchedule_InvalidInputs(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CreateLoanRequest)
	}{
		{
			name:   "zero principal",
			mutate: func(r *domain.CreateLoanRequest) { r.Principal = decimal.Zero },
		},
		{
			name:   "negative principal",
			mutate: func(r *domain.CreateLoanRequest) { r.Principal = decimal.NewFromInt(-100) },
		},
		{
			name:   "zero term",
			mutate: func(r *domain.CreateLoanRequest) { r.TermMonths = 0 },
		},
		{
			name:   "negative rate",
			mutate: func(r *domain.CreateLoanRequest) { r.AnnualRate = decimal.NewFromInt(-1) },
		},
		{
			name:   "negative late fee rate",
			mutate: func(r *domain.CreateLoanRequest) { r.LateFeeRate = feeRate("-1") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := buildRequest("12000", "12", 12)
			tt.mutate(req)

			loan, err := BuildSchedule(req)
			assert.Nil(t, loan)
			assert.ErrorIs(t, err, customError.ErrValidation)
		})
	}
}

func TestVerifySchedule_DetectsCorruption(t *testing.T) {
	loan, err := BuildSchedule(buildRequest("12000", "12", 12))
	require.NoError(t, err)
	require.NoError(t, VerifySchedule(loan))

	loan.Schedule[3].PrincipalPortion = loan.Schedule[3].PrincipalPortion.Add(decimal.NewFromInt(1))
	assert.ErrorIs(t, VerifySchedule(loan), customError.ErrScheduleIntegrity)
}
