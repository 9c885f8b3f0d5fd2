package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tiendapos/lending-engine/internal/domain"
	customError "github.com/tiendapos/lending-engine/pkg/errors"
	"github.com/tiendapos/lending-engine/pkg/utils"
)

var one = decimal.NewFromInt(1)

// BuildSchedule creates a pending loan with its full amortization schedule.
//
// Monthly payment uses the standard annuity formula
// A = P*i*(1+i)^n / ((1+i)^n - 1) with i = annualRate/12/100, rounded to the
// minor unit. With a zero rate the schedule is straight-line (P/n). Each
// installment's interest is truncated to the minor unit and the final
// installment absorbs the accumulated rounding drift: its principal portion is
// the remaining balance exactly and its scheduled payment is adjusted to
// match, so the schedule always sums back to the principal and ends at zero.
func BuildSchedule(req *domain.CreateLoanRequest) (*domain.Loan, error) {
	if !req.Principal.IsPositive() {
		return nil, customError.WrapValidation(fmt.Sprintf("principal must be positive, got %s", req.Principal))
	}
	if req.TermMonths < 1 {
		return nil, customError.WrapValidation(fmt.Sprintf("term must be at least 1 month, got %d", req.TermMonths))
	}
	if req.AnnualRate.IsNegative() {
		return nil, customError.WrapValidation(fmt.Sprintf("annual rate cannot be negative, got %s", req.AnnualRate))
	}
	lateFeeRate := decimal.Zero
	if req.LateFeeRate != nil {
		lateFeeRate = *req.LateFeeRate
	}
	if lateFeeRate.IsNegative() {
		return nil, customError.WrapValidation(fmt.Sprintf("late fee rate cannot be negative, got %s", lateFeeRate))
	}

	monthlyRate := utils.MonthlyRate(req.AnnualRate)
	monthlyPayment := annuityPayment(req.Principal, monthlyRate, req.TermMonths)

	now := time.Now()
	entries := make([]*domain.AmortizationEntry, 0, req.TermMonths)
	balance := req.Principal
	totalInterest := decimal.Zero

	for k := 1; k <= req.TermMonths; k++ {
		interest := utils.TruncateMinor(balance.Mul(monthlyRate))

		var principal, payment decimal.Decimal
		if k == req.TermMonths {
			// Final installment clears the balance exactly.
			principal = balance
			payment = principal.Add(interest)
		} else {
			principal = monthlyPayment.Sub(interest)
			payment = monthlyPayment
		}

		entry := &domain.AmortizationEntry{
			ID:               uuid.New(),
			LoanID:           req.LoanID,
			Sequence:         k,
			DueDate:          utils.AddMonthsClamped(req.StartDate, k),
			BeginningBalance: balance,
			ScheduledPayment: payment,
			PrincipalPortion: principal,
			InterestPortion:  interest,
			EndingBalance:    balance.Sub(principal),
			Status:           domain.EntryStatusPending,
			AmountPaid:       decimal.Zero,
			CreatedAt:        now,
		}
		entries = append(entries, entry)

		balance = entry.EndingBalance
		totalInterest = totalInterest.Add(interest)
	}

	loan := &domain.Loan{
		ID:               uuid.New(),
		LoanID:           req.LoanID,
		CustomerID:       req.CustomerID,
		Principal:        req.Principal,
		AnnualRate:       req.AnnualRate,
		TermMonths:       req.TermMonths,
		MonthlyPayment:   monthlyPayment,
		TotalAmount:      req.Principal.Add(totalInterest),
		PaidAmount:       decimal.Zero,
		RemainingBalance: req.Principal.Add(totalInterest),
		LateFeeRate:      lateFeeRate,
		LateFees:         decimal.Zero,
		Status:           domain.LoanStatusPending,
		StartDate:        req.StartDate,
		CreatedAt:        now,
		UpdatedAt:        now,
		Schedule:         entries,
		Payments:         []*domain.LoanPayment{},
	}

	if err := VerifySchedule(loan); err != nil {
		return nil, err
	}

	return loan, nil
}

// annuityPayment computes the level monthly payment, rounded to the minor
// unit. Zero-rate loans repay straight-line.
func annuityPayment(principal, monthlyRate decimal.Decimal, termMonths int) decimal.Decimal {
	n := decimal.NewFromInt(int64(termMonths))
	if monthlyRate.IsZero() {
		return utils.RoundMinor(principal.Div(n))
	}

	compound := one.Add(monthlyRate).Pow(n)
	numerator := principal.Mul(monthlyRate).Mul(compound)
	denominator := compound.Sub(one)
	return utils.RoundMinor(numerator.Div(denominator))
}

// VerifySchedule checks the structural invariants of a built schedule: the
// principal portions sum to the loan principal and the final entry ends at
// zero. A violation means a bug in the builder, never routine data.
func VerifySchedule(loan *domain.Loan) error {
	if len(loan.Schedule) == 0 {
		return customError.WrapScheduleIntegrity(loan.LoanID, "schedule is empty")
	}

	sum := decimal.Zero
	for _, entry := range loan.Schedule {
		sum = sum.Add(entry.PrincipalPortion)
	}
	if !sum.Equal(loan.Principal) {
		return customError.WrapScheduleIntegrity(loan.LoanID,
			fmt.Sprintf("principal portions sum to %s, expected %s", sum, loan.Principal))
	}

	final := loan.Schedule[len(loan.Schedule)-1]
	if !final.EndingBalance.IsZero() {
		return customError.WrapScheduleIntegrity(loan.LoanID,
			fmt.Sprintf("final ending balance is %s, expected 0", final.EndingBalance))
	}

	return nil
}
