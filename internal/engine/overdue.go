package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tiendapos/lending-engine/internal/domain"
	"github.com/tiendapos/lending-engine/pkg/utils"
)

// EvaluateOverdue marks past-due entries, recomputes the loan's days-overdue
// and accrues late fees up to 'now'. It mutates the given loan in place;
// the lifecycle is responsible for status gating and clone-and-commit.
//
// Accrual is idempotent: each entry carries a watermark of the date its fees
// were last accrued through, and a new call only charges the whole days
// between the watermark and 'now'. Calling twice with the same 'now' adds
// nothing the second time.
func EvaluateOverdue(loan *domain.Loan, now time.Time) {
	dailyRate := utils.DailyRate(loan.LateFeeRate)
	maxDaysOverdue := 0

	for _, entry := range loan.Schedule {
		if entry.IsSettled() || !utils.IsPastDue(entry.DueDate, now) {
			continue
		}

		entry.Status = domain.EntryStatusOverdue

		daysOverdue := utils.DaysBetween(entry.DueDate, now)
		if daysOverdue > maxDaysOverdue {
			maxDaysOverdue = daysOverdue
		}

		accruedFrom := entry.DueDate
		if entry.FeeAccruedThrough != nil {
			accruedFrom = *entry.FeeAccruedThrough
		}

		days := utils.DaysBetween(accruedFrom, now)
		if days <= 0 {
			continue
		}

		fee := utils.TruncateMinor(entry.Outstanding().Mul(dailyRate).Mul(decimal.NewFromInt(int64(days))))
		loan.LateFees = loan.LateFees.Add(fee)

		// Advance by whole days only; a partial day keeps accruing from
		// the same point next time.
		watermark := accruedFrom.AddDate(0, 0, days)
		entry.FeeAccruedThrough = &watermark
	}

	loan.DaysOverdue = maxDaysOverdue
	loan.RemainingBalance = outstandingBalance(loan)
	loan.UpdatedAt = now
}

// outstandingBalance recomputes the loan balance from the ledger: whatever
// the unsettled schedule entries still owe, plus accrued late fees that have
// not been paid yet. LateFees shrinks as fee payments land, so the schedule
// is the authority on installment debt.
func outstandingBalance(loan *domain.Loan) decimal.Decimal {
	balance := loan.LateFees
	for _, entry := range loan.Schedule {
		if entry.IsSettled() {
			continue
		}
		balance = balance.Add(entry.Outstanding())
	}
	return balance
}
