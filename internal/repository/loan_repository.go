package repository

import (
	"context"
	"time"

	"github.com/tiendapos/lending-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (id, loan_id, customer_id, principal, annual_rate, term_months,
			monthly_payment, total_amount, paid_amount, remaining_balance, late_fee_rate,
			late_fees, days_overdue, status, start_date, end_date, next_payment_date,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.LoanID,
		loan.CustomerID,
		loan.Principal,
		loan.AnnualRate,
		loan.TermMonths,
		loan.MonthlyPayment,
		loan.TotalAmount,
		loan.PaidAmount,
		loan.RemainingBalance,
		loan.LateFeeRate,
		loan.LateFees,
		loan.DaysOverdue,
		loan.Status,
		loan.StartDate,
		loan.EndDate,
		loan.NextPaymentDate,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `
		SELECT id, loan_id, customer_id, principal, annual_rate, term_months,
			monthly_payment, total_amount, paid_amount, remaining_balance, late_fee_rate,
			late_fees, days_overdue, status, start_date, end_date, next_payment_date,
			created_at, updated_at
		FROM loans
		WHERE loan_id = $1
	`

	var loan domain.Loan
	err := r.db.GetContext(ctx, &loan, query, loanID)
	if err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET paid_amount = $2, remaining_balance = $3, late_fees = $4, days_overdue = $5,
			status = $6, end_date = $7, next_payment_date = $8, updated_at = $9
		WHERE loan_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.LoanID,
		loan.PaidAmount,
		loan.RemainingBalance,
		loan.LateFees,
		loan.DaysOverdue,
		loan.Status,
		loan.EndDate,
		loan.NextPaymentDate,
		time.Now(),
	)

	return err
}

func (r *loanRepository) CreateSchedule(ctx context.Context, entries []*domain.AmortizationEntry) error {
	query := `
		INSERT INTO loan_schedule (id, loan_id, sequence, due_date, beginning_balance,
			scheduled_payment, principal_portion, interest_portion, ending_balance,
			status, amount_paid, paid_date, fee_accrued_through, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, entry := range entries {
		if _, err = tx.ExecContext(ctx, query,
			entry.ID,
			entry.LoanID,
			entry.Sequence,
			entry.DueDate,
			entry.BeginningBalance,
			entry.ScheduledPayment,
			entry.PrincipalPortion,
			entry.InterestPortion,
			entry.EndingBalance,
			entry.Status,
			entry.AmountPaid,
			entry.PaidDate,
			entry.FeeAccruedThrough,
			entry.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) GetScheduleByLoanID(ctx context.Context, loanID string) ([]*domain.AmortizationEntry, error) {
	query := `
		SELECT id, loan_id, sequence, due_date, beginning_balance, scheduled_payment,
			principal_portion, interest_portion, ending_balance, status, amount_paid,
			paid_date, fee_accrued_through, created_at
		FROM loan_schedule
		WHERE loan_id = $1
		ORDER BY sequence
	`

	var entries []*domain.AmortizationEntry
	err := r.db.SelectContext(ctx, &entries, query, loanID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// SaveSnapshot writes the whole post-operation aggregate in one transaction
// so a payment can never land without its entry and balance updates.
func (r *loanRepository) SaveSnapshot(ctx context.Context, loan *domain.Loan, payment *domain.LoanPayment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	loanQuery := `
		UPDATE loans
		SET paid_amount = $2, remaining_balance = $3, late_fees = $4, days_overdue = $5,
			status = $6, end_date = $7, next_payment_date = $8, updated_at = $9
		WHERE loan_id = $1
	`
	if _, err = tx.ExecContext(ctx, loanQuery,
		loan.LoanID,
		loan.PaidAmount,
		loan.RemainingBalance,
		loan.LateFees,
		loan.DaysOverdue,
		loan.Status,
		loan.EndDate,
		loan.NextPaymentDate,
		loan.UpdatedAt,
	); err != nil {
		return err
	}

	entryQuery := `
		UPDATE loan_schedule
		SET status = $3, amount_paid = $4, paid_date = $5, fee_accrued_through = $6
		WHERE loan_id = $1 AND sequence = $2
	`
	for _, entry := range loan.Schedule {
		if _, err = tx.ExecContext(ctx, entryQuery,
			entry.LoanID,
			entry.Sequence,
			entry.Status,
			entry.AmountPaid,
			entry.PaidDate,
			entry.FeeAccruedThrough,
		); err != nil {
			return err
		}
	}

	if payment != nil {
		paymentQuery := `
			INSERT INTO loan_payments (id, loan_id, amount, principal_applied,
				interest_applied, late_fee_applied, payment_date, method, recorded_by,
				remaining_balance, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		if _, err = tx.ExecContext(ctx, paymentQuery,
			payment.ID,
			payment.LoanID,
			payment.Amount,
			payment.PrincipalApplied,
			payment.InterestApplied,
			payment.LateFeeApplied,
			payment.PaymentDate,
			payment.Method,
			payment.RecordedBy,
			payment.RemainingBalance,
			payment.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) ListActiveLoanIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT loan_id
		FROM loans
		WHERE status = 'active'
		ORDER BY loan_id
	`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *loanRepository) GetOverdueEntries(ctx context.Context, loanID string, now time.Time) ([]*domain.AmortizationEntry, error) {
	query := `
		SELECT id, loan_id, sequence, due_date, beginning_balance, scheduled_payment,
			principal_portion, interest_portion, ending_balance, status, amount_paid,
			paid_date, fee_accrued_through, created_at
		FROM loan_schedule
		WHERE loan_id = $1 AND status != 'paid' AND due_date < $2
		ORDER BY sequence
	`

	var entries []*domain.AmortizationEntry
	err := r.db.SelectContext(ctx, &entries, query, loanID, now)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
