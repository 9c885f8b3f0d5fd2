package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/tiendapos/lending-engine/internal/domain"

	"github.com/jmoiron/sqlx"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.LoanPayment) error {
	query := `
		INSERT INTO loan_payments (id, loan_id, amount, principal_applied, interest_applied,
			late_fee_applied, payment_date, method, recorded_by, remaining_balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
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
	)

	return err
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.LoanPayment, error) {
	query := `
		SELECT id, loan_id, amount, principal_applied, interest_applied, late_fee_applied,
			payment_date, method, recorded_by, remaining_balance, created_at
		FROM loan_payments
		WHERE loan_id = $1
		ORDER BY created_at
	`

	var payments []*domain.LoanPayment
	err := r.db.SelectContext(ctx, &payments, query, loanID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM loan_payments
		WHERE loan_id = $1
	`

	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, query, loanID); err != nil {
		return decimal.Zero, err
	}

	return total, nil
}
