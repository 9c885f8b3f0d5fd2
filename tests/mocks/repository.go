package mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/tiendapos/lending-engine/internal/domain"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) CreateSchedule(ctx context.Context, entries []*domain.AmortizationEntry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockLoanRepository) GetScheduleByLoanID(ctx context.Context, loanID string) ([]*domain.AmortizationEntry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AmortizationEntry), args.Error(1)
}

func (m *MockLoanRepository) SaveSnapshot(ctx context.Context, loan *domain.Loan, payment *domain.LoanPayment) error {
	args := m.Called(ctx, loan, payment)
	return args.Error(0)
}

func (m *MockLoanRepository) ListActiveLoanIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLoanRepository) GetOverdueEntries(ctx context.Context, loanID string, now time.Time) ([]*domain.AmortizationEntry, error) {
	args := m.Called(ctx, loanID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AmortizationEntry), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.LoanPayment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.LoanPayment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanPayment), args.Error(1)
}

func (m *MockPaymentRepository) GetTotalPaid(ctx context.Context, loanID string) (decimal.Decimal, error) {
	args := m.Called(ctx, loanID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
