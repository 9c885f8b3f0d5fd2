package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tiendapos/lending-engine/internal/config"
	"github.com/tiendapos/lending-engine/internal/domain"
	"github.com/tiendapos/lending-engine/internal/engine"
	"github.com/tiendapos/lending-engine/internal/repository"
	customError "github.com/tiendapos/lending-engine/pkg/errors"
)

const scheduleCachePrefix = "loan:schedule:"

// LoanService orchestrates the lending engine: it loads the aggregate
// snapshot, runs the pure lifecycle operation, and persists the returned
// snapshot transactionally. Mutating operations on the same loan are
// serialized through a per-loan mutex so two concurrent payments can never
// allocate against the same stale schedule.
type LoanService struct {
	loanRepo    repository.LoanRepository
	paymentRepo repository.PaymentRepository
	lifecycle   *engine.Lifecycle
	redis       *redis.Client
	config      *config.Config
	logger      *zap.Logger

	loanLocks sync.Map // loan_id -> *sync.Mutex
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	redisClient *redis.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *LoanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		lifecycle:   engine.NewLifecycle(engine.Policy{DefaultAfterDays: cfg.Business.DefaultAfterDays}),
		redis:       redisClient,
		config:      cfg,
		logger:      logger,
	}
}

// lockLoan serializes writers per loan. Different loans proceed in parallel.
func (s *LoanService) lockLoan(loanID string) func() {
	mu, _ := s.loanLocks.LoadOrStore(loanID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// CreateLoan builds the amortization schedule and stores the loan in pending
// status. Nothing is owed until the loan is disbursed.
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	existing, err := s.loanRepo.GetByLoanID(ctx, request.LoanID)
	if err == nil && existing != nil {
		return nil, customError.WrapLoanAlreadyExists(request.LoanID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	if request.LateFeeRate == nil {
		rate := s.config.GetLateFeeRate()
		request.LateFeeRate = &rate
	}

	loan, err := engine.BuildSchedule(request)
	if err != nil {
		return nil, err
	}

	if err = s.loanRepo.Create(ctx, loan); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if err = s.loanRepo.CreateSchedule(ctx, loan.Schedule); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.Info("loan created",
		zap.String("loan_id", loan.LoanID),
		zap.String("principal", loan.Principal.String()),
		zap.String("monthly_payment", loan.MonthlyPayment.String()),
		zap.Int("term_months", loan.TermMonths),
	)

	return loan, nil
}

// Disburse activates a pending loan.
func (s *LoanService) Disburse(ctx context.Context, loanID string) (*domain.Loan, error) {
	unlock := s.lockLoan(loanID)
	defer unlock()

	loan, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return nil, err
	}

	next, err := s.lifecycle.Disburse(loan, time.Now())
	if err != nil {
		return nil, err
	}

	if err = s.loanRepo.SaveSnapshot(ctx, next, nil); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	s.invalidateCache(ctx, loanID)

	s.logger.Info("loan disbursed", zap.String("loan_id", loanID))
	return next, nil
}

// Cancel voids a loan that is still pending.
func (s *LoanService) Cancel(ctx context.Context, loanID string) (*domain.Loan, error) {
	unlock := s.lockLoan(loanID)
	defer unlock()

	loan, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return nil, err
	}

	next, err := s.lifecycle.Cancel(loan, time.Now())
	if err != nil {
		return nil, err
	}

	if err = s.loanRepo.SaveSnapshot(ctx, next, nil); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	s.invalidateCache(ctx, loanID)

	s.logger.Info("loan cancelled", zap.String("loan_id", loanID))
	return next, nil
}

// RecordPayment applies a payment against the loan ledger. The engine settles
// accrued late fees first, then interest and principal in schedule order.
func (s *LoanService) RecordPayment(ctx context.Context, loanID string, request *domain.RecordPaymentRequest) (*domain.Loan, *domain.LoanPayment, error) {
	unlock := s.lockLoan(loanID)
	defer unlock()

	loan, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}

	if request.Date.IsZero() {
		request.Date = time.Now()
	}

	next, payment, err := s.lifecycle.RecordPayment(loan, request)
	if err != nil {
		return nil, nil, err
	}

	if err = s.loanRepo.SaveSnapshot(ctx, next, payment); err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}
	s.invalidateCache(ctx, loanID)

	s.logger.Info("payment recorded",
		zap.String("loan_id", loanID),
		zap.String("amount", payment.Amount.String()),
		zap.String("late_fee_applied", payment.LateFeeApplied.String()),
		zap.String("interest_applied", payment.InterestApplied.String()),
		zap.String("principal_applied", payment.PrincipalApplied.String()),
		zap.String("remaining_balance", next.RemainingBalance.String()),
		zap.String("status", next.Status),
	)

	return next, payment, nil
}

// EvaluateOverdue refreshes overdue status and late fees for one loan and
// escalates it to defaulted when the policy threshold is crossed.
func (s *LoanService) EvaluateOverdue(ctx context.Context, loanID string, now time.Time) (*domain.Loan, error) {
	unlock := s.lockLoan(loanID)
	defer unlock()

	loan, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return nil, err
	}

	next, err := s.lifecycle.EvaluateOverdue(loan, now)
	if err != nil {
		return nil, err
	}

	if err = s.loanRepo.SaveSnapshot(ctx, next, nil); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	s.invalidateCache(ctx, loanID)

	if next.Status == domain.LoanStatusDefaulted {
		s.logger.Warn("loan defaulted",
			zap.String("loan_id", loanID),
			zap.Int("days_overdue", next.DaysOverdue),
		)
	}

	return next, nil
}

// EvaluateAllOverdue runs the overdue evaluation across every active loan.
// Called by the scheduler once a day.
func (s *LoanService) EvaluateAllOverdue(ctx context.Context, now time.Time) error {
	ids, err := s.loanRepo.ListActiveLoanIDs(ctx)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	for _, id := range ids {
		if _, err := s.EvaluateOverdue(ctx, id, now); err != nil {
			s.logger.Error("overdue evaluation failed",
				zap.String("loan_id", id),
				zap.Error(err),
			)
		}
	}

	return nil
}

// GetLoan returns the full aggregate: loan, schedule and payment history.
func (s *LoanService) GetLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	return s.loadAggregate(ctx, loanID)
}

// GetSchedule returns the amortization schedule, served from cache when warm.
func (s *LoanService) GetSchedule(ctx context.Context, loanID string) ([]*domain.AmortizationEntry, error) {
	cacheKey := scheduleCachePrefix + loanID
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var entries []*domain.AmortizationEntry
			if err := json.Unmarshal([]byte(cached), &entries); err == nil {
				return entries, nil
			}
		}
	}

	entries, err := s.loanRepo.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	if s.redis != nil {
		if raw, err := json.Marshal(entries); err == nil {
			if err := s.redis.Set(ctx, cacheKey, raw, s.config.Business.CacheTTL).Err(); err != nil {
				s.logger.Debug("schedule cache write failed", zap.String("loan_id", loanID), zap.Error(err))
			}
		}
	}

	return entries, nil
}

// GetOutstanding returns the current outstanding balance including accrued
// late fees.
func (s *LoanService) GetOutstanding(ctx context.Context, loanID string) (*domain.OutstandingResponse, error) {
	loan, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return nil, err
	}

	return &domain.OutstandingResponse{
		LoanID:      loan.LoanID,
		Outstanding: loan.RemainingBalance,
		LateFees:    loan.LateFees,
		DaysOverdue: loan.DaysOverdue,
	}, nil
}

// loadAggregate assembles the complete snapshot the engine operates on.
func (s *LoanService) loadAggregate(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	schedule, err := s.loanRepo.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	loan.Schedule = schedule

	payments, err := s.paymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	loan.Payments = payments

	return loan, nil
}

func (s *LoanService) invalidateCache(ctx context.Context, loanID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, scheduleCachePrefix+loanID).Err(); err != nil {
		s.logger.Debug("cache invalidation failed", zap.String("loan_id", loanID), zap.Error(err))
	}
}

// TotalCollected sums everything received on a loan, straight from the
// payment ledger.
func (s *LoanService) TotalCollected(ctx context.Context, loanID string) (decimal.Decimal, error) {
	total, err := s.paymentRepo.GetTotalPaid(ctx, loanID)
	if err != nil {
		return decimal.Zero, customError.WrapDatabaseError(err)
	}
	return total, nil
}
