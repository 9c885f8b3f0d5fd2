package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tiendapos/lending-engine/internal/domain"
	"github.com/tiendapos/lending-engine/internal/service"
	customError "github.com/tiendapos/lending-engine/pkg/errors"
	"github.com/tiendapos/lending-engine/pkg/response"
)

type LoanHandler struct {
	service   *service.LoanService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLoanHandler(service *service.LoanService, logger *zap.Logger) *LoanHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoanHandler{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreateLoan handles POST /api/v1/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Request validation failed", err)
		return
	}

	loan, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, &domain.CreateLoanResponse{Loan: loan, Schedule: loan.Schedule})
}

// Disburse handles POST /api/v1/loans/{loanId}/disburse
func (h *LoanHandler) Disburse(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	loan, err := h.service.Disburse(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// Cancel handles POST /api/v1/loans/{loanId}/cancel
func (h *LoanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	loan, err := h.service.Cancel(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// RecordPayment handles POST /api/v1/loans/{loanId}/payment
func (h *LoanHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	var request domain.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "Request validation failed", err)
		return
	}

	loan, payment, err := h.service.RecordPayment(r.Context(), loanID, &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"loan":    loan,
		"payment": payment,
	})
}

// GetLoan handles GET /api/v1/loans/{loanId}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	loan, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// GetSchedule handles GET /api/v1/loans/{loanId}/schedule
func (h *LoanHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	schedule, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, &domain.ScheduleResponse{LoanID: loanID, Schedule: schedule})
}

// GetOutstanding handles GET /api/v1/loans/{loanId}/outstanding
func (h *LoanHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	outstanding, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, outstanding)
}

// EvaluateOverdue handles POST /api/v1/loans/{loanId}/evaluate-overdue
func (h *LoanHandler) EvaluateOverdue(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	loan, err := h.service.EvaluateOverdue(r.Context(), loanID, time.Now())
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, loan)
}

// writeError maps business error codes onto HTTP statuses.
func (h *LoanHandler) writeError(w http.ResponseWriter, err error) {
	var businessErr *customError.BusinessError
	if !errors.As(err, &businessErr) {
		h.logger.Error("unexpected error", zap.Error(err))
		response.InternalServerError(w, "Internal server error", err)
		return
	}

	switch businessErr.Code {
	case customError.ErrCodeValidation, customError.ErrCodeInvalidPaymentAmount:
		response.BadRequest(w, businessErr.Message, businessErr.Err)
	case customError.ErrCodeLoanNotFound:
		response.NotFound(w, businessErr.Message)
	case customError.ErrCodeLoanAlreadyExists, customError.ErrCodeInvalidStateTransition:
		response.Error(w, http.StatusConflict, businessErr.Message, businessErr.Err)
	case customError.ErrCodeOverpayment:
		response.Error(w, http.StatusUnprocessableEntity, businessErr.Message, businessErr.Err)
	default:
		h.logger.Error("internal error", zap.String("code", businessErr.Code), zap.Error(businessErr))
		response.InternalServerError(w, businessErr.Message, businessErr.Err)
	}
}
