package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noblecapital/payments/internal/adapter/http/dto"
	"github.com/noblecapital/payments/internal/adapter/http/middleware"
	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/usecase"
)

// WithdrawalService defines the behavior needed by WithdrawalHandler.
type WithdrawalService interface {
	RequestWithdrawal(ctx context.Context, input usecase.RequestWithdrawalInput) (*domain.Transaction, error)
	ProcessWithdrawal(ctx context.Context, input usecase.ProcessWithdrawalInput) (*domain.Transaction, error)
	ListWithdrawals(ctx context.Context, limit, offset int) ([]*domain.WithdrawalListItem, error)
}

// WithdrawalHandler handles withdrawal-related HTTP requests.
type WithdrawalHandler struct {
	withdrawalUC WithdrawalService
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawalUC WithdrawalService) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalUC: withdrawalUC}
}

// Request reserves funds for a withdrawal on behalf of the authenticated user.
func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req dto.WithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	txn, err := h.withdrawalUC.RequestWithdrawal(r.Context(), req.ToUseCaseInput(identity.UserID))
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to request withdrawal", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// Process applies an admin approve/reject decision to a pending withdrawal.
func (h *WithdrawalHandler) Process(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing withdrawal ID", "")
		return
	}

	var req dto.ProcessWithdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	txn, err := h.withdrawalUC.ProcessWithdrawal(r.Context(), req.ToUseCaseInput(id))
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to process withdrawal", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// List returns withdrawal requests for the admin review dashboard.
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	items, err := h.withdrawalUC.ListWithdrawals(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list withdrawals", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListWithdrawalsResponse{
		Withdrawals: dto.WithdrawalListFromDomain(items),
		Total:       int64(len(items)),
	})
}
