package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noblecapital/payments/internal/adapter/http/dto"
	"github.com/noblecapital/payments/internal/adapter/http/middleware"
	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/usecase"
)

// DepositService defines the behavior needed by PaymentHandler.
type DepositService interface {
	InitiateDeposit(ctx context.Context, input usecase.InitiateDepositInput) (*domain.Transaction, error)
	GetTransactionStatus(ctx context.Context, externalID, userID string) (*domain.Transaction, error)
}

// CallbackService reconciles provider callbacks.
type CallbackService interface {
	Reconcile(ctx context.Context, input usecase.CallbackInput) error
}

// PaymentHandler handles deposit and provider-callback HTTP requests.
type PaymentHandler struct {
	depositUC  DepositService
	callbackUC CallbackService
	logger     zerolog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(depositUC DepositService, callbackUC CallbackService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		depositUC:  depositUC,
		callbackUC: callbackUC,
		logger:     logger,
	}
}

// Deposit initiates an M-Pesa deposit for the authenticated user.
func (h *PaymentHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	txn, err := h.depositUC.InitiateDeposit(r.Context(), req.ToUseCaseInput(identity.UserID))
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to initiate deposit", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// Status returns the caller's transaction by external id.
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	externalID := chi.URLParam(r, "externalID")
	if externalID == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	txn, err := h.depositUC.GetTransactionStatus(r.Context(), externalID, identity.UserID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get transaction", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Callback consumes the asynchronous provider callback. The provider is
// always acknowledged with a 200 regardless of the reconciliation outcome:
// a non-200 would trigger redelivery of a payload we already know we cannot
// process differently.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var req dto.STKCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("malformed provider callback")
		writeJSON(w, http.StatusOK, dto.AcceptedAck())
		return
	}

	input := req.ToUseCaseInput()
	if input.CorrelationID == "" {
		h.logger.Error().Msg("provider callback missing checkout request id")
		writeJSON(w, http.StatusOK, dto.AcceptedAck())
		return
	}

	if err := h.callbackUC.Reconcile(r.Context(), input); err != nil {
		// Logged, not surfaced: the ack contract holds even on internal
		// failures.
		h.logger.Error().
			Err(err).
			Str("correlation_id", input.CorrelationID).
			Msg("callback reconciliation failed")
	}

	writeJSON(w, http.StatusOK, dto.AcceptedAck())
}
