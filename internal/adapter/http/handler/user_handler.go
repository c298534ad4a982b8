package handler

import (
	"context"
	"net/http"

	"github.com/noblecapital/payments/internal/adapter/http/dto"
	"github.com/noblecapital/payments/internal/adapter/http/middleware"
	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/usecase"
)

// UserService defines the behavior needed by UserHandler.
type UserService interface {
	GetProfile(ctx context.Context, userID string) (*domain.User, error)
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
}

// UserHandler handles user-scoped HTTP requests.
type UserHandler struct {
	userUC UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(userUC UserService) *UserHandler {
	return &UserHandler{userUC: userUC}
}

// Profile returns the authenticated user's profile including balance.
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	user, err := h.userUC.GetProfile(r.Context(), identity.UserID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get profile", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.UserFromDomain(user))
}

// Transactions returns the authenticated user's transaction history.
func (h *UserHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	txns, err := h.userUC.ListTransactions(r.Context(), usecase.ListTransactionsInput{
		UserID: identity.UserID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list transactions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(txns),
		Total:        int64(len(txns)),
	})
}
