package usecase

import (
	"context"

	"github.com/noblecapital/payments/internal/domain"
)

// UserUseCase serves user-scoped reads.
type UserUseCase struct {
	userRepo UserRepository
	txnRepo  TransactionRepository
}

// NewUserUseCase creates a new UserUseCase.
func NewUserUseCase(userRepo UserRepository, txnRepo TransactionRepository) *UserUseCase {
	return &UserUseCase{userRepo: userRepo, txnRepo: txnRepo}
}

// GetProfile returns the user's profile including the current balance.
func (uc *UserUseCase) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, userID)
}

// ListTransactionsInput represents input for listing a user's transactions.
type ListTransactionsInput struct {
	UserID string
	Limit  int
	Offset int
}

// ListTransactions returns the caller's transaction history, newest first.
func (uc *UserUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.Transaction, error) {
	limit, offset := clampPage(input.Limit, input.Offset)
	return uc.txnRepo.ListByUser(ctx, input.UserID, limit, offset)
}
