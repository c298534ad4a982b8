package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/usecase"
	"github.com/noblecapital/payments/internal/usecase/mocks"
)

func TestUserUseCase_GetProfile(t *testing.T) {
	userRepo := mocks.NewMockUserRepository()
	txnRepo := mocks.NewMockTransactionRepository()

	userRepo.Seed(&domain.User{
		ID:      "user-1",
		Email:   "jane@example.com",
		Name:    "Jane",
		Balance: decimal.NewFromInt(1000),
	})

	uc := usecase.NewUserUseCase(userRepo, txnRepo)

	user, err := uc.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !user.Balance.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected balance 1000, got %s", user.Balance)
	}

	_, err = uc.GetProfile(context.Background(), "user-2")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserUseCase_ListTransactions(t *testing.T) {
	userRepo := mocks.NewMockUserRepository()
	txnRepo := mocks.NewMockTransactionRepository()

	txnRepo.Seed(&domain.Transaction{ID: "txn-1", UserID: "user-1", Kind: domain.KindDeposit, Amount: decimal.NewFromInt(100)})
	txnRepo.Seed(&domain.Transaction{ID: "txn-2", UserID: "user-2", Kind: domain.KindDeposit, Amount: decimal.NewFromInt(200)})

	uc := usecase.NewUserUseCase(userRepo, txnRepo)

	txns, err := uc.ListTransactions(context.Background(), usecase.ListTransactionsInput{UserID: "user-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(txns) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txns))
	}
	if txns[0].ID != "txn-1" {
		t.Errorf("expected txn-1, got %s", txns[0].ID)
	}
}

func TestUserUseCase_ListTransactions_ClampsPaging(t *testing.T) {
	userRepo := mocks.NewMockUserRepository()
	txnRepo := mocks.NewMockTransactionRepository()

	var gotLimit, gotOffset int
	txnRepo.ListByUserFunc = func(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
		gotLimit, gotOffset = limit, offset
		return nil, nil
	}

	uc := usecase.NewUserUseCase(userRepo, txnRepo)

	if _, err := uc.ListTransactions(context.Background(), usecase.ListTransactionsInput{
		UserID: "user-1",
		Limit:  100000,
		Offset: -5,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotLimit != usecase.MaxPageSize {
		t.Errorf("expected limit clamped to %d, got %d", usecase.MaxPageSize, gotLimit)
	}
	if gotOffset != 0 {
		t.Errorf("expected offset clamped to 0, got %d", gotOffset)
	}
}
