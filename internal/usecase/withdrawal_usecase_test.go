package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/usecase"
	"github.com/noblecapital/payments/internal/usecase/mocks"
)

const adminEmail = "admin@example.com"

func newWithdrawalFixture() (*mocks.MockTransactionRepository, *mocks.MockUserRepository, *mocks.MockTransactionManager, *mocks.MockNotifier) {
	txnRepo := mocks.NewMockTransactionRepository()
	userRepo := mocks.NewMockUserRepository()
	txMgr := mocks.NewMockTransactionManager()
	notifier := mocks.NewMockNotifier()

	userRepo.Seed(&domain.User{
		ID:      "user-1",
		Email:   "jane@example.com",
		Name:    "Jane",
		Balance: decimal.NewFromInt(1000),
	})

	return txnRepo, userRepo, txMgr, notifier
}

func TestWithdrawalUseCase_RequestWithdrawal(t *testing.T) {
	txnRepo, userRepo, txMgr, notifier := newWithdrawalFixture()
	idGen := mocks.NewMockIDGenerator()

	uc := usecase.NewWithdrawalUseCase(txMgr, txnRepo, userRepo, notifier, idGen, adminEmail, zerolog.Nop(), nil)

	txn, err := uc.RequestWithdrawal(context.Background(), usecase.RequestWithdrawalInput{
		UserID:        "user-1",
		Amount:        decimal.NewFromInt(300),
		ContactNumber: "254712345678",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.Status != domain.StatusPending {
		t.Errorf("expected pending, got %s", txn.Status)
	}
	if txn.Kind != domain.KindWithdrawal {
		t.Errorf("expected withdrawal, got %s", txn.Kind)
	}

	// Funds are reserved the moment the request is accepted.
	if got := userRepo.Balance("user-1"); !got.Equal(decimal.NewFromInt(700)) {
		t.Errorf("expected balance 700, got %s", got)
	}

	if !txn.AdminNotified {
		t.Error("expected admin notified flag to be set")
	}
	if notifier.SentCount() != 1 {
		t.Errorf("expected 1 notification, got %d", notifier.SentCount())
	}
	if notifier.Sent[0].Recipient != adminEmail {
		t.Errorf("notification went to %s, want %s", notifier.Sent[0].Recipient, adminEmail)
	}
}

func TestWithdrawalUseCase_RequestWithdrawal_InsufficientBalance(t *testing.T) {
	txnRepo, userRepo, txMgr, notifier := newWithdrawalFixture()
	idGen := mocks.NewMockIDGenerator()

	uc := usecase.NewWithdrawalUseCase(txMgr, txnRepo, userRepo, notifier, idGen, adminEmail, zerolog.Nop(), nil)

	_, err := uc.RequestWithdrawal(context.Background(), usecase.RequestWithdrawalInput{
		UserID:        "user-1",
		Amount:        decimal.NewFromInt(5000),
		ContactNumber: "254712345678",
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// Fail fast: no transaction row, no debit, no notification.
	if txnRepo.Count() != 0 {
		t.Errorf("expected no transactions, got %d", txnRepo.Count())
	}
	if got := userRepo.Balance("user-1"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected balance 1000, got %s", got)
	}
	if txMgr.CommittedCount() != 0 {
		t.Errorf("expected no commits, got %d", txMgr.CommittedCount())
	}
	if notifier.SentCount() != 0 {
		t.Errorf("expected no notifications, got %d", notifier.SentCount())
	}
}

func TestWithdrawalUseCase_RequestWithdrawal_ConcurrentReservations(t *testing.T) {
	// Two 80-of-100 reservations serialized by the row lock: exactly one
	// succeeds and the loser sees the post-debit balance.
	txnRepo := mocks.NewMockTransactionRepository()
	userRepo := mocks.NewMockUserRepository()
	txMgr := mocks.NewMockTransactionManager()
	idGen := mocks.NewMockIDGenerator()

	userRepo.Seed(&domain.User{ID: "user-1", Balance: decimal.NewFromInt(100)})

	uc := usecase.NewWithdrawalUseCase(txMgr, txnRepo, userRepo, nil, idGen, "", zerolog.Nop(), nil)

	input := usecase.RequestWithdrawalInput{
		UserID:        "user-1",
		Amount:        decimal.NewFromInt(80),
		ContactNumber: "254712345678",
	}

	if _, err := uc.RequestWithdrawal(context.Background(), input); err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}

	_, err := uc.RequestWithdrawal(context.Background(), input)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance for second reservation, got %v", err)
	}

	if got := userRepo.Balance("user-1"); !got.Equal(decimal.NewFromInt(20)) {
		t.Errorf("expected balance 20, got %s", got)
	}
	if txnRepo.Count() != 1 {
		t.Errorf("expected 1 reservation, got %d", txnRepo.Count())
	}
}

func TestWithdrawalUseCase_RequestWithdrawal_NotifyFailureKeepsReservation(t *testing.T) {
	ctrl := gomock.NewController(t)

	messenger := mocks.NewMockMessenger(ctrl)
	messenger.EXPECT().
		Notify(gomock.Any(), adminEmail, gomock.Any(), gomock.Any()).
		Return(errors.New("smtp timeout"))

	txnRepo, userRepo, txMgr, _ := newWithdrawalFixture()
	idGen := mocks.NewMockIDGenerator()

	uc := usecase.NewWithdrawalUseCase(txMgr, txnRepo, userRepo, messenger, idGen, adminEmail, zerolog.Nop(), nil)

	txn, err := uc.RequestWithdrawal(context.Background(), usecase.RequestWithdrawalInput{
		UserID:        "user-1",
		Amount:        decimal.NewFromInt(300),
		ContactNumber: "254712345678",
	})
	if err != nil {
		t.Fatalf("notification failure must not fail the reservation: %v", err)
	}

	if txn.AdminNotified {
		t.Error("admin notified flag must stay false when delivery fails")
	}
	if got := userRepo.Balance("user-1"); !got.Equal(decimal.NewFromInt(700)) {
		t.Errorf("reservation must stand, balance %s", got)
	}
	if txMgr.CommittedCount() != 1 {
		t.Errorf("expected 1 commit, got %d", txMgr.CommittedCount())
	}
}

func TestWithdrawalUseCase_ProcessWithdrawal_Approve(t *testing.T) {
	txnRepo, userRepo, txMgr, notifier := newWithdrawalFixture()
	idGen := mocks.NewMockIDGenerator()

	txnRepo.Seed(&domain.Transaction{
		ID:            "txn-1",
		ExternalID:    "ext-1",
		UserID:        "user-1",
		Kind:          domain.KindWithdrawal,
		Amount:        decimal.NewFromInt(300),
		Status:        domain.StatusPending,
		ContactNumber: "254712345678",
	})

	uc := usecase.NewWithdrawalUseCase(txMgr, txnRepo, userRepo, notifier, idGen, adminEmail, zerolog.Nop(), nil)

	txn, err := uc.ProcessWithdrawal(context.Background(), usecase.ProcessWithdrawalInput{
		TransactionID: "txn-1",
		Action:        usecase.ActionApprove,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", txn.Status)
	}
	if txn.AdminNotes == "" {
		t.Error("expected default approval notes")
	}

	// Approval pays out the already-reserved funds: no balance change.
	if got := userRepo.Balance("user-1"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected balance 1000, got %s", got)
	}

	if notifier.SentCount() != 1 {
		t.Fatalf("expected user notification, got %d", notifier.SentCount())
	}
	if notifier.Sent[0].Recipient != "254712345678" {
		t.Errorf("notification went to %s", notifier.Sent[0].Recipient)
	}
	if !strings.Contains(notifier.Sent[0].Body, "processed") {
		t.Errorf("unexpected notification body %q", notifier.Sent[0].Body)
	}
}

func TestWithdrawalUseCase_ProcessWithdrawal_Reject(t *testing.T) {
	txnRepo, userRepo, txMgr, notifier := newWithdrawalFixture()
	idGen := mocks.NewMockIDGenerator()

	// Balance already reflects the reservation debit.
	userRepo.Seed(&domain.User{ID: "user-1", Email: "jane@example.com", Name: "Jane", Balance: decimal.NewFromInt(700)})
	txnRepo.Seed(&domain.Transaction{
		ID:            "txn-1",
		ExternalID:    "ext-1",
		UserID:        "user-1",
		Kind:          domain.KindWithdrawal,
		Amount:        decimal.NewFromInt(300),
		Status:        domain.StatusPending,
		ContactNumber: "254712345678",
	})

	uc := usecase.NewWithdrawalUseCase(txMgr, txnRepo, userRepo, notifier, idGen, adminEmail, zerolog.Nop(), nil)

	txn, err := uc.ProcessWithdrawal(context.Background(), usecase.ProcessWithdrawalInput{
		TransactionID: "txn-1",
		Action:        usecase.ActionReject,
		Notes:         "Suspicious activity",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.Status != domain.StatusRejected {
		t.Errorf("expected rejected, got %s", txn.Status)
	}

	// Rejection restores the reserved funds in the same unit of work.
	if got := userRepo.Balance("user-1"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected balance 1000, got %s", got)
	}

	if notifier.SentCount() != 1 {
		t.Fatalf("expected user notification, got %d", notifier.SentCount())
	}
	if !strings.Contains(notifier.Sent[0].Body, "Suspicious activity") {
		t.Errorf("rejection reason missing from notification: %q", notifier.Sent[0].Body)
	}
}

func TestWithdrawalUseCase_ProcessWithdrawal_Validation(t *testing.T) {
	tests := []struct {
		name      string
		seed      *domain.Transaction
		input     usecase.ProcessWithdrawalInput
		errorType error
	}{
		{
			name: "reject requires a reason",
			seed: &domain.Transaction{
				ID: "txn-1", UserID: "user-1", Kind: domain.KindWithdrawal,
				Amount: decimal.NewFromInt(300), Status: domain.StatusPending,
			},
			input: usecase.ProcessWithdrawalInput{
				TransactionID: "txn-1",
				Action:        usecase.ActionReject,
				Notes:         "   ",
			},
			errorType: domain.ErrMissingReason,
		},
		{
			name: "unknown action",
			seed: &domain.Transaction{
				ID: "txn-1", UserID: "user-1", Kind: domain.KindWithdrawal,
				Amount: decimal.NewFromInt(300), Status: domain.StatusPending,
			},
			input: usecase.ProcessWithdrawalInput{
				TransactionID: "txn-1",
				Action:        "escalate",
			},
			errorType: domain.ErrInvalidState,
		},
		{
			name: "already processed",
			seed: &domain.Transaction{
				ID: "txn-1", UserID: "user-1", Kind: domain.KindWithdrawal,
				Amount: decimal.NewFromInt(300), Status: domain.StatusCompleted,
			},
			input: usecase.ProcessWithdrawalInput{
				TransactionID: "txn-1",
				Action:        usecase.ActionApprove,
			},
			errorType: domain.ErrInvalidState,
		},
		{
			name: "deposit id is not a withdrawal",
			seed: &domain.Transaction{
				ID: "txn-1", UserID: "user-1", Kind: domain.KindDeposit,
				Amount: decimal.NewFromInt(300), Status: domain.StatusPending,
			},
			input: usecase.ProcessWithdrawalInput{
				TransactionID: "txn-1",
				Action:        usecase.ActionApprove,
			},
			errorType: domain.ErrTransactionNotFound,
		},
		{
			name: "missing transaction",
			input: usecase.ProcessWithdrawalInput{
				TransactionID: "does-not-exist",
				Action:        usecase.ActionApprove,
			},
			errorType: domain.ErrTransactionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txnRepo, userRepo, txMgr, notifier := newWithdrawalFixture()
			idGen := mocks.NewMockIDGenerator()

			if tt.seed != nil {
				txnRepo.Seed(tt.seed)
			}

			uc := usecase.NewWithdrawalUseCase(txMgr, txnRepo, userRepo, notifier, idGen, adminEmail, zerolog.Nop(), nil)

			_, err := uc.ProcessWithdrawal(context.Background(), tt.input)
			if !errors.Is(err, tt.errorType) {
				t.Fatalf("expected %v, got %v", tt.errorType, err)
			}

			if txMgr.CommittedCount() != 0 {
				t.Errorf("expected no commits, got %d", txMgr.CommittedCount())
			}
			if notifier.SentCount() != 0 {
				t.Errorf("expected no notifications, got %d", notifier.SentCount())
			}
		})
	}
}

func TestWithdrawalUseCase_RequestThenReject_Conservation(t *testing.T) {
	txnRepo, userRepo, txMgr, notifier := newWithdrawalFixture()
	idGen := mocks.NewMockIDGenerator()

	uc := usecase.NewWithdrawalUseCase(txMgr, txnRepo, userRepo, notifier, idGen, adminEmail, zerolog.Nop(), nil)

	txn, err := uc.RequestWithdrawal(context.Background(), usecase.RequestWithdrawalInput{
		UserID:        "user-1",
		Amount:        decimal.NewFromInt(500),
		ContactNumber: "254712345678",
	})
	if err != nil {
		t.Fatalf("reservation failed: %v", err)
	}

	if _, err := uc.ProcessWithdrawal(context.Background(), usecase.ProcessWithdrawalInput{
		TransactionID: txn.ID,
		Action:        usecase.ActionReject,
		Notes:         "user request",
	}); err != nil {
		t.Fatalf("rejection failed: %v", err)
	}

	// Reserve-then-reject must be a complete round trip.
	if got := userRepo.Balance("user-1"); !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("expected balance restored to 1000, got %s", got)
	}
}

func TestWithdrawalUseCase_ListWithdrawals(t *testing.T) {
	txnRepo, userRepo, txMgr, notifier := newWithdrawalFixture()
	idGen := mocks.NewMockIDGenerator()

	txnRepo.Seed(&domain.Transaction{
		ID: "txn-1", UserID: "user-1", Kind: domain.KindWithdrawal,
		Amount: decimal.NewFromInt(300), Status: domain.StatusPending,
	})
	txnRepo.Seed(&domain.Transaction{
		ID: "txn-2", UserID: "user-1", Kind: domain.KindDeposit,
		Amount: decimal.NewFromInt(100), Status: domain.StatusPending,
	})

	uc := usecase.NewWithdrawalUseCase(txMgr, txnRepo, userRepo, notifier, idGen, adminEmail, zerolog.Nop(), nil)

	items, err := uc.ListWithdrawals(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("expected 1 withdrawal, got %d", len(items))
	}
	if items[0].ID != "txn-1" {
		t.Errorf("expected txn-1, got %s", items[0].ID)
	}
}
