package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/infrastructure/metrics"
)

// DepositUseCase initiates mobile-money deposits and serves owner-scoped
// status lookups.
type DepositUseCase struct {
	txManager TransactionManager
	txnRepo   TransactionRepository
	provider  PaymentProvider
	idGen     IDGenerator
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewDepositUseCase creates a new DepositUseCase.
func NewDepositUseCase(
	txManager TransactionManager,
	txnRepo TransactionRepository,
	provider PaymentProvider,
	idGen IDGenerator,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *DepositUseCase {
	return &DepositUseCase{
		txManager: txManager,
		txnRepo:   txnRepo,
		provider:  provider,
		idGen:     idGen,
		logger:    logger,
		metrics:   m,
	}
}

// InitiateDepositInput represents input for initiating a deposit.
type InitiateDepositInput struct {
	UserID        string
	Amount        decimal.Decimal
	ContactNumber string
}

// InitiateDeposit validates the request, asks the provider to authorize the
// payment, and persists a pending transaction correlated to the provider's
// response. Nothing is persisted unless the provider accepts.
func (uc *DepositUseCase) InitiateDeposit(ctx context.Context, input InitiateDepositInput) (*domain.Transaction, error) {
	start := time.Now()

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if err := domain.ValidateContactNumber(input.ContactNumber); err != nil {
		return nil, err
	}

	externalID := uc.idGen.Generate()

	resp, err := uc.provider.RequestPayment(ctx, PaymentRequest{
		Amount:        input.Amount,
		ContactNumber: input.ContactNumber,
		Reference:     fmt.Sprintf("ACC%s", input.UserID),
		Description:   fmt.Sprintf("Payment for account %s", input.UserID),
	})
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.DepositsRejected.Inc()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderRejected, err)
	}

	if !resp.Accepted {
		if uc.metrics != nil {
			uc.metrics.DepositsRejected.Inc()
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderRejected, resp.Message)
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:                    uc.idGen.Generate(),
		ExternalID:            externalID,
		UserID:                input.UserID,
		Kind:                  domain.KindDeposit,
		Amount:                input.Amount,
		Method:                PaymentMethodMpesa,
		Status:                domain.StatusPending,
		ProviderCorrelationID: resp.CorrelationID,
		ContactNumber:         input.ContactNumber,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := uc.txnRepo.Create(txCtx, tx, txn); err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("external_id", txn.ExternalID).
		Str("correlation_id", txn.ProviderCorrelationID).
		Str("user_id", txn.UserID).
		Str("amount", txn.Amount.String()).
		Msg("deposit initiated")

	if uc.metrics != nil {
		uc.metrics.DepositsInitiated.Inc()
		uc.metrics.DepositDuration.Observe(time.Since(start).Seconds())
		amount, _ := txn.Amount.Float64()
		uc.metrics.TransactionAmount.WithLabelValues(string(domain.KindDeposit)).Observe(amount)
	}

	return txn, nil
}

// GetTransactionStatus returns the caller's transaction by external id.
// Lookups are scoped by owner: a transaction belonging to another user is
// indistinguishable from a missing one.
func (uc *DepositUseCase) GetTransactionStatus(ctx context.Context, externalID, userID string) (*domain.Transaction, error) {
	return uc.txnRepo.GetByExternalID(ctx, externalID, userID)
}
