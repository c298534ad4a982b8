package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/infrastructure/metrics"
)

// ProviderSuccessCode is the result code the gateway sends for a
// successfully collected payment.
const ProviderSuccessCode = 0

// CallbackUseCase reconciles asynchronous provider callbacks against pending
// deposit transactions.
type CallbackUseCase struct {
	txManager TransactionManager
	txnRepo   TransactionRepository
	userRepo  UserRepository
	logger    zerolog.Logger
	metrics   *metrics.Metrics
}

// NewCallbackUseCase creates a new CallbackUseCase.
func NewCallbackUseCase(
	txManager TransactionManager,
	txnRepo TransactionRepository,
	userRepo UserRepository,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *CallbackUseCase {
	return &CallbackUseCase{
		txManager: txManager,
		txnRepo:   txnRepo,
		userRepo:  userRepo,
		logger:    logger,
		metrics:   m,
	}
}

// CallbackInput is the normalized provider callback payload.
type CallbackInput struct {
	CorrelationID     string
	ResultCode        int
	ResultDescription string
	ReceiptID         string
}

// Reconcile transitions the correlated pending transaction to completed or
// failed, crediting the owner's balance in the same unit of work on success.
// Replays of already reconciled callbacks are no-ops. Callers acknowledge
// the provider regardless of the returned error.
func (uc *CallbackUseCase) Reconcile(ctx context.Context, input CallbackInput) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Row lock serializes concurrent redeliveries for one correlation id.
	txn, err := uc.txnRepo.GetByCorrelationIDForUpdate(txCtx, tx, input.CorrelationID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTransaction) {
			uc.logger.Error().
				Str("correlation_id", input.CorrelationID).
				Int("result_code", input.ResultCode).
				Msg("callback for unknown transaction")
			if uc.metrics != nil {
				uc.metrics.CallbacksUnknown.Inc()
			}
		}
		return err
	}

	if txn.Status.Terminal() {
		uc.logger.Warn().
			Str("correlation_id", input.CorrelationID).
			Str("status", string(txn.Status)).
			Msg("callback replay for reconciled transaction, ignoring")
		if uc.metrics != nil {
			uc.metrics.CallbacksReplayed.Inc()
		}
		return nil
	}

	now := time.Now().UTC()

	if input.ResultCode == ProviderSuccessCode {
		if err := uc.complete(txCtx, tx, txn, input.ReceiptID, now); err != nil {
			return err
		}
	} else {
		fields := StatusFields{FailureReason: input.ResultDescription}
		if err := uc.txnRepo.UpdateStatus(txCtx, tx, txn.ID, domain.StatusFailed, fields, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return err
	}

	outcome := string(domain.StatusCompleted)
	if input.ResultCode != ProviderSuccessCode {
		outcome = string(domain.StatusFailed)
	}

	uc.logger.Info().
		Str("correlation_id", input.CorrelationID).
		Str("transaction_id", txn.ID).
		Str("outcome", outcome).
		Msg("callback reconciled")

	if uc.metrics != nil {
		uc.metrics.CallbacksProcessed.WithLabelValues(outcome).Inc()
	}

	return nil
}

// complete marks the deposit completed and credits the owner. This is the
// only point where a deposit amount enters the balance.
func (uc *CallbackUseCase) complete(ctx context.Context, tx Transaction, txn *domain.Transaction, receiptID string, now time.Time) error {
	fields := StatusFields{ProviderReceiptID: receiptID}
	if err := uc.txnRepo.UpdateStatus(ctx, tx, txn.ID, domain.StatusCompleted, fields, now); err != nil {
		return err
	}

	user, err := uc.userRepo.GetByIDForUpdate(ctx, tx, txn.UserID)
	if err != nil {
		return err
	}

	return uc.userRepo.UpdateBalance(ctx, tx, user.ID, user.ApplyCredit(txn.Amount), now)
}
