package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/infrastructure/metrics"
)

// WithdrawalAction is an admin decision on a pending withdrawal.
type WithdrawalAction string

const (
	ActionApprove WithdrawalAction = "approve"
	ActionReject  WithdrawalAction = "reject"
)

// WithdrawalUseCase reserves funds for withdrawal requests and applies admin
// approval/rejection decisions.
type WithdrawalUseCase struct {
	txManager    TransactionManager
	txnRepo      TransactionRepository
	userRepo     UserRepository
	notifier     Notifier
	idGen        IDGenerator
	adminContact string
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

// NewWithdrawalUseCase creates a new WithdrawalUseCase. adminContact is the
// recipient of reservation notifications; empty disables them.
func NewWithdrawalUseCase(
	txManager TransactionManager,
	txnRepo TransactionRepository,
	userRepo UserRepository,
	notifier Notifier,
	idGen IDGenerator,
	adminContact string,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *WithdrawalUseCase {
	return &WithdrawalUseCase{
		txManager:    txManager,
		txnRepo:      txnRepo,
		userRepo:     userRepo,
		notifier:     notifier,
		idGen:        idGen,
		adminContact: adminContact,
		logger:       logger,
		metrics:      m,
	}
}

// RequestWithdrawalInput represents input for a withdrawal reservation.
type RequestWithdrawalInput struct {
	UserID        string
	Amount        decimal.Decimal
	ContactNumber string
}

// RequestWithdrawal debits the user's balance eagerly and persists a pending
// withdrawal in one unit of work. The eager debit reserves funds so the user
// cannot overdraw during the admin-review window. Admin notification is
// best-effort: a delivery failure leaves the reservation standing with
// AdminNotified false.
func (uc *WithdrawalUseCase) RequestWithdrawal(ctx context.Context, input RequestWithdrawalInput) (*domain.Transaction, error) {
	start := time.Now()

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if err := domain.ValidateContactNumber(input.ContactNumber); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	// Lock the user row: the balance check and the debit below must see a
	// value no concurrent reservation can change underneath us.
	user, err := uc.userRepo.GetByIDForUpdate(txCtx, tx, input.UserID)
	if err != nil {
		return nil, err
	}

	if err := user.ValidateDebit(input.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := &domain.Transaction{
		ID:            uc.idGen.Generate(),
		ExternalID:    uc.idGen.Generate(),
		UserID:        input.UserID,
		Kind:          domain.KindWithdrawal,
		Amount:        input.Amount,
		Method:        PaymentMethodMpesa,
		Status:        domain.StatusPending,
		ContactNumber: input.ContactNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := uc.txnRepo.Create(txCtx, tx, txn); err != nil {
		return nil, err
	}

	if err := uc.userRepo.UpdateBalance(txCtx, tx, user.ID, user.ApplyDebit(input.Amount), now); err != nil {
		return nil, err
	}

	if uc.notifyAdmin(ctx, user, txn) {
		if err := uc.txnRepo.MarkAdminNotified(txCtx, tx, txn.ID, now); err != nil {
			return nil, err
		}
		txn.AdminNotified = true
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("transaction_id", txn.ID).
		Str("user_id", txn.UserID).
		Str("amount", txn.Amount.String()).
		Bool("admin_notified", txn.AdminNotified).
		Msg("withdrawal reserved")

	if uc.metrics != nil {
		uc.metrics.WithdrawalsRequested.Inc()
		uc.metrics.WithdrawalDuration.Observe(time.Since(start).Seconds())
		amount, _ := txn.Amount.Float64()
		uc.metrics.TransactionAmount.WithLabelValues(string(domain.KindWithdrawal)).Observe(amount)
	}

	return txn, nil
}

// ProcessWithdrawalInput represents an admin decision.
type ProcessWithdrawalInput struct {
	TransactionID string
	Action        WithdrawalAction
	Notes         string
}

// ProcessWithdrawal finalizes a pending withdrawal. Approval records the
// decision with no further ledger change (funds were debited at reservation
// time). Rejection requires a reason and credits the reserved amount back in
// the same unit of work.
func (uc *WithdrawalUseCase) ProcessWithdrawal(ctx context.Context, input ProcessWithdrawalInput) (*domain.Transaction, error) {
	switch input.Action {
	case ActionApprove, ActionReject:
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidState, input.Action)
	}

	if input.Action == ActionReject && strings.TrimSpace(input.Notes) == "" {
		return nil, domain.ErrMissingReason
	}

	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	txn, err := uc.txnRepo.GetByIDForUpdate(txCtx, tx, input.TransactionID)
	if err != nil {
		return nil, err
	}

	if txn.Kind != domain.KindWithdrawal {
		return nil, domain.ErrTransactionNotFound
	}

	if txn.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: already %s", domain.ErrInvalidState, txn.Status)
	}

	now := time.Now().UTC()
	notes := input.Notes
	if input.Action == ActionApprove && notes == "" {
		notes = "Approved by admin"
	}

	var status domain.TransactionStatus
	switch input.Action {
	case ActionApprove:
		status = domain.StatusCompleted
	case ActionReject:
		status = domain.StatusRejected
	}

	if err := uc.txnRepo.UpdateStatus(txCtx, tx, txn.ID, status, StatusFields{AdminNotes: notes}, now); err != nil {
		return nil, err
	}

	if input.Action == ActionReject {
		// Compensating credit: return the reserved funds.
		user, err := uc.userRepo.GetByIDForUpdate(txCtx, tx, txn.UserID)
		if err != nil {
			return nil, err
		}

		if err := uc.userRepo.UpdateBalance(txCtx, tx, user.ID, user.ApplyCredit(txn.Amount), now); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, err
	}

	txn.Status = status
	txn.AdminNotes = notes
	txn.UpdatedAt = now

	uc.logger.Info().
		Str("transaction_id", txn.ID).
		Str("action", string(input.Action)).
		Msg("withdrawal processed")

	if uc.metrics != nil {
		uc.metrics.WithdrawalsProcessed.WithLabelValues(string(input.Action)).Inc()
	}

	// The state transition is committed; user notification failures are
	// logged and swallowed.
	uc.notifyUser(ctx, txn, input.Action, notes)

	return txn, nil
}

// ListWithdrawals returns withdrawal requests joined with their owners for
// the admin review list.
func (uc *WithdrawalUseCase) ListWithdrawals(ctx context.Context, limit, offset int) ([]*domain.WithdrawalListItem, error) {
	limit, offset = clampPage(limit, offset)
	return uc.txnRepo.ListWithdrawals(ctx, limit, offset)
}

// notifyAdmin reports whether the admin notification was delivered.
func (uc *WithdrawalUseCase) notifyAdmin(ctx context.Context, user *domain.User, txn *domain.Transaction) bool {
	if uc.notifier == nil || uc.adminContact == "" {
		return false
	}

	body := fmt.Sprintf(
		"New withdrawal request details:\n\n"+
			"Transaction ID: %s\n"+
			"User: %s (%s)\n"+
			"Amount: KES %s\n"+
			"Phone Number: %s\n"+
			"Date: %s\n\n"+
			"Please process this request in the admin dashboard.",
		txn.ExternalID, user.Name, user.Email, txn.Amount.StringFixed(2), txn.ContactNumber,
		txn.CreatedAt.Format(time.RFC1123),
	)

	if err := uc.notifier.Notify(ctx, uc.adminContact, "New Withdrawal Request", body); err != nil {
		uc.logger.Error().Err(err).Str("transaction_id", txn.ID).Msg("admin notification failed")
		if uc.metrics != nil {
			uc.metrics.NotificationFailures.WithLabelValues("admin").Inc()
		}
		return false
	}

	return true
}

func (uc *WithdrawalUseCase) notifyUser(ctx context.Context, txn *domain.Transaction, action WithdrawalAction, notes string) {
	if uc.notifier == nil || txn.ContactNumber == "" {
		return
	}

	var body string
	switch action {
	case ActionApprove:
		body = fmt.Sprintf(
			"Your withdrawal of KES %s has been processed and sent to your M-Pesa number %s.",
			txn.Amount.StringFixed(2), txn.ContactNumber,
		)
	case ActionReject:
		body = fmt.Sprintf(
			"Your withdrawal of KES %s has been rejected. Reason: %s. The funds have been returned to your account.",
			txn.Amount.StringFixed(2), notes,
		)
	}

	if err := uc.notifier.Notify(ctx, txn.ContactNumber, "Withdrawal Update", body); err != nil {
		uc.logger.Error().Err(err).Str("transaction_id", txn.ID).Msg("user notification failed")
		if uc.metrics != nil {
			uc.metrics.NotificationFailures.WithLabelValues("user").Inc()
		}
	}
}
