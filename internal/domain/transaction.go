package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes money in from money out.
type TransactionKind string

const (
	KindDeposit    TransactionKind = "deposit"
	KindWithdrawal TransactionKind = "withdrawal"
)

// TransactionStatus is the lifecycle state of a transaction.
// pending is the only non-terminal state: deposits leave it through a
// provider callback (completed/failed), withdrawals through an admin
// decision (completed/rejected).
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusRejected  TransactionStatus = "rejected"
)

// Terminal reports whether no further transition is allowed from s.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRejected
}

// Transaction is a single deposit or withdrawal attempt.
type Transaction struct {
	ID         string
	ExternalID string
	UserID     string
	Kind       TransactionKind
	Amount     decimal.Decimal
	Method     string
	Status     TransactionStatus

	// ProviderCorrelationID links an asynchronous provider callback back to
	// this transaction. Set once at creation for deposits, empty for
	// withdrawals.
	ProviderCorrelationID string
	ProviderReceiptID     string
	FailureReason         string

	ContactNumber string
	AdminNotified bool
	AdminNotes    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks the transaction's own invariants.
func (t *Transaction) Validate() error {
	if t.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if t.Kind == KindWithdrawal && t.ContactNumber == "" {
		return ErrInvalidContact
	}

	return nil
}

// CanTransitionTo reports whether moving to next is a legal state change.
// Once a transaction leaves pending it never returns.
func (t *Transaction) CanTransitionTo(next TransactionStatus) bool {
	if t.Status != StatusPending {
		return false
	}

	switch t.Kind {
	case KindDeposit:
		return next == StatusCompleted || next == StatusFailed
	case KindWithdrawal:
		return next == StatusCompleted || next == StatusRejected
	}

	return false
}

// WithdrawalListItem is a withdrawal request joined with its owner, as
// surfaced on the admin review list.
type WithdrawalListItem struct {
	Transaction

	UserName  string
	UserEmail string
}
