package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noblecapital/payments/internal/domain"
)

// UserRepository defines data access for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByIDForUpdate locks the user row so the read-check-mutate sequence
	// on the balance is serialized against concurrent requests.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.User, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
}

// StatusFields carries the optional columns written alongside a status
// transition. Empty strings leave the column untouched.
type StatusFields struct {
	ProviderReceiptID string
	FailureReason     string
	AdminNotes        string
}

// TransactionRepository defines data access for transactions.
type TransactionRepository interface {
	// Create persists a new transaction. A provider correlation id that is
	// already recorded fails with domain.ErrDuplicateCorrelation.
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	// GetByExternalID is scoped by owner so one user cannot observe
	// another's transaction status.
	GetByExternalID(ctx context.Context, externalID, userID string) (*domain.Transaction, error)
	GetByCorrelationIDForUpdate(ctx context.Context, tx Transaction, correlationID string) (*domain.Transaction, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx Transaction, id string, status domain.TransactionStatus, fields StatusFields, updatedAt time.Time) error
	MarkAdminNotified(ctx context.Context, tx Transaction, id string, updatedAt time.Time) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error)
	ListWithdrawals(ctx context.Context, limit, offset int) ([]*domain.WithdrawalListItem, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// PaymentRequest is the outbound payment authorization request.
type PaymentRequest struct {
	Amount        decimal.Decimal
	ContactNumber string
	// Reference is the account reference shown on the payer's statement.
	Reference   string
	Description string
}

// PaymentResponse is the provider's synchronous answer.
type PaymentResponse struct {
	Accepted      bool
	CorrelationID string
	Message       string
}

// PaymentProvider is the external mobile-money gateway.
type PaymentProvider interface {
	RequestPayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)
}

// Notifier delivers out-of-band messages. Delivery is best-effort: callers
// never roll back committed state on a notification error.
type Notifier interface {
	Notify(ctx context.Context, recipient, subject, body string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
