package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noblecapital/payments/internal/domain"
	"github.com/noblecapital/payments/internal/usecase"
)

const txnColumns = `id, external_id, user_id, kind, amount, method, status,
	provider_correlation_id, provider_receipt_id, failure_reason,
	contact_number, admin_notified, admin_notes, created_at, updated_at`

const pgErrUniqueViolation = "23505"

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create persists a new transaction. The unique index on
// provider_correlation_id enforces the one-transaction-per-correlation
// invariant at the store level.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx,
		`INSERT INTO transactions (`+txnColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		txn.ID,
		txn.ExternalID,
		txn.UserID,
		string(txn.Kind),
		decimalToNumeric(txn.Amount),
		txn.Method,
		string(txn.Status),
		textOrNull(txn.ProviderCorrelationID),
		textOrNull(txn.ProviderReceiptID),
		textOrNull(txn.FailureReason),
		textOrNull(txn.ContactNumber),
		txn.AdminNotified,
		textOrNull(txn.AdminNotes),
		timeToPgTimestamptz(txn.CreatedAt),
		timeToPgTimestamptz(txn.UpdatedAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation &&
			strings.Contains(pgErr.ConstraintName, "provider_correlation") {
			return domain.ErrDuplicateCorrelation
		}

		return err
	}

	return nil
}

// GetByExternalID retrieves a transaction by its client-facing id, scoped by
// owner.
func (r *TransactionRepository) GetByExternalID(ctx context.Context, externalID, userID string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE external_id = $1 AND user_id = $2`,
		externalID, userID)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return txn, nil
}

// GetByCorrelationIDForUpdate retrieves a transaction by provider correlation
// id with a FOR UPDATE lock, serializing concurrent callback deliveries.
func (r *TransactionRepository) GetByCorrelationIDForUpdate(ctx context.Context, tx usecase.Transaction, correlationID string) (*domain.Transaction, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE provider_correlation_id = $1 FOR UPDATE`,
		correlationID)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUnknownTransaction
		}

		return nil, err
	}

	return txn, nil
}

// GetByIDForUpdate retrieves a transaction by ID with a FOR UPDATE lock.
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Transaction, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return txn, nil
}

// UpdateStatus transitions a transaction and writes the accompanying fields.
// Empty fields leave the existing column values untouched.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, id string, status domain.TransactionStatus, fields usecase.StatusFields, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx,
		`UPDATE transactions
		 SET status = $2,
		     provider_receipt_id = COALESCE($3, provider_receipt_id),
		     failure_reason = COALESCE($4, failure_reason),
		     admin_notes = COALESCE($5, admin_notes),
		     updated_at = $6
		 WHERE id = $1`,
		id,
		string(status),
		textOrNull(fields.ProviderReceiptID),
		textOrNull(fields.FailureReason),
		textOrNull(fields.AdminNotes),
		timeToPgTimestamptz(updatedAt),
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// MarkAdminNotified records successful admin notification delivery.
func (r *TransactionRepository) MarkAdminNotified(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx,
		`UPDATE transactions SET admin_notified = TRUE, updated_at = $2 WHERE id = $1`,
		id, timeToPgTimestamptz(updatedAt))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// ListByUser lists a user's transactions, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+` FROM transactions
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}

	return txns, rows.Err()
}

// ListWithdrawals lists withdrawal requests joined with their owners, newest
// first, for the admin review list.
func (r *TransactionRepository) ListWithdrawals(ctx context.Context, limit, offset int) ([]*domain.WithdrawalListItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.external_id, t.user_id, t.kind, t.amount, t.method, t.status,
		        t.provider_correlation_id, t.provider_receipt_id, t.failure_reason,
		        t.contact_number, t.admin_notified, t.admin_notes, t.created_at, t.updated_at,
		        u.name, u.email
		 FROM transactions t
		 JOIN users u ON t.user_id = u.id
		 WHERE t.kind = 'withdrawal'
		 ORDER BY t.created_at DESC
		 LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.WithdrawalListItem
	for rows.Next() {
		var (
			item          domain.WithdrawalListItem
			amount        pgtype.Numeric
			correlationID pgtype.Text
			receiptID     pgtype.Text
			failureReason pgtype.Text
			contactNumber pgtype.Text
			adminNotes    pgtype.Text
			createdAt     pgtype.Timestamptz
			updatedAt     pgtype.Timestamptz
		)

		err := rows.Scan(
			&item.ID, &item.ExternalID, &item.UserID, &item.Kind, &amount,
			&item.Method, &item.Status, &correlationID, &receiptID,
			&failureReason, &contactNumber, &item.AdminNotified, &adminNotes,
			&createdAt, &updatedAt, &item.UserName, &item.UserEmail,
		)
		if err != nil {
			return nil, err
		}

		item.Amount = numericToDecimal(amount)
		item.ProviderCorrelationID = correlationID.String
		item.ProviderReceiptID = receiptID.String
		item.FailureReason = failureReason.String
		item.ContactNumber = contactNumber.String
		item.AdminNotes = adminNotes.String
		item.CreatedAt = createdAt.Time
		item.UpdatedAt = updatedAt.Time

		items = append(items, &item)
	}

	return items, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn           domain.Transaction
		amount        pgtype.Numeric
		correlationID pgtype.Text
		receiptID     pgtype.Text
		failureReason pgtype.Text
		contactNumber pgtype.Text
		adminNotes    pgtype.Text
		createdAt     pgtype.Timestamptz
		updatedAt     pgtype.Timestamptz
	)

	err := row.Scan(
		&txn.ID, &txn.ExternalID, &txn.UserID, &txn.Kind, &amount,
		&txn.Method, &txn.Status, &correlationID, &receiptID,
		&failureReason, &contactNumber, &txn.AdminNotified, &adminNotes,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount = numericToDecimal(amount)
	txn.ProviderCorrelationID = correlationID.String
	txn.ProviderReceiptID = receiptID.String
	txn.FailureReason = failureReason.String
	txn.ContactNumber = contactNumber.String
	txn.AdminNotes = adminNotes.String
	txn.CreatedAt = createdAt.Time
	txn.UpdatedAt = updatedAt.Time

	return &txn, nil
}
