package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noblecapital/payments/internal/domain"
)

// TransactionResponse represents a transaction in API responses. The internal
// id and provider correlation id are never exposed; clients address
// transactions by external id.
type TransactionResponse struct {
	ExternalID        string          `json:"external_id"`
	Kind              string          `json:"kind"`
	Amount            decimal.Decimal `json:"amount"`
	Method            string          `json:"method"`
	Status            string          `json:"status"`
	ProviderReceiptID string          `json:"provider_receipt_id,omitempty"`
	FailureReason     string          `json:"failure_reason,omitempty"`
	AdminNotes        string          `json:"admin_notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ExternalID:        t.ExternalID,
		Kind:              string(t.Kind),
		Amount:            t.Amount,
		Method:            t.Method,
		Status:            string(t.Status),
		ProviderReceiptID: t.ProviderReceiptID,
		FailureReason:     t.FailureReason,
		AdminNotes:        t.AdminNotes,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ListTransactionsResponse wraps a page of transactions.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Total        int64                  `json:"total"`
}

// WithdrawalListItemResponse is one row of the admin withdrawal review list.
type WithdrawalListItemResponse struct {
	ID            string          `json:"id"`
	ExternalID    string          `json:"external_id"`
	UserID        string          `json:"user_id"`
	UserName      string          `json:"user_name"`
	UserEmail     string          `json:"user_email"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PhoneNumber   string          `json:"phone_number"`
	AdminNotified bool            `json:"admin_notified"`
	AdminNotes    string          `json:"admin_notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// WithdrawalListFromDomain converts withdrawal list items to responses.
func WithdrawalListFromDomain(items []*domain.WithdrawalListItem) []*WithdrawalListItemResponse {
	result := make([]*WithdrawalListItemResponse, len(items))
	for i, item := range items {
		result[i] = &WithdrawalListItemResponse{
			ID:            item.ID,
			ExternalID:    item.ExternalID,
			UserID:        item.UserID,
			UserName:      item.UserName,
			UserEmail:     item.UserEmail,
			Amount:        item.Amount,
			Status:        string(item.Status),
			PhoneNumber:   item.ContactNumber,
			AdminNotified: item.AdminNotified,
			AdminNotes:    item.AdminNotes,
			CreatedAt:     item.CreatedAt,
			UpdatedAt:     item.UpdatedAt,
		}
	}
	return result
}

// ListWithdrawalsResponse wraps a page of withdrawal requests.
type ListWithdrawalsResponse struct {
	Withdrawals []*WithdrawalListItemResponse `json:"withdrawals"`
	Total       int64                         `json:"total"`
}

// UserResponse represents a user profile in API responses.
type UserResponse struct {
	ID        string          `json:"id"`
	Email     string          `json:"email"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// UserFromDomain converts a domain user to a response.
func UserFromDomain(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Balance:   u.Balance,
		CreatedAt: u.CreatedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
