package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noblecapital/payments/internal/usecase"
)

// DepositRequest is the request body for initiating a deposit.
type DepositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phone_number"`
}

// ToUseCaseInput converts the request to use case input.
func (r *DepositRequest) ToUseCaseInput(userID string) usecase.InitiateDepositInput {
	return usecase.InitiateDepositInput{
		UserID:        userID,
		Amount:        r.Amount,
		ContactNumber: r.PhoneNumber,
	}
}

// WithdrawalRequest is the request body for a withdrawal reservation.
type WithdrawalRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PhoneNumber string          `json:"phone_number"`
}

// ToUseCaseInput converts the request to use case input.
func (r *WithdrawalRequest) ToUseCaseInput(userID string) usecase.RequestWithdrawalInput {
	return usecase.RequestWithdrawalInput{
		UserID:        userID,
		Amount:        r.Amount,
		ContactNumber: r.PhoneNumber,
	}
}

// ProcessWithdrawalRequest is the admin decision body.
type ProcessWithdrawalRequest struct {
	Action string `json:"action"` // approve or reject
	Notes  string `json:"notes,omitempty"`
}

// ToUseCaseInput converts the request to use case input.
func (r *ProcessWithdrawalRequest) ToUseCaseInput(transactionID string) usecase.ProcessWithdrawalInput {
	return usecase.ProcessWithdrawalInput{
		TransactionID: transactionID,
		Action:        usecase.WithdrawalAction(r.Action),
		Notes:         r.Notes,
	}
}
