package domain

import "errors"

var (
	// Validation errors
	ErrInvalidAmount  = errors.New("amount must be positive")
	ErrInvalidContact = errors.New("invalid phone number, use format 254XXXXXXXXX")

	// Balance errors
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Transaction errors
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrUnknownTransaction   = errors.New("no transaction matches the provider correlation id")
	ErrDuplicateCorrelation = errors.New("provider correlation id already recorded")
	ErrInvalidState         = errors.New("transaction is not in a processable state")
	ErrMissingReason        = errors.New("rejection reason is required")

	// Provider errors
	ErrProviderRejected = errors.New("payment provider rejected the request")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Authorization errors
	ErrUnauthorized = errors.New("admin access required")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)
