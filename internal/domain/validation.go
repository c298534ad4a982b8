package domain

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	// MaxTransactionAmount matches the NUMERIC(12,2) column width.
	MaxTransactionAmount = "9999999999.99"

	// AmountPrecision is the number of decimal places money is kept at.
	AmountPrecision = 2
)

// Subscriber number format required by the mobile-money provider.
var phoneRegex = regexp.MustCompile(`^254\d{9}$`)

// ValidateAmount validates a deposit/withdrawal amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if amount.Exponent() < -AmountPrecision {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, AmountPrecision)
	}

	maxAmount, _ := decimal.NewFromString(MaxTransactionAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrInvalidAmount, MaxTransactionAmount)
	}

	return nil
}

// ValidateContactNumber validates a subscriber phone number.
func ValidateContactNumber(number string) error {
	if !phoneRegex.MatchString(number) {
		return ErrInvalidContact
	}
	return nil
}
