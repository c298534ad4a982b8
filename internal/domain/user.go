package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is an account holder. Balance is mutated only through guarded
// debit/credit operations inside a store transaction.
type User struct {
	ID        string
	Email     string
	Name      string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateDebit checks whether the balance covers amount.
func (u *User) ValidateDebit(amount decimal.Decimal) error {
	if u.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	return nil
}

// ApplyDebit returns the balance after a debit of amount.
func (u *User) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return u.Balance.Sub(amount)
}

// ApplyCredit returns the balance after a credit of amount.
func (u *User) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return u.Balance.Add(amount)
}
