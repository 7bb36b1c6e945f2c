package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits an amount or balance may carry.
const MoneyScale int32 = 2

// AccountDB represents an account row in the database
type AccountDB struct {
	AccountID int64           `json:"account_id" db:"account_id"` // Primary key
	UserID    int64           `json:"user_id" db:"user_id"`       // Identifier of the account's owner
	Balance   decimal.Decimal `json:"balance" db:"balance"`       // Current balance, never negative
	CreatedAt time.Time       `json:"created_at" db:"created_at"` // Creation timestamp
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"` // Last update timestamp
}

// ValidAmount reports whether amount is a positive value with at most MoneyScale fractional digits.
func ValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Truncate(MoneyScale))
}
