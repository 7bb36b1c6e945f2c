package cli

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/sbilibin2017/gw-ledger/internal/models"
)

func parseAccountID(name, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitUsage, fmt.Sprintf("invalid %s %q: must be a positive integer", name, s))
	}
	return id, nil
}

// parseAmount accepts a positive decimal with at most two fractional digits.
func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, WrapExitError(ExitUsage, fmt.Sprintf("invalid amount %q", s), err)
	}
	if !models.ValidAmount(amount) {
		return decimal.Zero, WrapExitError(ExitUsage, fmt.Sprintf("invalid amount %q", s), models.ErrInvalidAmount)
	}
	return amount, nil
}
