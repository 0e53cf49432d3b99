package currency

import (
	"fmt"
	"strings"
)

type CurrencyUtils struct{}

func NewCurrencyUtils() *CurrencyUtils {
	return &CurrencyUtils{}
}

// ValidAmount reports whether an amount is acceptable for a payment.
// The wallet rejects non-positive amounts, so they are caught here
// before a session is ever created.
func (u *CurrencyUtils) ValidAmount(amount float64) bool {
	return amount > 0
}

// FormatAmount formats a coin amount for wallet memos, trimming
// insignificant trailing zeros ("10", "2.5", "0.0001").
func (u *CurrencyUtils) FormatAmount(amount float64) string {
	s := fmt.Sprintf("%.7f", amount)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}

// FormatMemo builds the human-readable description the wallet UI shows
// for a payment.
func (u *CurrencyUtils) FormatMemo(action string, amount float64) string {
	return fmt.Sprintf("%s %s", action, u.FormatAmount(amount))
}
