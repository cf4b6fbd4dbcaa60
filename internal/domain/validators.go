package domain

import (
	"fmt"
	"regexp"
)

var currencyRegex = regexp.MustCompile(`^[a-zA-Z]{3}$`)

// ValidateCurrency checks if a currency code is a 3-letter ISO 4217 code.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return fmt.Errorf("invalid currency code: %s", currency)
	}
	return nil
}

// ValidatePositiveAmount checks that a token amount is positive.
func ValidatePositiveAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ValidateEntrySign checks that a signed ledger amount matches its kind.
// The database enforces the same rule with a CHECK constraint; this is the
// pre-flight check so bad writes fail before hitting the driver.
func ValidateEntrySign(kind EntryKind, amount int64) error {
	sign := kind.Sign()
	if sign == 0 {
		return fmt.Errorf("unknown entry kind: %s", kind)
	}
	if sign > 0 && amount <= 0 {
		return fmt.Errorf("%s entries must be positive, got %d", kind, amount)
	}
	if sign < 0 && amount >= 0 {
		return fmt.Errorf("%s entries must be negative, got %d", kind, amount)
	}
	return nil
}
