package service

import (
	"fmt"
	"math"
	"strings"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/pkg/apperror"

	"github.com/shopspring/decimal"
)

var (
	maxMinorUnits = decimal.NewFromInt(math.MaxInt64)
	minMinorUnits = decimal.NewFromInt(math.MinInt64)
)

// ValidateAmount rejects zero and negative amounts.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount(fmt.Errorf("%w: %d", domain.ErrInvalidAmount, amount))
	}
	return nil
}

// ParseMinorUnits converts a major-unit decimal string such as "12.34" into
// minor units using the currency exponent (2 for cents). Values with more
// fractional digits than the exponent allows are rejected, not rounded.
func ParseMinorUnits(value string, exponent int32) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, apperror.ErrInvalidAmount(fmt.Errorf("%w: %q is not a number", domain.ErrInvalidAmount, value))
	}

	minor := d.Shift(exponent)
	if !minor.IsInteger() {
		return 0, apperror.ErrInvalidAmount(fmt.Errorf("%w: %q has more than %d decimal places", domain.ErrInvalidAmount, value, exponent))
	}
	if minor.GreaterThan(maxMinorUnits) || minor.LessThan(minMinorUnits) {
		return 0, apperror.ErrInvalidAmount(fmt.Errorf("%w: %q overflows", domain.ErrInvalidAmount, value))
	}

	return minor.IntPart(), nil
}

// FormatMinorUnits renders minor units as a fixed-point major-unit string.
func FormatMinorUnits(amount int64, exponent int32) string {
	return decimal.New(amount, -exponent).StringFixed(exponent)
}

// ValidateSufficientFunds rejects debits larger than the wallet balance.
func ValidateSufficientFunds(wallet *domain.Wallet, amount int64) error {
	if !wallet.HasSufficientFunds(amount) {
		return apperror.ErrInsufficientFunds(fmt.Errorf("%w: wallet %s holds %d, needs %d",
			domain.ErrInsufficientFunds, wallet.ID, wallet.Balance, amount))
	}
	return nil
}

// ValidateCreditHeadroom rejects credits the wallet balance cannot hold.
func ValidateCreditHeadroom(wallet *domain.Wallet, amount int64) error {
	if !wallet.CanAbsorb(amount) {
		return apperror.ErrBalanceOverflow(fmt.Errorf("%w: wallet %s holds %d, credit %d",
			domain.ErrBalanceOverflow, wallet.ID, wallet.Balance, amount))
	}
	return nil
}

// ValidateDistinctParties rejects movements whose two sides resolve to the same wallet.
func ValidateDistinctParties(a, b *domain.Wallet) error {
	if a.ID == b.ID {
		return apperror.ErrSelfReferential(fmt.Errorf("%w: %s", domain.ErrSelfReferential, a.ID))
	}
	return nil
}

// ValidateSameCurrency rejects movements between wallets of different currencies.
func ValidateSameCurrency(a, b *domain.Wallet) error {
	if a.Currency != b.Currency {
		return apperror.ErrCurrencyMismatch(fmt.Errorf("%w: %s vs %s", domain.ErrCurrencyMismatch, a.Currency, b.Currency))
	}
	return nil
}
