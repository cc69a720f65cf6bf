// Package units converts between human-readable token amounts ("10.5") and
// the integer base units a contract works with (10.5 · 10^decimals).
//
// Conversions are exact: no floating point is involved in either direction.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
)

// TokenDecimals is the number of fractional digits used by PRT.
const TokenDecimals = 18

// maxDecimals keeps 10^decimals inside a uint256.
const maxDecimals = 77

// Errors.
var (
	ErrEmptyAmount     = errors.New("amount is empty")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrTooManyDecimals = errors.New("too many decimal places")
	ErrInvalidDecimals = errors.New("decimals must be between 0 and 77")
	ErrAmountTooLarge  = errors.New("amount does not fit in uint256")
)

// Pow10 returns 10^decimals.
func Pow10(decimals int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// ParseUnits converts a decimal string into base units scaled by
// 10^decimals. "10.5" with 18 decimals → 10500000000000000000.
//
// Accepted forms are "5", "5.", ".5" and "0.000001"; digit separators such
// as "1_000" are rejected. A leading "+" is tolerated, a leading "-" is not.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > maxDecimals {
		return nil, ErrInvalidDecimals
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyAmount
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("%w: %s", ErrNegativeAmount, s)
	}
	s = strings.TrimPrefix(s, "+")

	whole, frac, hasDot := strings.Cut(s, ".")
	if strings.Contains(frac, ".") || (whole == "" && frac == "") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if hasDot {
		frac = strings.TrimRight(frac, "0")
	}
	if len(frac) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d", ErrTooManyDecimals, s, decimals)
	}

	if whole == "" {
		whole = "0"
	}
	padded := whole + frac + strings.Repeat("0", decimals-len(frac))
	n, ok := new(big.Int).SetString(padded, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if n.Cmp(math.MaxBig256) > 0 {
		return nil, fmt.Errorf("%w: %q", ErrAmountTooLarge, s)
	}
	return n, nil
}

// FormatUnits renders base units as a decimal string with trailing zeros
// trimmed but at least one fractional digit, matching the convention used
// by browser wallets: 10^18 → "1.0", 105·10^17 → "10.5", 0 → "0.0".
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		return "0.0"
	}
	if decimals <= 0 {
		return v.String() + ".0"
	}

	neg := v.Sign() < 0
	abs := new(big.Int).Abs(v)
	digits := abs.String()
	if len(digits) <= decimals {
		digits = strings.Repeat("0", decimals-len(digits)+1) + digits
	}

	cut := len(digits) - decimals
	whole, frac := digits[:cut], strings.TrimRight(digits[cut:], "0")
	if frac == "" {
		frac = "0"
	}

	out := whole + "." + frac
	if neg {
		out = "-" + out
	}
	return out
}

// ParseToken is ParseUnits with the PRT decimals.
func ParseToken(s string) (*big.Int, error) { return ParseUnits(s, TokenDecimals) }

// FormatToken is FormatUnits with the PRT decimals.
func FormatToken(v *big.Int) string { return FormatUnits(v, TokenDecimals) }

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
