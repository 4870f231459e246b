package payment

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"paygate/internal/models"
)

var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "JPY": true, "KMF": true,
	"KRW": true, "MGA": true, "PYG": true, "RWF": true, "UGX": true, "VND": true,
	"VUV": true, "XAF": true, "XOF": true, "XPF": true,
}

var threeDecimalCurrencies = map[string]bool{
	"BHD": true, "JOD": true, "KWD": true, "OMR": true, "TND": true,
}

// MinorUnitFactor returns how many minor units make one major unit.
func MinorUnitFactor(currency string) int64 {
	c := strings.ToUpper(strings.TrimSpace(currency))
	switch {
	case zeroDecimalCurrencies[c]:
		return 1
	case threeDecimalCurrencies[c]:
		return 1000
	default:
		return 100
	}
}

func minorDigits(currency string) int {
	switch MinorUnitFactor(currency) {
	case 1:
		return 0
	case 1000:
		return 3
	default:
		return 2
	}
}

// ToMinorUnits converts a major-unit amount to round(amount * factor).
func ToMinorUnits(amount float64, currency string) int64 {
	return int64(math.Round(amount * float64(MinorUnitFactor(currency))))
}

// FromMinorUnits converts minor units back to a major-unit float.
func FromMinorUnits(amount int64, currency string) float64 {
	return float64(amount) / float64(MinorUnitFactor(currency))
}

// FormatMajor renders minor units as a fixed-point decimal string ("250.00").
func FormatMajor(amount int64, currency string) string {
	digits := minorDigits(currency)
	if digits == 0 {
		return strconv.FormatInt(amount, 10)
	}
	factor := MinorUnitFactor(currency)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%0*d", sign, amount/factor, digits, amount%factor)
}

// ParseMajor parses a provider decimal string into minor units.
func ParseMajor(value, currency string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return ToMinorUnits(f, currency), nil
}

func validateAmount(provider models.Provider, op string, amount float64, currency string) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return newError(KindInvalidRequest, provider, op, fmt.Sprintf("amount must be positive, got %v", amount), nil)
	}
	if len(strings.TrimSpace(currency)) != 3 {
		return newError(KindInvalidRequest, provider, op, fmt.Sprintf("invalid currency %q", currency), nil)
	}
	if ToMinorUnits(amount, currency) <= 0 {
		return newError(KindInvalidRequest, provider, op, "amount rounds to zero minor units", nil)
	}
	return nil
}
