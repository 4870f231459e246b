package payment

import (
	"errors"
	"math"
	"testing"

	"paygate/internal/models"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		amount   float64
		currency string
		want     int64
	}{
		{250.00, "INR", 25000},
		{19.99, "usd", 1999},
		{0.1 + 0.2, "USD", 30},
		{1.005, "EUR", 100},
		{1500, "JPY", 1500},
		{1.234, "KWD", 1234},
		{12.5, "BHD", 12500},
	}
	for _, c := range cases {
		if got := ToMinorUnits(c.amount, c.currency); got != c.want {
			t.Fatalf("ToMinorUnits(%v, %s) = %d, want %d", c.amount, c.currency, got, c.want)
		}
	}
}

func TestFormatMajor(t *testing.T) {
	cases := map[string]struct {
		amount   int64
		currency string
		want     string
	}{
		"two decimals":   {25000, "USD", "250.00"},
		"cents":          {1999, "EUR", "19.99"},
		"small":          {5, "USD", "0.05"},
		"zero decimal":   {1500, "JPY", "1500"},
		"three decimals": {1234, "KWD", "1.234"},
		"negative":       {-150, "USD", "-1.50"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if got := FormatMajor(c.amount, c.currency); got != c.want {
				t.Fatalf("FormatMajor(%d, %s) = %q, want %q", c.amount, c.currency, got, c.want)
			}
		})
	}
}

func TestParseMajor(t *testing.T) {
	got, err := ParseMajor("250.00", "USD")
	if err != nil || got != 25000 {
		t.Fatalf("ParseMajor = %d, %v", got, err)
	}
	if _, err := ParseMajor("abc", "USD"); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}

func TestMinorUnitRoundTrip(t *testing.T) {
	for _, currency := range []string{"USD", "INR", "JPY", "KWD"} {
		for _, minor := range []int64{1, 99, 100, 12345, 999999} {
			major := FromMinorUnits(minor, currency)
			if back := ToMinorUnits(major, currency); back != minor {
				t.Fatalf("%s: %d -> %v -> %d", currency, minor, major, back)
			}
		}
	}
}

func TestValidateAmount(t *testing.T) {
	for _, amount := range []float64{0, -1, math.NaN(), math.Inf(1), 0.001} {
		err := validateAmount(models.ProviderStripe, "create_order", amount, "USD")
		if !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("amount %v: expected InvalidRequest, got %v", amount, err)
		}
	}
	if err := validateAmount(models.ProviderStripe, "create_order", 10, "US"); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected InvalidRequest for bad currency, got %v", err)
	}
	if err := validateAmount(models.ProviderStripe, "create_order", 10, "USD"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
