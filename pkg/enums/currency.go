package enums

import (
	"fmt"
	"strings"
)

// Currency is the ISO 4217 code charges settle in. Storefront prices are
// pesos; USD exists for Square sandbox accounts that only settle dollars.
type Currency string

const (
	CurrencyMXN Currency = "MXN"
	CurrencyUSD Currency = "USD"
)

func (c Currency) String() string { return string(c) }

// ParseCurrency ignores case and surrounding space. A blank value is MXN.
func ParseCurrency(raw string) (Currency, error) {
	switch c := Currency(strings.ToUpper(strings.TrimSpace(raw))); c {
	case "":
		return CurrencyMXN, nil
	case CurrencyMXN, CurrencyUSD:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported currency %q", raw)
	}
}
