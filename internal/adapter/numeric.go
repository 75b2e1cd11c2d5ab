package adapter

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// parseDecimal parses a money or price field, tolerating surrounding
// whitespace and comma thousands separators ("1,234.50").
func parseDecimal(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty numeric field")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad number %q", s)
	}
	return d, nil
}

// parseOptionalDecimal is parseDecimal with empty treated as zero.
func parseOptionalDecimal(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return parseDecimal(s)
}

// parseQuantity parses a strictly positive whole-number quantity. Some
// exports render quantities as "100.0".
func parseQuantity(s string) (int64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("fractional quantity %q", s)
	}
	q := d.IntPart()
	if q <= 0 {
		return 0, fmt.Errorf("non-positive quantity %q", s)
	}
	return q, nil
}
