// Package money formats and parses Chilean peso amounts for display.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Symbol is the currency sign used by the es-CL peso format.
const Symbol = "$"

const thousandsSeparator = "."

// FormatCLP renders an amount the way the es-CL locale renders CLP:
// "$" prefix, "." as thousands separator and no decimals. Fractions are
// rounded half away from zero.
func FormatCLP(amount decimal.Decimal) string {
	rounded := amount.Round(0)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Neg()
	}

	return sign + Symbol + groupThousands(rounded.StringFixed(0))
}

// FormatCLPPtr is FormatCLP for optional amounts. A nil amount renders empty.
func FormatCLPPtr(amount *decimal.Decimal) string {
	if amount == nil {
		return ""
	}
	return FormatCLP(*amount)
}

// ParseCLP reads a formatted peso string back into an amount. Every
// non-digit character is dropped, so "$150.000" and "150000" both give
// 150000. Input without digits parses as zero.
func ParseCLP(value string) decimal.Decimal {
	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return decimal.Zero
	}

	amount, err := decimal.NewFromString(digits.String())
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// FormatPercent renders a percentage with two decimals, e.g. "12.50%".
func FormatPercent(value decimal.Decimal) string {
	return value.StringFixed(2) + "%"
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(thousandsSeparator)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
