// Package money formats minor-unit amounts for display.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency describes how amounts in a currency are displayed.
type Currency struct {
	Code           string `json:"code"`
	Symbol         string `json:"symbol"`
	FractionDigits int    `json:"fraction_digits"`
}

// Major converts a minor-unit amount to its major-unit decimal value.
func (c Currency) Major(amount int64) decimal.Decimal {
	return decimal.New(amount, -int32(c.fractionDigits()))
}

func (c Currency) fractionDigits() int {
	if c.FractionDigits < 0 {
		return 0
	}
	return c.FractionDigits
}

func (c Currency) prefix() string {
	if c.Symbol != "" {
		return c.Symbol
	}
	return c.Code
}

// Format renders a minor-unit amount, e.g. 2000000 MWK/2 as "MK 20,000.00".
func Format(amount int64, c Currency) string {
	return FormatDecimal(c.Major(amount), c)
}

// FormatDecimal renders a major-unit amount rounded to the currency's fraction digits.
func FormatDecimal(d decimal.Decimal, c Currency) string {
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(int32(c.fractionDigits()))

	intPart, fracPart := fixed, ""
	if i := strings.IndexByte(fixed, '.'); i >= 0 {
		intPart, fracPart = fixed[:i], fixed[i:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	if p := c.prefix(); p != "" {
		b.WriteString(p)
		b.WriteByte(' ')
	}
	b.WriteString(groupThousands(intPart))
	b.WriteString(fracPart)
	return b.String()
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
