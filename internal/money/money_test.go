package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	mwk := Currency{Code: "MWK", Symbol: "MK"}
	usd := Currency{Code: "USD", Symbol: "$", FractionDigits: 2}

	cases := []struct {
		name   string
		amount int64
		cur    Currency
		want   string
	}{
		{"zero", 0, mwk, "MK 0"},
		{"below thousand", 999, mwk, "MK 999"},
		{"thousands", 20000, mwk, "MK 20,000"},
		{"millions", 1234567, mwk, "MK 1,234,567"},
		{"cents", 123456, usd, "$ 1,234.56"},
		{"small cents", 5, usd, "$ 0.05"},
		{"negative", -250075, usd, "-$ 2,500.75"},
		{"code fallback", 1500, Currency{Code: "ZAR", FractionDigits: 2}, "ZAR 15.00"},
		{"bare", 1000, Currency{}, "1,000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Format(tc.amount, tc.cur))
		})
	}
}

func TestFormatDecimalRounds(t *testing.T) {
	usd := Currency{Code: "USD", Symbol: "$", FractionDigits: 2}
	assert.Equal(t, "$ 10.01", FormatDecimal(decimal.RequireFromString("10.005"), usd))
}

func TestMajor(t *testing.T) {
	usd := Currency{Code: "USD", FractionDigits: 2}
	assert.True(t, usd.Major(1999).Equal(decimal.RequireFromString("19.99")))
}
