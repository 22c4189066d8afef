package money

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency selects the display currency. Amounts are always held in INR units.
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
)

// usdPerINR is the mock conversion rate used for display only.
const usdPerINR = 0.012

type format struct {
	symbol string
	tag    language.Tag
	rate   float64
}

var formats = map[Currency]format{
	INR: {symbol: "₹", tag: language.MustParse("en-IN"), rate: 1},
	USD: {symbol: "$", tag: language.AmericanEnglish, rate: usdPerINR},
}

// ParseCurrency maps a currency code to a supported Currency. Unknown codes fall back to INR.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if c == "" {
		return INR, nil
	}
	if _, ok := formats[c]; !ok {
		return INR, fmt.Errorf("unsupported currency %q", code)
	}
	return c, nil
}

// Round rounds to the nearest integer currency unit, halves rounding up.
func Round(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// Format renders amount with locale grouping and zero decimal places.
func Format(amount int64, cur Currency) string {
	f, ok := formats[cur]
	if !ok {
		f = formats[INR]
	}
	v := Round(float64(amount) * f.rate)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	p := message.NewPrinter(f.tag)
	return sign + f.symbol + p.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(0)))
}

// DiscountPercent returns the rounded percentage saved against mrp.
func DiscountPercent(price, mrp int64) int64 {
	if mrp <= 0 || mrp <= price {
		return 0
	}
	return Round(float64(mrp-price) / float64(mrp) * 100)
}
