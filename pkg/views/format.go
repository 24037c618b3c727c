package views

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD renders v as dollars with thousands separators and two decimals, e.g. "$95,000.50".
func FormatUSD(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	whole, frac, _ := strings.Cut(d.StringFixed(2), ".")
	return sign + "$" + groupThousands(whole) + "." + frac
}

// FormatCount renders n with thousands separators, e.g. "12,480".
func FormatCount(n int) string {
	s := decimal.NewFromInt(int64(n)).String()
	if strings.HasPrefix(s, "-") {
		return "-" + groupThousands(s[1:])
	}
	return groupThousands(s)
}

// FormatImportance renders a feature importance score with four decimals.
func FormatImportance(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
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
