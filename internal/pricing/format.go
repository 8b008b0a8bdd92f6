package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MoneyFormat controls how amounts are rendered. Formatting never feeds back
// into computation.
type MoneyFormat struct {
	Locale string
	Symbol string
}

// DefaultMoneyFormat renders roubles in the Russian locale.
func DefaultMoneyFormat() MoneyFormat {
	return MoneyFormat{Locale: "ru-RU", Symbol: "₽"}
}

// FormatMoney rounds to two places and applies the locale's grouping and
// decimal separators. The digits come from the decimal itself, so large
// amounts keep every digit.
func FormatMoney(amount decimal.Decimal, format MoneyFormat) string {
	tag, err := language.Parse(strings.TrimSpace(format.Locale))
	if err != nil {
		tag = language.English
	}
	group, point := separators(message.NewPrinter(tag))

	fixed := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(group)
		}
		b.WriteRune(digit)
	}
	b.WriteString(point)
	b.WriteString(fracPart)

	out := b.String()
	if symbol := strings.TrimSpace(format.Symbol); symbol != "" {
		out += " " + symbol
	}
	return out
}

// separators asks the printer how it renders 1000 and 1.5.
func separators(p *message.Printer) (group, point string) {
	group = strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%d", 1000), "1"), "000")
	point = strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%.1f", 1.5), "1"), "5")
	if point == "" {
		point = "."
	}
	return group, point
}

// FormatPercent renders a markup percentage without trailing zeros.
func FormatPercent(percentage decimal.Decimal) string {
	return percentage.String() + "%"
}
