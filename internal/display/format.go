package display

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatCurrency renders v as US dollars with grouping and two decimals,
// e.g. -$1,234.50.
func FormatCurrency(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + printer.Sprintf("%.2f", v)
}

// FormatLargeNumber abbreviates with T/B/M suffixes; smaller values print
// as-is.
func FormatLargeNumber(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e12:
		return strconv.FormatFloat(v/1e12, 'f', 2, 64) + "T"
	case abs >= 1e9:
		return strconv.FormatFloat(v/1e9, 'f', 2, 64) + "B"
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 2, 64) + "M"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func FormatPercent(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64) + "%"
	if v > 0 {
		return "+" + s
	}
	return s
}
