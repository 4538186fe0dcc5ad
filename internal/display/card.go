package display

import (
	"fmt"
	"math"
	"strings"

	"github.com/dyike/GenieGo/models"
)

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws the closes as block characters scaled between the min
// and max close. A flat series renders at the lowest level.
func Sparkline(points []models.HistoricalPoint, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}
	closes := sample(points, width)
	lo, hi := closes[0], closes[0]
	for _, c := range closes {
		lo = min(lo, c)
		hi = max(hi, c)
	}
	var b strings.Builder
	for _, c := range closes {
		idx := 0
		if hi > lo {
			idx = int(math.Round((c - lo) / (hi - lo) * float64(len(sparkBlocks)-1)))
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

// sample picks at most width closes, evenly spaced, keeping the last one.
func sample(points []models.HistoricalPoint, width int) []float64 {
	if len(points) <= width {
		out := make([]float64, len(points))
		for i, p := range points {
			out[i] = p.Close
		}
		return out
	}
	out := make([]float64, width)
	step := float64(len(points)-1) / float64(width-1)
	for i := range out {
		out[i] = points[int(float64(i)*step+0.5)].Close
	}
	return out
}

// StockCard is the terminal rendition of the stock detail view: header
// with price and change, a sparkline of the period, and the detail grid.
// Either leg may be missing.
func StockCard(symbol string, period models.Period, q *models.Quote, history []models.HistoricalPoint) string {
	var lines []string

	if q != nil {
		name := q.Name
		if name == "" {
			name = q.Symbol
		}
		lines = append(lines,
			titleStyle.Render(fmt.Sprintf("%s (%s)", name, symbol)),
			fmt.Sprintf("%s  %s",
				FormatCurrency(q.Price),
				changeStyle(q.Change).Render(fmt.Sprintf("%s (%s)", FormatCurrency(q.Change), FormatPercent(q.ChangePercent))),
			),
		)
	} else {
		lines = append(lines, titleStyle.Render(symbol), mutedStyle.Render("Quote unavailable"))
	}

	lines = append(lines, "")
	if len(history) > 0 {
		first, last := history[0], history[len(history)-1]
		lines = append(lines,
			mutedStyle.Render(fmt.Sprintf("Price, %s", period)),
			changeStyle(last.Close-first.Close).Render(Sparkline(history, cardWidth-4)),
			mutedStyle.Render(fmt.Sprintf("%s → %s   %s → %s", first.Date, last.Date, FormatCurrency(first.Close), FormatCurrency(last.Close))),
		)
	} else {
		lines = append(lines, mutedStyle.Render("No chart data available"))
	}

	if q != nil {
		lines = append(lines, "",
			detailRow("Open", FormatCurrency(q.Open), "Prev Close", FormatCurrency(q.PreviousClose)),
			detailRow("Day High", FormatCurrency(q.DayHigh), "Day Low", FormatCurrency(q.DayLow)),
		)
		volume := FormatLargeNumber(float64(q.Volume))
		if q.MarketCap != nil {
			lines = append(lines, detailRow("Volume", volume, "Market Cap", FormatLargeNumber(*q.MarketCap)))
		} else {
			lines = append(lines, detailRow("Volume", volume, "", ""))
		}
	}

	return cardStyle.Render(strings.Join(lines, "\n"))
}

func detailRow(k1, v1, k2, v2 string) string {
	left := mutedStyle.Render(fmt.Sprintf("%-11s", k1)) + fmt.Sprintf("%14s", v1)
	if k2 == "" {
		return left
	}
	return left + "    " + mutedStyle.Render(fmt.Sprintf("%-11s", k2)) + fmt.Sprintf("%14s", v2)
}
