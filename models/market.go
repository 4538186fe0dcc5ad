package models

import (
	"fmt"
	"strings"
)

// Quote is a point-in-time price snapshot for one symbol.
type Quote struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"change_percent"`
	PreviousClose float64  `json:"previous_close"`
	Open          float64  `json:"open"`
	DayHigh       float64  `json:"day_high"`
	DayLow        float64  `json:"day_low"`
	Volume        int64    `json:"volume"`
	MarketCap     *float64 `json:"market_cap,omitempty"`
}

// HistoricalPoint is one daily bar. Date is a calendar day, YYYY-MM-DD.
type HistoricalPoint struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// SymbolMatch is one autocomplete result.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exch,omitempty"`
	Type     string `json:"type,omitempty"`
}

type Period string

const (
	Period1D  Period = "1d"
	Period5D  Period = "5d"
	Period1MO Period = "1mo"
	Period3MO Period = "3mo"
	Period6MO Period = "6mo"
	Period1Y  Period = "1y"
	Period5Y  Period = "5y"

	DefaultPeriod = Period1MO
)

// DisplayPeriods are the ranges offered to the user.
var DisplayPeriods = []Period{Period5D, Period1MO, Period3MO, Period6MO, Period1Y}

var allPeriods = []Period{Period1D, Period5D, Period1MO, Period3MO, Period6MO, Period1Y, Period5Y}

func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPeriod, nil
	}
	for _, p := range allPeriods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown period %q (use one of 1d, 5d, 1mo, 3mo, 6mo, 1y, 5y)", s)
}

func (p Period) String() string {
	return string(p)
}
