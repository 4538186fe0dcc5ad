package marketdata

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dyike/GenieGo/models"
)

const historyFallbackDays = 30

var searchRoster = []models.SymbolMatch{
	{Symbol: "AAPL", Name: "Apple Inc."},
	{Symbol: "MSFT", Name: "Microsoft Corporation"},
	{Symbol: "AMZN", Name: "Amazon.com Inc."},
	{Symbol: "GOOGL", Name: "Alphabet Inc."},
	{Symbol: "META", Name: "Meta Platforms Inc."},
}

// synthesizer produces plausible stand-in data when the provider is
// throttled or unreachable.
type synthesizer struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newSynthesizer(rnd *rand.Rand) *synthesizer {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &synthesizer{rnd: rnd}
}

func (s *synthesizer) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func (s *synthesizer) Quote(symbol string) *models.Quote {
	price := round2(s.float()*100 + 50)
	change := round2(s.float()*10 - 5)

	return &models.Quote{
		Symbol:        symbol,
		Name:          fmt.Sprintf("%s Inc.", symbol),
		Price:         price,
		Change:        change,
		ChangePercent: change / price * 100,
		PreviousClose: price - change,
		Open:          price - change/2,
		DayHigh:       price + s.float()*5,
		DayLow:        price - s.float()*5,
		Volume:        int64(s.float() * 10_000_000),
	}
}

// History returns a 31-day random walk ending on today's date, oldest first.
func (s *synthesizer) History(today time.Time) []models.HistoricalPoint {
	points := make([]models.HistoricalPoint, 0, historyFallbackDays+1)
	price := s.float()*100 + 50
	for i := historyFallbackDays; i >= 0; i-- {
		price += s.float()*5 - 2.5
		if price < 1 {
			price = 1
		}
		points = append(points, models.HistoricalPoint{
			Date:   today.AddDate(0, 0, -i).Format("2006-01-02"),
			Open:   round2(price - s.float()*2),
			High:   round2(price + s.float()*2),
			Low:    round2(price - s.float()*2),
			Close:  round2(price),
			Volume: int64(s.float() * 10_000_000),
		})
	}
	return points
}

// filterRoster matches query case-insensitively against symbol or name.
func filterRoster(query string) []models.SymbolMatch {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.SymbolMatch, 0, len(searchRoster))
	for _, item := range searchRoster {
		if strings.Contains(strings.ToLower(item.Symbol), q) || strings.Contains(strings.ToLower(item.Name), q) {
			out = append(out, item)
		}
	}
	return out
}
