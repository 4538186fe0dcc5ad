package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"

	"github.com/dyike/GenieGo/models"
)

// YahooProvider calls Yahoo Finance directly through finance-go. It has no
// autocomplete endpoint.
type YahooProvider struct {
	now func() time.Time
}

func NewYahooProvider() *YahooProvider {
	return &YahooProvider{now: time.Now}
}

func (p *YahooProvider) Name() string { return "yahoo" }

func (p *YahooProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := quote.Get(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
	}
	if q == nil {
		return nil, ErrNoData
	}

	name := q.ShortName
	if name == "" {
		name = q.Symbol
	}
	return &models.Quote{
		Symbol:        q.Symbol,
		Name:          name,
		Price:         q.RegularMarketPrice,
		Change:        q.RegularMarketChange,
		ChangePercent: q.RegularMarketChangePercent,
		PreviousClose: q.RegularMarketPreviousClose,
		Open:          q.RegularMarketOpen,
		DayHigh:       q.RegularMarketDayHigh,
		DayLow:        q.RegularMarketDayLow,
		Volume:        int64(q.RegularMarketVolume),
	}, nil
}

func (p *YahooProvider) History(ctx context.Context, symbol string, period models.Period) ([]models.HistoricalPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := p.now()
	start := periodStart(end, period)

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	points := make([]models.HistoricalPoint, 0)
	for iter.Next() {
		bar := iter.Bar()
		points = append(points, models.HistoricalPoint{
			Date:   time.Unix(int64(bar.Timestamp), 0).UTC().Format("2006-01-02"),
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  bar.Close.InexactFloat64(),
			Volume: int64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to get historical data for %s: %w", symbol, err)
	}
	if len(points) == 0 {
		return nil, ErrNoData
	}
	return points, nil
}

func (p *YahooProvider) Search(context.Context, string) ([]models.SymbolMatch, error) {
	return nil, fmt.Errorf("yahoo search: %w", errors.ErrUnsupported)
}

// periodStart maps a range to the first calendar day it covers.
func periodStart(end time.Time, period models.Period) time.Time {
	switch period {
	case models.Period1D:
		return end.AddDate(0, 0, -1)
	case models.Period5D:
		return end.AddDate(0, 0, -5)
	case models.Period3MO:
		return end.AddDate(0, -3, 0)
	case models.Period6MO:
		return end.AddDate(0, -6, 0)
	case models.Period1Y:
		return end.AddDate(-1, 0, 0)
	case models.Period5Y:
		return end.AddDate(-5, 0, 0)
	default:
		return end.AddDate(0, -1, 0)
	}
}

// periodTradingDays approximates the number of daily bars a range holds.
func periodTradingDays(period models.Period) int {
	switch period {
	case models.Period1D:
		return 1
	case models.Period5D:
		return 5
	case models.Period3MO:
		return 63
	case models.Period6MO:
		return 126
	case models.Period1Y:
		return 252
	case models.Period5Y:
		return 1000
	default:
		return 21
	}
}
