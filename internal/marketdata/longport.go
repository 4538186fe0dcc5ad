package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/shopspring/decimal"

	"github.com/dyike/GenieGo/config"
	"github.com/dyike/GenieGo/models"
)

// Longport candlestick requests are capped server side.
const longportMaxCandles = 1000

type LongportProvider struct {
	quoteCtx *quote.QuoteContext
}

func NewLongportProvider(cfg config.Config) (*LongportProvider, error) {
	if cfg.LongportAppKey == "" || cfg.LongportAppSecret == "" || cfg.LongportAccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.LongportAppKey, cfg.LongportAppSecret, cfg.LongportAccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportProvider{quoteCtx: quoteContext}, nil
}

func (p *LongportProvider) Name() string { return "longport" }

func (p *LongportProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	lpSymbol := toLongportSymbol(symbol)
	quotes, err := p.quoteCtx.Quote(ctx, []string{lpSymbol})
	if err != nil {
		return nil, fmt.Errorf("longport quote %s: %w", lpSymbol, err)
	}
	if len(quotes) == 0 || quotes[0] == nil {
		return nil, ErrNoData
	}
	sq := quotes[0]

	name := symbol
	if infos, err := p.quoteCtx.StaticInfo(ctx, []string{lpSymbol}); err == nil && len(infos) > 0 && infos[0].NameEn != "" {
		name = infos[0].NameEn
	}

	price := decimalValue(sq.LastDone)
	prev := decimalValue(sq.PrevClose)
	change := price.Sub(prev)
	changePercent := decimal.Zero
	if !prev.IsZero() {
		changePercent = change.Div(prev).Mul(decimal.NewFromInt(100))
	}

	return &models.Quote{
		Symbol:        symbol,
		Name:          name,
		Price:         price.InexactFloat64(),
		Change:        change.InexactFloat64(),
		ChangePercent: changePercent.InexactFloat64(),
		PreviousClose: prev.InexactFloat64(),
		Open:          decimalValue(sq.Open).InexactFloat64(),
		DayHigh:       decimalValue(sq.High).InexactFloat64(),
		DayLow:        decimalValue(sq.Low).InexactFloat64(),
		Volume:        sq.Volume,
	}, nil
}

func (p *LongportProvider) History(ctx context.Context, symbol string, period models.Period) ([]models.HistoricalPoint, error) {
	count := periodTradingDays(period)
	if count > longportMaxCandles {
		count = longportMaxCandles
	}
	sticks, err := p.quoteCtx.Candlesticks(ctx, toLongportSymbol(symbol), quote.PeriodDay, int32(count), quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("longport candlesticks %s: %w", symbol, err)
	}
	if len(sticks) == 0 {
		return nil, ErrNoData
	}

	points := make([]models.HistoricalPoint, 0, len(sticks))
	for _, s := range sticks {
		if s == nil {
			continue
		}
		points = append(points, models.HistoricalPoint{
			Date:   time.Unix(s.Timestamp, 0).UTC().Format("2006-01-02"),
			Open:   decimalValue(s.Open).InexactFloat64(),
			High:   decimalValue(s.High).InexactFloat64(),
			Low:    decimalValue(s.Low).InexactFloat64(),
			Close:  decimalValue(s.Close).InexactFloat64(),
			Volume: s.Volume,
		})
	}
	return points, nil
}

func (p *LongportProvider) Search(context.Context, string) ([]models.SymbolMatch, error) {
	return nil, fmt.Errorf("longport search: %w", errors.ErrUnsupported)
}

// toLongportSymbol qualifies bare tickers with the US market suffix.
func toLongportSymbol(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}

func decimalValue(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
