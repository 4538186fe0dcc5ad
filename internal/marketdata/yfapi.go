package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dyike/GenieGo/models"
)

// YFAPIProvider talks to the yfapi.net REST mirror of Yahoo Finance.
type YFAPIProvider struct {
	client *resty.Client
}

// NewYFAPIProvider creates a new yfapi.net client
func NewYFAPIProvider(baseURL, apiKey string, timeout time.Duration) *YFAPIProvider {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("x-api-key", apiKey)
	client.SetHeader("Content-Type", "application/json")

	return &YFAPIProvider{client: client}
}

func (p *YFAPIProvider) Name() string { return "yfapi" }

type yfQuoteEnvelope struct {
	QuoteResponse *struct {
		Result []yfQuote `json:"result"`
	} `json:"quoteResponse"`
}

type yfQuote struct {
	Symbol                     string   `json:"symbol"`
	ShortName                  string   `json:"shortName"`
	LongName                   string   `json:"longName"`
	RegularMarketPrice         float64  `json:"regularMarketPrice"`
	RegularMarketChange        float64  `json:"regularMarketChange"`
	RegularMarketChangePercent float64  `json:"regularMarketChangePercent"`
	RegularMarketPreviousClose float64  `json:"regularMarketPreviousClose"`
	RegularMarketOpen          float64  `json:"regularMarketOpen"`
	RegularMarketDayHigh       float64  `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64  `json:"regularMarketDayLow"`
	RegularMarketVolume        float64  `json:"regularMarketVolume"`
	MarketCap                  *float64 `json:"marketCap"`
}

type yfChartEnvelope struct {
	Chart *struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

type yfSearchEnvelope struct {
	ResultSet *struct {
		Query  string `json:"Query"`
		Result []struct {
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
			Exch   string `json:"exch"`
			Type   string `json:"type"`
		} `json:"Result"`
	} `json:"ResultSet"`
}

func (p *YFAPIProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"region":  "US",
			"lang":    "en",
			"symbols": symbol,
		}).
		Get("/v6/finance/quote")
	if err != nil {
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("quote request returned status %d", resp.StatusCode())
	}

	var envelope yfQuoteEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}
	if envelope.QuoteResponse == nil || len(envelope.QuoteResponse.Result) == 0 {
		return nil, ErrNoData
	}

	raw := envelope.QuoteResponse.Result[0]
	name := raw.ShortName
	if name == "" {
		name = raw.LongName
	}
	if name == "" {
		name = raw.Symbol
	}
	return &models.Quote{
		Symbol:        raw.Symbol,
		Name:          name,
		Price:         raw.RegularMarketPrice,
		Change:        raw.RegularMarketChange,
		ChangePercent: raw.RegularMarketChangePercent,
		PreviousClose: raw.RegularMarketPreviousClose,
		Open:          raw.RegularMarketOpen,
		DayHigh:       raw.RegularMarketDayHigh,
		DayLow:        raw.RegularMarketDayLow,
		Volume:        int64(raw.RegularMarketVolume),
		MarketCap:     raw.MarketCap,
	}, nil
}

// History fetches daily bars. Bars with a missing OHLC value (non-trading
// placeholders) are skipped.
func (p *YFAPIProvider) History(ctx context.Context, symbol string, period models.Period) ([]models.HistoricalPoint, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"range":    period.String(),
			"interval": "1d",
			"region":   "US",
			"lang":     "en",
		}).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("chart request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("chart request returned status %d", resp.StatusCode())
	}

	var envelope yfChartEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}
	if envelope.Chart == nil || len(envelope.Chart.Result) == 0 {
		return nil, ErrNoData
	}

	result := envelope.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart response for %s has no quote indicators", symbol)
	}
	bars := result.Indicators.Quote[0]

	points := make([]models.HistoricalPoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, okO := at(bars.Open, i)
		high, okH := at(bars.High, i)
		low, okL := at(bars.Low, i)
		closePrice, okC := at(bars.Close, i)
		if !okO || !okH || !okL || !okC {
			continue
		}
		volume, _ := at(bars.Volume, i)
		points = append(points, models.HistoricalPoint{
			Date:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: int64(volume),
		})
	}
	return points, nil
}

func (p *YFAPIProvider) Search(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"region": "US",
			"lang":   "en",
			"query":  query,
		}).
		Get("/v6/finance/autocomplete")
	if err != nil {
		return nil, fmt.Errorf("autocomplete request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("autocomplete request returned status %d", resp.StatusCode())
	}

	var envelope yfSearchEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse autocomplete response: %w", err)
	}
	if envelope.ResultSet == nil || envelope.ResultSet.Result == nil {
		return nil, ErrNoData
	}

	matches := make([]models.SymbolMatch, 0, len(envelope.ResultSet.Result))
	for _, r := range envelope.ResultSet.Result {
		matches = append(matches, models.SymbolMatch{
			Symbol:   r.Symbol,
			Name:     r.Name,
			Exchange: r.Exch,
			Type:     r.Type,
		})
	}
	return matches, nil
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}
