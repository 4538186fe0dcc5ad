package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dyike/GenieGo/config"
	"github.com/dyike/GenieGo/models"
)

func newYFAPITestServer(t *testing.T, handler http.HandlerFunc) *YFAPIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYFAPIProvider(srv.URL, "test-key", 5*time.Second)
}

func TestYFAPIQuote(t *testing.T) {
	p := newYFAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v6/finance/quote" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		q := r.URL.Query()
		if q.Get("symbols") != "AAPL" || q.Get("region") != "US" || q.Get("lang") != "en" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[{
			"symbol":"AAPL","shortName":"Apple Inc.","regularMarketPrice":189.84,
			"regularMarketChange":-1.5,"regularMarketChangePercent":-0.78,
			"regularMarketPreviousClose":191.34,"regularMarketOpen":190.1,
			"regularMarketDayHigh":191.0,"regularMarketDayLow":189.2,
			"regularMarketVolume":51234567,"marketCap":2950000000000}],"error":null}}`))
	})

	q, err := p.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Name != "Apple Inc." || q.Price != 189.84 || q.Change != -1.5 || q.Volume != 51234567 {
		t.Fatalf("unexpected quote %+v", q)
	}
	if q.MarketCap == nil || *q.MarketCap != 2.95e12 {
		t.Fatalf("unexpected market cap %v", q.MarketCap)
	}
}

func TestYFAPIQuoteNameFallsBack(t *testing.T) {
	p := newYFAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[{"symbol":"BRK-B","regularMarketPrice":410}]}}`))
	})
	q, err := p.Quote(context.Background(), "BRK-B")
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if q.Name != "BRK-B" || q.MarketCap != nil {
		t.Fatalf("unexpected quote %+v", q)
	}
}

func TestYFAPIQuoteEmptyResult(t *testing.T) {
	p := newYFAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`))
	})
	if _, err := p.Quote(context.Background(), "NOPE"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestYFAPIQuoteHTTPError(t *testing.T) {
	p := newYFAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := p.Quote(context.Background(), "AAPL")
	if err == nil || errors.Is(err, ErrNoData) {
		t.Fatalf("expected a transport error, got %v", err)
	}
}

func TestYFAPIHistorySkipsNullBars(t *testing.T) {
	p := newYFAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/MSFT" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("range") != "5d" || r.URL.Query().Get("interval") != "1d" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"chart":{"result":[{
			"timestamp":[1710250200,1710336600,1710423000],
			"indicators":{"quote":[{
				"open":[400.1,null,402.0],
				"high":[405.0,null,406.5],
				"low":[399.0,null,401.2],
				"close":[404.5,null,405.9],
				"volume":[20000000,null,null]}]}}],"error":null}}`))
	})

	points, err := p.History(context.Background(), "MSFT", models.Period5D)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Date != "2024-03-12" || points[1].Date != "2024-03-14" {
		t.Fatalf("unexpected dates %s, %s", points[0].Date, points[1].Date)
	}
	if points[0].Volume != 20000000 || points[1].Volume != 0 {
		t.Fatalf("unexpected volumes %d, %d", points[0].Volume, points[1].Volume)
	}
}

func TestYFAPIHistoryNoResult(t *testing.T) {
	p := newYFAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found"}}}`))
	})
	if _, err := p.History(context.Background(), "NOPE", models.Period1MO); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestYFAPISearch(t *testing.T) {
	p := newYFAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") != "tesla motors" {
			t.Errorf("query not forwarded: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"ResultSet":{"Query":"tesla motors","Result":[
			{"symbol":"TSLA","name":"Tesla, Inc.","exch":"NMS","type":"S"}]}}`))
	})
	matches, err := p.Search(context.Background(), "tesla motors")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].Symbol != "TSLA" || matches[0].Exchange != "NMS" {
		t.Fatalf("unexpected matches %+v", matches)
	}
}

func TestYFAPISearchMissingResultSet(t *testing.T) {
	p := newYFAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	if _, err := p.Search(context.Background(), "x"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestClientOverYFAPIFallsBackOnServerError(t *testing.T) {
	p := newYFAPITestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := NewClient(p)
	points, err := c.GetHistory(context.Background(), "AAPL", models.Period1MO)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(points) != 31 {
		t.Fatalf("expected synthesized 31-point series, got %d", len(points))
	}
}

func TestNewProviderSelection(t *testing.T) {
	cfg := *config.DefaultConfigWithRoot(t.TempDir())

	p, err := NewProvider(cfg)
	if err != nil || p.Name() != "yfapi" {
		t.Fatalf("expected yfapi provider, got %v (%v)", p, err)
	}

	cfg.MarketProvider = config.MarketYahoo
	if p, err = NewProvider(cfg); err != nil || p.Name() != "yahoo" {
		t.Fatalf("expected yahoo provider, got %v (%v)", p, err)
	}

	cfg.MarketProvider = config.MarketLongport
	if _, err = NewProvider(cfg); err == nil {
		t.Fatalf("longport without credentials should fail")
	}

	cfg.MarketProvider = "reuters"
	if _, err = NewProvider(cfg); err == nil {
		t.Fatalf("unknown provider should fail")
	}
}

func TestPeriodHelpers(t *testing.T) {
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := periodStart(end, models.Period3MO); !got.Equal(time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected 3mo start %s", got)
	}
	if got := periodStart(end, ""); !got.Equal(time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected default start %s", got)
	}
	if periodTradingDays(models.Period1Y) != 252 {
		t.Fatalf("unexpected 1y bar count")
	}
	if toLongportSymbol("AAPL") != "AAPL.US" || toLongportSymbol("700.HK") != "700.HK" {
		t.Fatalf("unexpected longport symbol mapping")
	}
}
