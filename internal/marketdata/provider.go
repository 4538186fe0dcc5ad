package marketdata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dyike/GenieGo/config"
	"github.com/dyike/GenieGo/models"
)

// ErrNoData is returned by a Provider when the upstream answered but the
// result set for the symbol or query was absent or empty.
var ErrNoData = errors.New("marketdata: provider returned no data")

// Provider is one upstream market-data backend. Implementations perform a
// single network round trip per call and never cache.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	History(ctx context.Context, symbol string, period models.Period) ([]models.HistoricalPoint, error)
	Search(ctx context.Context, query string) ([]models.SymbolMatch, error)
}

// NewProvider builds the backend selected by cfg.MarketProvider.
func NewProvider(cfg config.Config) (Provider, error) {
	switch cfg.MarketProvider {
	case config.MarketYFAPI, "":
		return NewYFAPIProvider(cfg.MarketBaseURL, cfg.MarketAPIKey, cfg.MarketTimeout()), nil
	case config.MarketYahoo:
		return NewYahooProvider(), nil
	case config.MarketLongport:
		return NewLongportProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown market provider %q", cfg.MarketProvider)
	}
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
