package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/GenieGo/consts"
	"github.com/dyike/GenieGo/internal/notify"
	"github.com/dyike/GenieGo/models"
)

var (
	// ErrSymbolNotFound means the provider has no data for the symbol. No
	// synthesized data accompanies it.
	ErrSymbolNotFound = errors.New("marketdata: symbol not found")
	ErrEmptySymbol    = errors.New("marketdata: symbol is required")
)

// Client fronts a Provider with a TTL cache, a shared rate window and a
// synthesized fallback so callers always get renderable data unless the
// symbol is unknown.
type Client struct {
	provider Provider
	logger   *zap.Logger
	notifier notify.Notifier
	now      func() time.Time

	quotes  *Cache[*models.Quote]
	history *Cache[[]models.HistoricalPoint]
	window  *RateWindow
	synth   *synthesizer
}

type clientOptions struct {
	logger      *zap.Logger
	notifier    notify.Notifier
	now         func() time.Time
	rnd         *rand.Rand
	ttl         time.Duration
	maxRequests int
	rateWindow  time.Duration
}

type Option func(*clientOptions)

func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

func WithNotifier(n notify.Notifier) Option {
	return func(o *clientOptions) { o.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

func WithRand(rnd *rand.Rand) Option {
	return func(o *clientOptions) { o.rnd = rnd }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(o *clientOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

func WithRateLimit(maxRequests int, window time.Duration) Option {
	return func(o *clientOptions) {
		if maxRequests > 0 {
			o.maxRequests = maxRequests
		}
		if window > 0 {
			o.rateWindow = window
		}
	}
}

func NewClient(provider Provider, opts ...Option) *Client {
	o := clientOptions{
		now:         time.Now,
		ttl:         consts.MarketCacheTTL,
		maxRequests: consts.MarketMaxRequests,
		rateWindow:  consts.MarketRateWindow,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.notifier == nil {
		o.notifier = notify.Nop()
	}

	return &Client{
		provider: provider,
		logger:   o.logger.With(zap.String("provider", provider.Name())),
		notifier: o.notifier,
		now:      o.now,
		quotes:   NewCache[*models.Quote](o.ttl, o.now),
		history:  NewCache[[]models.HistoricalPoint](o.ttl, o.now),
		window:   NewRateWindow(o.maxRequests, o.rateWindow, o.now),
		synth:    newSynthesizer(o.rnd),
	}
}

// GetQuote returns the latest quote for symbol. A nil quote comes with
// ErrSymbolNotFound; throttling and transport failures yield a synthesized
// quote and a nil error.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	sym := normalizeSymbol(symbol)
	if sym == "" {
		return nil, ErrEmptySymbol
	}

	if q, ok := c.quotes.Get(sym); ok {
		c.logger.Debug("using cached quote", zap.String("symbol", sym))
		return q, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !c.allow("quote", sym) {
		c.notifier.Notify(notify.LevelWarning, consts.NoticeRateLimited)
		c.logger.Warn("rate limit reached, synthesizing quote", zap.String("symbol", sym))
		return c.synth.Quote(sym), nil
	}

	q, err := c.provider.Quote(ctx, sym)
	if err == nil && q == nil {
		err = ErrNoData
	}
	switch {
	case err == nil:
		if q.Symbol == "" {
			q.Symbol = sym
		}
		c.quotes.Set(sym, q)
		return q, nil
	case errors.Is(err, ErrNoData):
		c.notifier.Notify(notify.LevelError, fmt.Sprintf(consts.NoticeQuoteNotFound, sym))
		c.logger.Info("no quote data", zap.String("symbol", sym))
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, sym)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		c.logger.Error("fetch quote failed", zap.String("symbol", sym), zap.Error(err))
		c.notifier.Notify(notify.LevelError, consts.NoticeQuoteFailed)
		c.logger.Warn("synthesizing quote", zap.String("symbol", sym))
		return c.synth.Quote(sym), nil
	}
}

// GetHistory returns daily bars for symbol over period, oldest first. The
// not-found case returns an empty slice with ErrSymbolNotFound.
func (c *Client) GetHistory(ctx context.Context, symbol string, period models.Period) ([]models.HistoricalPoint, error) {
	sym := normalizeSymbol(symbol)
	if sym == "" {
		return nil, ErrEmptySymbol
	}
	if period == "" {
		period = models.DefaultPeriod
	}
	key := historyKey(sym, period)

	if points, ok := c.history.Get(key); ok {
		c.logger.Debug("using cached history", zap.String("symbol", sym), zap.Stringer("period", period))
		return points, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !c.allow("history", sym) {
		c.notifier.Notify(notify.LevelWarning, consts.NoticeRateLimited)
		c.logger.Warn("rate limit reached, synthesizing history", zap.String("symbol", sym))
		return c.synth.History(c.now()), nil
	}

	points, err := c.provider.History(ctx, sym, period)
	switch {
	case err == nil:
		if points == nil {
			points = []models.HistoricalPoint{}
		}
		c.history.Set(key, points)
		return points, nil
	case errors.Is(err, ErrNoData):
		c.notifier.Notify(notify.LevelError, fmt.Sprintf(consts.NoticeHistNotFound, sym))
		c.logger.Info("no history data", zap.String("symbol", sym), zap.Stringer("period", period))
		return []models.HistoricalPoint{}, fmt.Errorf("%w: %s", ErrSymbolNotFound, sym)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		c.logger.Error("fetch history failed", zap.String("symbol", sym), zap.Stringer("period", period), zap.Error(err))
		c.notifier.Notify(notify.LevelError, consts.NoticeHistoryFailed)
		return c.synth.History(c.now()), nil
	}
}

// SearchSymbols autocompletes query. Throttling or upstream failure falls
// back to the built-in roster; an empty upstream result stays empty.
func (c *Client) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SymbolMatch{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !c.allow("search", query) {
		c.notifier.Notify(notify.LevelWarning, consts.NoticeRateLimited)
		c.logger.Warn("rate limit reached, using search roster", zap.String("query", query))
		return filterRoster(query), nil
	}

	matches, err := c.provider.Search(ctx, query)
	switch {
	case err == nil:
		if matches == nil {
			matches = []models.SymbolMatch{}
		}
		return matches, nil
	case errors.Is(err, ErrNoData):
		return []models.SymbolMatch{}, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, errors.ErrUnsupported):
		c.logger.Debug("provider has no search, using roster", zap.String("query", query))
		return filterRoster(query), nil
	default:
		c.logger.Error("search failed", zap.String("query", query), zap.Error(err))
		return filterRoster(query), nil
	}
}

func (c *Client) ClearCache() {
	c.quotes.Clear()
	c.history.Clear()
}

func (c *Client) Usage() Usage {
	return c.window.Snapshot()
}

func (c *Client) ProviderName() string {
	return c.provider.Name()
}

func (c *Client) allow(kind, subject string) bool {
	if !c.window.Allow() {
		return false
	}
	usage := c.window.Snapshot()
	c.logger.Debug("market data request",
		zap.String("kind", kind),
		zap.String("subject", subject),
		zap.Int("count", usage.Count),
		zap.Int("limit", usage.Limit),
	)
	if float64(usage.Count) > float64(usage.Limit)*consts.MarketWarnRatio {
		c.logger.Warn("approaching market data rate limit",
			zap.Int("count", usage.Count),
			zap.Int("limit", usage.Limit),
			zap.Time("reset_at", usage.ResetAt),
		)
	}
	return true
}

func historyKey(symbol string, period models.Period) string {
	return fmt.Sprintf("%s-%s", symbol, period)
}
