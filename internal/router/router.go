package router

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dyike/GenieGo/models"
)

// A 1-5 letter word followed anywhere later by a trigger keyword. The first
// such word wins, common English words included.
var stockIntent = regexp.MustCompile(`(?i)\b([A-Za-z]{1,5})\b.*(?:stock|price|chart|quote)`)

// DetectSymbol extracts the uppercased ticker candidate from text.
func DetectSymbol(text string) (string, bool) {
	m := stockIntent.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.ToUpper(m[1]), true
}

type Kind int

const (
	// NotStock means no stock intent was detected.
	NotStock Kind = iota
	// Handled means a quote answered the turn.
	Handled
	// Fallthrough means a symbol was detected but no quote was available.
	Fallthrough
)

func (k Kind) String() string {
	switch k {
	case Handled:
		return "handled"
	case Fallthrough:
		return "fallthrough"
	default:
		return "not_stock"
	}
}

type Result struct {
	Kind   Kind
	Symbol string
	Reply  string
	Quote  *models.Quote
}

type QuoteFetcher interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

type SymbolRecorder interface {
	AddRecentSymbol(symbol string) bool
}

type Router struct {
	quotes   QuoteFetcher
	recorder SymbolRecorder
	logger   *zap.Logger
}

func New(quotes QuoteFetcher, recorder SymbolRecorder, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{quotes: quotes, recorder: recorder, logger: logger}
}

// Route classifies text and, on a stock intent, records the symbol and
// tries to answer from a quote. Only context cancellation is returned as an
// error; every other quote failure becomes Fallthrough.
func (r *Router) Route(ctx context.Context, text string) (Result, error) {
	symbol, ok := DetectSymbol(text)
	if !ok {
		return Result{Kind: NotStock}, nil
	}
	if r.recorder != nil {
		r.recorder.AddRecentSymbol(symbol)
	}

	q, err := r.quotes.GetQuote(ctx, symbol)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Result{}, err
		}
		r.logger.Debug("stock attempt fell through", zap.String("symbol", symbol), zap.Error(err))
		return Result{Kind: Fallthrough, Symbol: symbol}, nil
	}
	if q == nil {
		return Result{Kind: Fallthrough, Symbol: symbol}, nil
	}
	return Result{Kind: Handled, Symbol: symbol, Reply: FormatQuoteReply(q), Quote: q}, nil
}

// FormatQuoteReply renders "Name (SYM) is trading at $P, up|down X.XX% today."
func FormatQuoteReply(q *models.Quote) string {
	direction := "up"
	if q.Change < 0 {
		direction = "down"
	}
	pct := decimal.NewFromFloat(q.ChangePercent).Abs().StringFixed(2)
	return fmt.Sprintf("%s (%s) is trading at $%s, %s %s%% today.",
		q.Name, q.Symbol, formatPrice(q.Price), direction, pct)
}

// formatPrice prints the shortest exact form, without trailing zeros.
func formatPrice(p float64) string {
	return decimal.NewFromFloat(p).String()
}
