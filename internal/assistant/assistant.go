package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dyike/GenieGo/consts"
	"github.com/dyike/GenieGo/internal/conversation"
	"github.com/dyike/GenieGo/internal/notify"
	"github.com/dyike/GenieGo/internal/router"
	"github.com/dyike/GenieGo/internal/session"
	"github.com/dyike/GenieGo/models"
)

var ErrEmptyMessage = errors.New("assistant: message is empty")

type MarketData interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetHistory(ctx context.Context, symbol string, period models.Period) ([]models.HistoricalPoint, error)
}

type ReplyGenerator interface {
	GenerateReply(ctx context.Context, history []models.Message) string
}

// Turn is the outcome of one user message.
type Turn struct {
	ID      string
	User    models.Message
	Reply   models.Message
	Symbol  string
	Handled bool
	Quote   *models.Quote
}

type Assistant struct {
	session  *session.Store
	market   MarketData
	replies  ReplyGenerator
	router   *router.Router
	notifier notify.Notifier
	logger   *zap.Logger

	mu     sync.RWMutex
	active string
}

type Option func(*Assistant)

func WithLogger(logger *zap.Logger) Option {
	return func(a *Assistant) { a.logger = logger }
}

func WithNotifier(n notify.Notifier) Option {
	return func(a *Assistant) { a.notifier = n }
}

func New(store *session.Store, market MarketData, replies ReplyGenerator, opts ...Option) *Assistant {
	a := &Assistant{
		session:  store,
		market:   market,
		replies:  replies,
		notifier: notify.Nop(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.router = router.New(market, store, a.logger)
	return a
}

// Send runs one chat turn: the user message is logged, a detected stock
// intent is answered from a quote when possible, and everything else goes
// to the reply generator. A cancelled turn leaves the log as it was.
func (a *Assistant) Send(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	turn := &Turn{ID: uuid.NewString(), User: models.UserMessage(text)}
	logger := a.logger.With(zap.String("turn_id", turn.ID))
	a.session.Append(turn.User)

	res, err := a.router.Route(ctx, text)
	if err != nil {
		a.retract(logger, turn.User)
		return nil, err
	}
	logger.Debug("routed message", zap.Stringer("kind", res.Kind), zap.String("symbol", res.Symbol))

	if res.Symbol != "" {
		turn.Symbol = res.Symbol
		a.setActive(res.Symbol)
	}

	var reply string
	if res.Kind == router.Handled {
		turn.Handled = true
		turn.Quote = res.Quote
		reply = res.Reply
	} else {
		history := conversation.BuildHistory(a.session.Messages())
		reply = a.replies.GenerateReply(ctx, history)
		if err := ctx.Err(); err != nil {
			a.retract(logger, turn.User)
			return nil, err
		}
	}

	turn.Reply = models.AssistantMessage(reply)
	a.session.Append(turn.Reply)
	logger.Info("turn complete", zap.Bool("handled", turn.Handled), zap.Int("log_len", a.session.Len()))
	return turn, nil
}

// StockSnapshot is the data behind the stock card.
type StockSnapshot struct {
	Symbol     string
	Period     models.Period
	Quote      *models.Quote
	History    []models.HistoricalPoint
	QuoteErr   error
	HistoryErr error
}

// StockView fetches the quote and the series concurrently and waits for
// both. Per-leg failures are carried in the snapshot; only cancellation is
// returned as an error.
func (a *Assistant) StockView(ctx context.Context, symbol string, period models.Period) (*StockSnapshot, error) {
	return a.stockView(ctx, symbol, period, nil)
}

// TurnStockView builds the card for a turn answered from a quote. The quote
// shown in the reply is reused, so the card agrees with it and only the
// series is fetched.
func (a *Assistant) TurnStockView(ctx context.Context, turn *Turn, period models.Period) (*StockSnapshot, error) {
	if turn == nil || turn.Quote == nil {
		return nil, errors.New("assistant: turn has no quote")
	}
	return a.stockView(ctx, turn.Symbol, period, turn.Quote)
}

func (a *Assistant) stockView(ctx context.Context, symbol string, period models.Period, known *models.Quote) (*StockSnapshot, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		symbol = a.ActiveSymbol()
	}
	if symbol == "" {
		return nil, errors.New("assistant: no symbol selected")
	}
	if period == "" {
		period = models.DefaultPeriod
	}

	snap := &StockSnapshot{Symbol: symbol, Period: period, Quote: known}
	var wg sync.WaitGroup
	if known == nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap.Quote, snap.QuoteErr = a.market.GetQuote(ctx, symbol)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		snap.History, snap.HistoryErr = a.market.GetHistory(ctx, symbol, period)
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.setActive(symbol)
	return snap, nil
}

// SelectRecent re-targets the active symbol to a recent-search entry.
func (a *Assistant) SelectRecent(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol != "" {
		a.setActive(symbol)
	}
	return a.ActiveSymbol()
}

func (a *Assistant) Clear() {
	a.session.Clear()
	a.notifier.Notify(notify.LevelSuccess, consts.NoticeHistoryCleared)
	a.logger.Info("chat history cleared")
}

func (a *Assistant) ActiveSymbol() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

func (a *Assistant) Session() *session.Store {
	return a.session
}

// retract drops the user message of a turn that got no reply, so the log
// keeps alternating between user and assistant.
func (a *Assistant) retract(logger *zap.Logger, msg models.Message) {
	if a.session.Retract(msg) {
		logger.Info("turn cancelled, user message dropped")
	}
}

func (a *Assistant) setActive(symbol string) {
	a.mu.Lock()
	a.active = symbol
	a.mu.Unlock()
}
