package assistant

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/dyike/GenieGo/consts"
	"github.com/dyike/GenieGo/internal/marketdata"
	"github.com/dyike/GenieGo/internal/notify"
	"github.com/dyike/GenieGo/internal/session"
	"github.com/dyike/GenieGo/internal/storage"
	"github.com/dyike/GenieGo/models"
)

type fakeMarket struct {
	mu       sync.Mutex
	quote    *models.Quote
	quoteErr error
	points   []models.HistoricalPoint
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func (f *fakeMarket) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxSeen {
		f.maxSeen = f.inFlight
	}
	f.mu.Unlock()
	time.Sleep(f.delay)
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeMarket) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	f.enter()
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	if f.quote == nil {
		return nil, nil
	}
	q := *f.quote
	q.Symbol = symbol
	return &q, nil
}

func (f *fakeMarket) GetHistory(_ context.Context, _ string, _ models.Period) ([]models.HistoricalPoint, error) {
	f.enter()
	return f.points, nil
}

type fakeReplies struct {
	calls   [][]models.Message
	reply   string
	onReply func()
}

func (f *fakeReplies) GenerateReply(_ context.Context, history []models.Message) string {
	f.calls = append(f.calls, history)
	if f.onReply != nil {
		f.onReply()
	}
	return f.reply
}

func newAssistant(market *fakeMarket, replies *fakeReplies, rec *notify.Recorder) (*Assistant, *session.Store) {
	store := session.NewStore(storage.NewMemoryStore())
	return New(store, market, replies, WithNotifier(rec)), store
}

func TestSendStockTurnSkipsConversation(t *testing.T) {
	market := &fakeMarket{quote: &models.Quote{Name: "Tesla, Inc.", Price: 175.2, Change: 4.1, ChangePercent: 2.396}}
	replies := &fakeReplies{reply: "unused"}
	a, store := newAssistant(market, replies, &notify.Recorder{})

	turn, err := a.Send(context.Background(), "  tsla stock  ")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !turn.Handled || turn.Symbol != "TSLA" || turn.ID == "" {
		t.Fatalf("unexpected turn %+v", turn)
	}
	if turn.Reply.Content != "Tesla, Inc. (TSLA) is trading at $175.2, up 2.40% today." {
		t.Fatalf("unexpected reply %q", turn.Reply.Content)
	}
	if len(replies.calls) != 0 {
		t.Fatalf("conversation client must not be called for a handled stock turn")
	}
	msgs := store.Messages()
	if len(msgs) != 3 || msgs[1].Content != "tsla stock" || msgs[2] != turn.Reply {
		t.Fatalf("unexpected log %+v", msgs)
	}
	if a.ActiveSymbol() != "TSLA" {
		t.Fatalf("active symbol not updated")
	}
	if got := store.RecentSymbols(); len(got) != 1 || got[0] != "TSLA" {
		t.Fatalf("recent symbols = %v", got)
	}
}

func TestSendFallsThroughToConversation(t *testing.T) {
	market := &fakeMarket{quoteErr: errors.New("symbol not found")}
	replies := &fakeReplies{reply: "I could not find that ticker."}
	a, store := newAssistant(market, replies, &notify.Recorder{})

	turn, err := a.Send(context.Background(), "zzzzz price")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if turn.Handled || turn.Symbol != "ZZZZZ" {
		t.Fatalf("unexpected turn %+v", turn)
	}
	if len(replies.calls) != 1 {
		t.Fatalf("expected one conversation call, got %d", len(replies.calls))
	}
	history := replies.calls[0]
	if len(history) != 1 || history[0] != models.UserMessage("zzzzz price") {
		t.Fatalf("expected the original user message only, got %+v", history)
	}
	if got := store.RecentSymbols(); len(got) != 1 || got[0] != "ZZZZZ" {
		t.Fatalf("symbol should be recorded on fallthrough, got %v", got)
	}
}

func TestSendConversationExcludesWelcome(t *testing.T) {
	replies := &fakeReplies{reply: "answer"}
	a, _ := newAssistant(&fakeMarket{}, replies, &notify.Recorder{})
	ctx := context.Background()

	if _, err := a.Send(ctx, "userA"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := a.Send(ctx, "userB"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	second := replies.calls[1]
	want := []models.Message{
		models.UserMessage("userA"),
		models.AssistantMessage("answer"),
		models.UserMessage("userB"),
	}
	if len(second) != len(want) {
		t.Fatalf("got %+v, want %+v", second, want)
	}
	for i := range want {
		if second[i] != want[i] {
			t.Fatalf("message %d: got %+v, want %+v", i, second[i], want[i])
		}
	}
}

func TestSendEmpty(t *testing.T) {
	a, store := newAssistant(&fakeMarket{}, &fakeReplies{}, &notify.Recorder{})
	if _, err := a.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("empty input must not change the log")
	}
}

func TestSendCancelledDuringReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	replies := &fakeReplies{reply: consts.ReplyApology, onReply: cancel}
	a, store := newAssistant(&fakeMarket{}, replies, &notify.Recorder{})

	if _, err := a.Send(ctx, "hello"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("cancelled turn should leave the log untouched, got %d entries", store.Len())
	}

	// The next turn sees no dangling user message.
	replies.onReply = nil
	replies.reply = "hi"
	if _, err := a.Send(context.Background(), "hello again"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	last := replies.calls[len(replies.calls)-1]
	if len(last) != 1 || last[0].Content != "hello again" {
		t.Fatalf("unexpected history %+v", last)
	}
}

func TestStockViewRunsConcurrently(t *testing.T) {
	market := &fakeMarket{
		quote:  &models.Quote{Name: "IBM", Price: 190},
		points: []models.HistoricalPoint{{Date: "2024-03-14", Close: 190}},
		delay:  50 * time.Millisecond,
	}
	a, _ := newAssistant(market, &fakeReplies{}, &notify.Recorder{})

	snap, err := a.StockView(context.Background(), "ibm", "")
	if err != nil {
		t.Fatalf("StockView: %v", err)
	}
	if snap.Symbol != "IBM" || snap.Period != models.DefaultPeriod {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Quote == nil || len(snap.History) != 1 {
		t.Fatalf("missing data in snapshot %+v", snap)
	}
	if market.maxSeen != 2 {
		t.Fatalf("quote and history should overlap, max in flight %d", market.maxSeen)
	}
	if a.ActiveSymbol() != "IBM" {
		t.Fatalf("active symbol not updated")
	}
}

func TestStockViewUsesActiveSymbol(t *testing.T) {
	a, _ := newAssistant(&fakeMarket{}, &fakeReplies{}, &notify.Recorder{})
	if _, err := a.StockView(context.Background(), "", models.Period5D); err == nil {
		t.Fatalf("expected error without a symbol")
	}
	a.SelectRecent("msft")
	snap, err := a.StockView(context.Background(), "", models.Period5D)
	if err != nil {
		t.Fatalf("StockView: %v", err)
	}
	if snap.Symbol != "MSFT" {
		t.Fatalf("expected active symbol MSFT, got %s", snap.Symbol)
	}
}

func TestClearNotifies(t *testing.T) {
	rec := &notify.Recorder{}
	a, store := newAssistant(&fakeMarket{}, &fakeReplies{reply: "x"}, rec)
	_, _ = a.Send(context.Background(), "hello")
	a.Clear()

	if store.Len() != 1 {
		t.Fatalf("expected welcome-only log")
	}
	last, ok := rec.Last()
	if !ok || last.Level != notify.LevelSuccess || last.Message != consts.NoticeHistoryCleared {
		t.Fatalf("unexpected notice %+v", last)
	}
}

// downProvider fails every request like an unreachable market API.
type downProvider struct{}

func (downProvider) Name() string { return "down" }

func (downProvider) Quote(context.Context, string) (*models.Quote, error) {
	return nil, errors.New("connection refused")
}

func (downProvider) History(context.Context, string, models.Period) ([]models.HistoricalPoint, error) {
	return nil, errors.New("connection refused")
}

func (downProvider) Search(context.Context, string) ([]models.SymbolMatch, error) {
	return nil, errors.New("connection refused")
}

func TestTurnStockViewReusesTurnQuote(t *testing.T) {
	rec := &notify.Recorder{}
	market := marketdata.NewClient(downProvider{},
		marketdata.WithNotifier(rec),
		marketdata.WithRand(rand.New(rand.NewSource(7))),
	)
	store := session.NewStore(storage.NewMemoryStore())
	a := New(store, market, &fakeReplies{reply: "unused"}, WithNotifier(rec))

	turn, err := a.Send(context.Background(), "aapl stock")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !turn.Handled || turn.Quote == nil {
		t.Fatalf("synthesized quote should answer the turn: %+v", turn)
	}

	snap, err := a.TurnStockView(context.Background(), turn, models.DefaultPeriod)
	if err != nil {
		t.Fatalf("TurnStockView: %v", err)
	}
	if snap.Quote != turn.Quote || snap.QuoteErr != nil {
		t.Fatalf("card quote %+v differs from the reply quote %+v", snap.Quote, turn.Quote)
	}
	if len(snap.History) != 31 {
		t.Fatalf("expected synthesized series, got %d points", len(snap.History))
	}

	var quoteFailures, historyFailures int
	for _, n := range rec.Notices() {
		switch n.Message {
		case consts.NoticeQuoteFailed:
			quoteFailures++
		case consts.NoticeHistoryFailed:
			historyFailures++
		}
	}
	if quoteFailures != 1 || historyFailures != 1 {
		t.Fatalf("each failure should be reported once, got %+v", rec.Notices())
	}
}

func TestTurnStockViewRequiresQuote(t *testing.T) {
	a, _ := newAssistant(&fakeMarket{}, &fakeReplies{}, &notify.Recorder{})
	if _, err := a.TurnStockView(context.Background(), &Turn{Symbol: "AAPL"}, ""); err == nil {
		t.Fatalf("expected error for a turn without a quote")
	}
}
