package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dyike/GenieGo/consts"
	"github.com/dyike/GenieGo/internal/storage"
	"github.com/dyike/GenieGo/models"
)

func persisted(t *testing.T, kv storage.Store, key string, v any) bool {
	t.Helper()
	raw, err := kv.Get(context.Background(), key)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		t.Fatalf("Get %s: %v", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		t.Fatalf("decode %s: %v", key, err)
	}
	return true
}

func TestNewStoreSeedsWelcome(t *testing.T) {
	s := NewStore(storage.NewMemoryStore())
	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0] != models.WelcomeMessage() {
		t.Fatalf("expected welcome-only log, got %+v", msgs)
	}
	if len(s.History()) != 0 {
		t.Fatalf("history should exclude the welcome message")
	}
	if len(s.RecentSymbols()) != 0 {
		t.Fatalf("fresh session should have no recent symbols")
	}
}

func TestAppendPersists(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := NewStore(kv)
	s.Append(models.UserMessage("hello"))

	var saved []models.Message
	if !persisted(t, kv, consts.KeyMessages, &saved) {
		t.Fatalf("log was not persisted")
	}
	if len(saved) != 2 || saved[0] != models.WelcomeMessage() || saved[1].Content != "hello" {
		t.Fatalf("unexpected persisted log %+v", saved)
	}
}

func TestRetract(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := NewStore(kv)
	first := models.UserMessage("hello")
	s.Append(first)
	s.Append(models.AssistantMessage("hi there"))
	pending := models.UserMessage("and now?")
	s.Append(pending)

	if s.Retract(first) {
		t.Fatalf("only the last entry can be retracted")
	}
	if !s.Retract(pending) {
		t.Fatalf("expected the pending message to be retracted")
	}
	var saved []models.Message
	if !persisted(t, kv, consts.KeyMessages, &saved) || len(saved) != 3 {
		t.Fatalf("persisted log should drop the retracted message, got %+v", saved)
	}

	// Retracting back to the welcome message erases the persisted log.
	s.Clear()
	s.Append(first)
	if !s.Retract(first) || s.Len() != 1 {
		t.Fatalf("expected welcome-only log, got %d entries", s.Len())
	}
	if persisted(t, kv, consts.KeyMessages, &saved) {
		t.Fatalf("welcome-only log should not stay persisted, got %+v", saved)
	}
	if s.Retract(models.WelcomeMessage()) {
		t.Fatalf("the welcome message is never retracted")
	}
}

func TestClearKeepsRecent(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := NewStore(kv)
	s.Append(models.UserMessage("AAPL stock"))
	s.AddRecentSymbol("AAPL")
	s.Append(models.AssistantMessage("Apple is up"))

	s.Clear()

	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].Content != consts.WelcomeMessage {
		t.Fatalf("expected welcome-only log after clear, got %+v", msgs)
	}
	var saved []models.Message
	if persisted(t, kv, consts.KeyMessages, &saved) {
		t.Fatalf("persisted log should be erased, got %+v", saved)
	}
	var recent []string
	if !persisted(t, kv, consts.KeyRecentSearches, &recent) || len(recent) != 1 || recent[0] != "AAPL" {
		t.Fatalf("recent list should survive clear, got %v", recent)
	}
	if got := s.RecentSymbols(); len(got) != 1 {
		t.Fatalf("in-memory recent list should survive clear, got %v", got)
	}
}

func TestRecentSymbolsBoundedAndOrdered(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := NewStore(kv)

	inserted := []bool{}
	for _, sym := range []string{"TSLA", "AAPL", "tsla", "MSFT", "GOOGL", "AMZN"} {
		inserted = append(inserted, s.AddRecentSymbol(sym))
	}
	want := []string{"AMZN", "GOOGL", "MSFT", "TSLA", "AAPL"}
	got := s.RecentSymbols()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if inserted[2] {
		t.Fatalf("a repeated symbol should be moved, not reported as new")
	}

	s.AddRecentSymbol("META")
	got = s.RecentSymbols()
	if len(got) != 5 || got[0] != "META" || got[4] != "TSLA" {
		t.Fatalf("expected oldest entry dropped, got %v", got)
	}

	var saved []string
	persisted(t, kv, consts.KeyRecentSearches, &saved)
	if len(saved) != 5 || saved[0] != "META" {
		t.Fatalf("unexpected persisted recent list %v", saved)
	}
}

func TestRestore(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()
	log := []models.Message{
		models.WelcomeMessage(),
		models.UserMessage("MSFT price"),
		models.AssistantMessage("Microsoft is up"),
	}
	data, _ := json.Marshal(log)
	_ = kv.Set(ctx, consts.KeyMessages, string(data))
	_ = kv.Set(ctx, consts.KeyRecentSearches, `["msft","AAPL","MSFT","a","b","c","d"]`)

	s := NewStore(kv)
	s.Restore(ctx)

	if got := s.Messages(); len(got) != 3 || got[2].Content != "Microsoft is up" {
		t.Fatalf("unexpected restored log %+v", got)
	}
	want := []string{"MSFT", "AAPL", "A", "B", "C"}
	got := s.RecentSymbols()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("restored recent = %v, want %v", got, want)
		}
	}
}

func TestRestorePrependsMissingWelcome(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()
	_ = kv.Set(ctx, consts.KeyMessages, `[{"role":"user","content":"hi"},{"role":"system","content":"x"}]`)

	s := NewStore(kv)
	s.Restore(ctx)
	got := s.Messages()
	if len(got) != 2 || got[0] != models.WelcomeMessage() || got[1].Content != "hi" {
		t.Fatalf("expected welcome prepended and system dropped, got %+v", got)
	}
}

func TestRestoreIgnoresMalformed(t *testing.T) {
	kv := storage.NewMemoryStore()
	ctx := context.Background()
	_ = kv.Set(ctx, consts.KeyMessages, `{not json`)
	_ = kv.Set(ctx, consts.KeyRecentSearches, `42`)

	s := NewStore(kv)
	s.Restore(ctx)
	if len(s.Messages()) != 1 {
		t.Fatalf("malformed log should leave the default")
	}
	if len(s.RecentSymbols()) != 0 {
		t.Fatalf("malformed recent list should leave the default")
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, error) { return "", errors.New("disk gone") }
func (failingStore) Set(context.Context, string, string) error   { return errors.New("disk gone") }
func (failingStore) Delete(context.Context, string) error        { return errors.New("disk gone") }
func (failingStore) Close() error                                { return nil }

func TestPersistenceFailuresAreSwallowed(t *testing.T) {
	s := NewStore(failingStore{})
	s.Restore(context.Background())
	s.Append(models.UserMessage("still works"))
	s.AddRecentSymbol("IBM")
	s.Clear()

	if len(s.Messages()) != 1 || len(s.RecentSymbols()) != 1 {
		t.Fatalf("in-memory state should be unaffected by storage failures")
	}
}

func TestWelcomeOnlyLogIsNotPersisted(t *testing.T) {
	kv := storage.NewMemoryStore()
	s := NewStore(kv)
	s.persistLog(s.Messages())
	if _, err := kv.Get(context.Background(), consts.KeyMessages); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("welcome-only log should not be written")
	}
}
