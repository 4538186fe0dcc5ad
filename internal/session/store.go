package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/GenieGo/consts"
	"github.com/dyike/GenieGo/internal/storage"
	"github.com/dyike/GenieGo/models"
)

const defaultWriteTimeout = 2 * time.Second

// Store owns the chat log and the recent-symbol list. Both are persisted
// to the key-value store on every change; persistence failures are logged
// and never surface to the caller.
type Store struct {
	mu     sync.RWMutex
	log    []models.Message
	recent []string

	kv           storage.Store
	logger       *zap.Logger
	writeTimeout time.Duration
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// NewStore returns a store seeded with the welcome message. Call Restore to
// load previously persisted state.
func NewStore(kv storage.Store, opts ...Option) *Store {
	s := &Store{
		log:          []models.Message{models.WelcomeMessage()},
		recent:       []string{},
		kv:           kv,
		logger:       zap.NewNop(),
		writeTimeout: defaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads the persisted log and recent list. Missing or malformed
// data leaves the defaults in place.
func (s *Store) Restore(ctx context.Context) {
	if s.kv == nil {
		return
	}

	if raw, ok := s.read(ctx, consts.KeyMessages); ok {
		var msgs []models.Message
		if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
			s.logger.Warn("ignoring malformed message log", zap.Error(err))
		} else if restored := sanitizeLog(msgs); restored != nil {
			s.mu.Lock()
			s.log = restored
			s.mu.Unlock()
		}
	}

	if raw, ok := s.read(ctx, consts.KeyRecentSearches); ok {
		var symbols []string
		if err := json.Unmarshal([]byte(raw), &symbols); err != nil {
			s.logger.Warn("ignoring malformed recent searches", zap.Error(err))
		} else {
			s.mu.Lock()
			s.recent = normalizeRecent(symbols)
			s.mu.Unlock()
		}
	}
}

// Append adds msg to the log and persists it.
func (s *Store) Append(msg models.Message) {
	s.mu.Lock()
	s.log = append(s.log, msg)
	snapshot := cloneMessages(s.log)
	s.mu.Unlock()

	s.persistLog(snapshot)
}

// Retract removes msg when it is the last entry of the log, undoing an
// Append whose turn did not complete. It reports whether msg was removed.
func (s *Store) Retract(msg models.Message) bool {
	s.mu.Lock()
	n := len(s.log)
	if n <= 1 || s.log[n-1] != msg {
		s.mu.Unlock()
		return false
	}
	s.log = s.log[:n-1]
	snapshot := cloneMessages(s.log)
	s.mu.Unlock()

	if len(snapshot) > 1 {
		s.persistLog(snapshot)
	} else {
		s.erase()
	}
	return true
}

// Clear truncates the log to the welcome message and erases the persisted
// log. The recent-symbol list is left alone.
func (s *Store) Clear() {
	s.mu.Lock()
	s.log = []models.Message{models.WelcomeMessage()}
	s.mu.Unlock()

	s.erase()
}

func (s *Store) erase() {
	if s.kv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.kv.Delete(ctx, consts.KeyMessages); err != nil {
		s.logger.Warn("erase persisted log failed", zap.Error(err))
	}
}

func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.log)
}

// History is the log without the leading welcome message.
func (s *Store) History() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.log[1:])
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

func (s *Store) RecentSymbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.recent))
	copy(out, s.recent)
	return out
}

// AddRecentSymbol moves symbol to the front of the list, inserting it if
// absent, and keeps at most MaxRecentSymbols entries. It reports whether the
// symbol was new to the list.
func (s *Store) AddRecentSymbol(symbol string) bool {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return false
	}

	s.mu.Lock()
	inserted := true
	next := make([]string, 0, consts.MaxRecentSymbols)
	next = append(next, symbol)
	for _, existing := range s.recent {
		if existing == symbol {
			inserted = false
			continue
		}
		next = append(next, existing)
	}
	if len(next) > consts.MaxRecentSymbols {
		next = next[:consts.MaxRecentSymbols]
	}
	changed := inserted || s.recent[0] != symbol
	s.recent = next
	snapshot := append([]string(nil), next...)
	s.mu.Unlock()

	if changed {
		s.persistRecent(snapshot)
	}
	return inserted
}

func (s *Store) persistLog(log []models.Message) {
	// A welcome-only log is an empty session.
	if len(log) <= 1 {
		return
	}
	s.write(consts.KeyMessages, log)
}

func (s *Store) persistRecent(symbols []string) {
	s.write(consts.KeyRecentSearches, symbols)
}

func (s *Store) write(key string, v any) {
	if s.kv == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("encode session state failed", zap.String("key", key), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		s.logger.Warn("persist session state failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Store) read(ctx context.Context, key string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.writeTimeout)
	defer cancel()
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("read session state failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return raw, true
}

// sanitizeLog drops entries with unknown roles and guarantees the welcome
// message leads. It returns nil when nothing usable remains.
func sanitizeLog(msgs []models.Message) []models.Message {
	out := make([]models.Message, 0, len(msgs)+1)
	for _, m := range msgs {
		if m.Role == consts.Role_User || m.Role == consts.Role_Assistant {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil
	}
	if out[0] != models.WelcomeMessage() {
		out = append([]models.Message{models.WelcomeMessage()}, out...)
	}
	return out
}

func normalizeRecent(symbols []string) []string {
	out := make([]string, 0, consts.MaxRecentSymbols)
	seen := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
		if len(out) == consts.MaxRecentSymbols {
			break
		}
	}
	return out
}

func cloneMessages(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}
