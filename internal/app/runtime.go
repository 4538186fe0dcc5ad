package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/GenieGo/config"
	"github.com/dyike/GenieGo/consts"
	"github.com/dyike/GenieGo/internal/conversation"
	"github.com/dyike/GenieGo/internal/notify"
	"github.com/dyike/GenieGo/models"
)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(r *Runtime) {
		if n != nil {
			r.notifier = n
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runtime keeps the current Engine and rebuilds it whenever config.json
// changes. A failed rebuild keeps the previous engine.
type Runtime struct {
	cfgMgr *config.Manager
	engine atomic.Pointer[Engine]
	// reloadMu serializes Reload between the watcher and direct callers.
	reloadMu sync.Mutex

	builder  EngineBuilder
	notifier notify.Notifier
	logger   *zap.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewRuntime(ctx context.Context, cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	rt := &Runtime{
		cfgMgr:   cfgMgr,
		notifier: notify.Nop(),
		logger:   zap.NewNop(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.builder == nil {
		rt.builder = NewEngineBuilder(rt.logger, rt.notifier)
	}

	cfg := cfgMgr.Get()
	if err := rt.rebuild(ctx, cfg); err != nil {
		// Start degraded: market features still work and chat turns get
		// the apology until the config is fixed.
		rt.logger.Warn("chat model unavailable", zap.Error(err))
		rt.engine.Store(newEngine(cfg, conversation.NewClient(nil,
			conversation.WithLogger(rt.logger),
			conversation.WithNotifier(rt.notifier),
		), err))
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	changes, err := cfgMgr.Changes(watchCtx)
	if err != nil {
		cancel()
		return nil, err
	}
	rt.cancel = cancel
	go func() {
		defer close(rt.done)
		for range changes {
			_ = rt.Reload(watchCtx)
		}
	}()

	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

func (r *Runtime) Config() config.Config {
	return r.cfgMgr.Get()
}

func (r *Runtime) ConfigPath() string {
	return r.cfgMgr.Path()
}

// Close stops watching config.json and waits for a reload in progress.
func (r *Runtime) Close() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}

// Reload rereads config.json and rebuilds the engine when it changed. Both
// an unusable file and a failed build are reported on the notifier and leave
// the current engine serving.
func (r *Runtime) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	cfg, changed, err := r.cfgMgr.Reload()
	if err != nil {
		r.logger.Warn("config reload failed", zap.Error(err))
		r.notifier.Notify(notify.LevelError, fmt.Sprintf("Config reload failed: %v", err))
		return err
	}
	if !changed {
		return nil
	}
	if err := r.rebuild(ctx, cfg); err != nil {
		r.notifier.Notify(notify.LevelError, fmt.Sprintf("Config reload failed: %v", err))
		return err
	}
	r.notifier.Notify(notify.LevelInfo, fmt.Sprintf("Configuration reloaded (engine v%d)", r.Engine().Version))
	return nil
}

// GenerateReply delegates to the current engine, so model changes apply to
// the next turn without a restart.
func (r *Runtime) GenerateReply(ctx context.Context, history []models.Message) string {
	engine := r.engine.Load()
	if engine == nil || engine.Replies == nil {
		return consts.ReplyApology
	}
	return engine.Replies.GenerateReply(ctx, history)
}

func (r *Runtime) rebuild(ctx context.Context, cfg config.Config) error {
	engine, err := r.builder(ctx, cfg)
	if err != nil {
		r.logger.Error("engine build failed", zap.Error(err))
		return err
	}
	r.engine.Store(engine)
	r.logger.Info("engine built",
		zap.Uint64("version", engine.Version),
		zap.String("model", cfg.ChatModel),
		zap.String("built_at", engine.BuiltAt.UTC().Format(time.RFC3339)),
	)
	return nil
}
