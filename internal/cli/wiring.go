package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dyike/GenieGo/config"
	"github.com/dyike/GenieGo/internal/app"
	"github.com/dyike/GenieGo/internal/assistant"
	"github.com/dyike/GenieGo/internal/debug"
	"github.com/dyike/GenieGo/internal/display"
	"github.com/dyike/GenieGo/internal/logger"
	"github.com/dyike/GenieGo/internal/marketdata"
	"github.com/dyike/GenieGo/internal/notify"
	"github.com/dyike/GenieGo/internal/session"
	"github.com/dyike/GenieGo/internal/storage"
)

type globalOptions struct {
	configPath string
	debug      bool
}

// services is everything a command may need, built once per process.
type services struct {
	cfgMgr    *config.Manager
	cfg       config.Config
	logger    *zap.Logger
	notifier  notify.Notifier
	kv        storage.Store
	// storage describes the backend in use for /status.
	storage   string
	session   *session.Store
	market    *marketdata.Client
	runtime   *app.Runtime
	assistant *assistant.Assistant
	renderer  *display.Renderer

	closers []func()
}

func openConfig(opts globalOptions) (*config.Manager, error) {
	path := opts.configPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	return config.NewManager(
		config.WithConfigPath(path),
		config.WithInitialConfig(config.DefaultConfigAt(filepath.Dir(path))),
	)
}

func newServices(ctx context.Context, opts globalOptions, out, errOut io.Writer) (*services, error) {
	cfgMgr, err := openConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := cfgMgr.Get()
	if opts.debug {
		cfg.Debug = true
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	s := &services{cfgMgr: cfgMgr, cfg: cfg}
	log, closeLog, err := logger.New(logger.FromConfig(cfg))
	if err != nil {
		return nil, err
	}
	s.logger = log
	s.closers = append(s.closers, closeLog)
	s.notifier = notify.NewConsole(errOut)
	s.renderer = display.NewRenderer(out)

	if err := debug.NewEinoDebugger(cfg, log).Initialize(ctx); err != nil {
		log.Warn("eino debug disabled", zap.Error(err))
	}

	kv, err := storage.Open(ctx, cfg)
	s.storage = cfg.StorageBackend
	if err != nil {
		// The session still runs; it just is not saved.
		log.Warn("storage unavailable, keeping the session in memory",
			zap.String("backend", cfg.StorageBackend),
			zap.Error(err),
		)
		kv = storage.NewMemoryStore()
		s.storage = fmt.Sprintf("memory (%s unavailable)", cfg.StorageBackend)
	}
	s.kv = kv
	s.closers = append(s.closers, func() { _ = kv.Close() })

	s.session = session.NewStore(kv, session.WithLogger(log))
	s.session.Restore(ctx)

	provider, err := marketdata.NewProvider(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.market = marketdata.NewClient(provider,
		marketdata.WithLogger(log),
		marketdata.WithNotifier(s.notifier),
		marketdata.WithCacheTTL(cfg.CacheTTL()),
		marketdata.WithRateLimit(cfg.MaxRequestsPerWindow, cfg.RateWindow()),
	)

	rt, err := app.NewRuntime(ctx, cfgMgr,
		app.WithLogger(log),
		app.WithNotifier(s.notifier),
	)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.runtime = rt
	s.closers = append(s.closers, rt.Close)

	s.assistant = assistant.New(s.session, s.market, rt,
		assistant.WithLogger(log),
		assistant.WithNotifier(s.notifier),
	)

	log.Info("geniego started",
		zap.String("version", Version),
		zap.String("config", cfgMgr.Path()),
		zap.String("market_provider", s.market.ProviderName()),
		zap.String("storage", s.storage),
	)
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
