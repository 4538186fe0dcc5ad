package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"go.uber.org/zap"

	"github.com/dyike/GenieGo/config"
)

// EinoDebugger starts the eino devops server so chat model calls can be
// inspected from the eino IDE plugin.
type EinoDebugger struct {
	cfg    config.Config
	logger *zap.Logger
	start  func(ctx context.Context) error
}

func NewEinoDebugger(cfg config.Config, logger *zap.Logger) *EinoDebugger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EinoDebugger{
		cfg:    cfg,
		logger: logger,
		start: func(ctx context.Context) error {
			return devops.Init(ctx)
		},
	}
}

// Initialize is a no-op unless EinoDebugEnabled is set.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.cfg.EinoDebugEnabled {
		return nil
	}

	d.logger.Info("initializing eino debug plugin", zap.Int("port", d.cfg.EinoDebugPort))
	if err := d.start(ctx); err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}
	d.logger.Info("eino debug server ready", zap.String("url", d.DebugURL()))
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.cfg.EinoDebugEnabled
}

func (d *EinoDebugger) DebugURL() string {
	if !d.cfg.EinoDebugEnabled {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.cfg.EinoDebugPort)
}
