package app

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/GenieGo/config"
	"github.com/dyike/GenieGo/internal/conversation"
	"github.com/dyike/GenieGo/internal/notify"
)

// Engine is the config-dependent part of the assistant: the conversation
// client and the model behind it.
type Engine struct {
	Config  config.Config
	Replies *conversation.Client
	BuiltAt time.Time
	Version uint64
	// Err is set when the chat model could not be built; Replies then
	// answers every turn with the apology.
	Err error
}

type EngineBuilder func(ctx context.Context, cfg config.Config) (*Engine, error)

var engineSeq atomic.Uint64

// NewEngineBuilder returns a builder that creates the chat model named by
// the config.
func NewEngineBuilder(logger *zap.Logger, notifier notify.Notifier) EngineBuilder {
	return func(ctx context.Context, cfg config.Config) (*Engine, error) {
		chatModel, err := conversation.NewChatModel(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return newEngine(cfg, conversation.NewClient(chatModel,
			conversation.WithLogger(logger),
			conversation.WithNotifier(notifier),
		), nil), nil
	}
}

func newEngine(cfg config.Config, replies *conversation.Client, err error) *Engine {
	return &Engine{
		Config:  cfg,
		Replies: replies,
		BuiltAt: time.Now(),
		Version: engineSeq.Add(1),
		Err:     err,
	}
}
