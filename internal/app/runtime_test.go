package app

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/dyike/GenieGo/config"
	"github.com/dyike/GenieGo/consts"
	"github.com/dyike/GenieGo/internal/conversation"
	"github.com/dyike/GenieGo/internal/notify"
	"github.com/dyike/GenieGo/models"
)

type echoModel struct {
	prefix string
}

func (m echoModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	return &schema.Message{Role: schema.Assistant, Content: m.prefix + input[len(input)-1].Content}, nil
}

func (m echoModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

// builderByModelName answers with the configured model name as prefix.
func builderByModelName(ctx context.Context, cfg config.Config) (*Engine, error) {
	if cfg.ChatModel == "broken" {
		return nil, errors.New("cannot build")
	}
	return newEngine(cfg, conversation.NewClient(echoModel{prefix: cfg.ChatModel + ":"}), nil), nil
}

func TestRuntimeDelegatesToEngine(t *testing.T) {
	mgr, err := config.NewManager(config.WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	rt, err := NewRuntime(context.Background(), mgr, WithBuilder(builderByModelName))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	got := rt.GenerateReply(context.Background(), []models.Message{models.UserMessage("hi")})
	if got != "deepseek-chat:hi" {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestRuntimeRebuildsOnConfigChange(t *testing.T) {
	// The watcher is slowed down so the test drives Reload itself.
	mgr, err := config.NewManager(config.WithConfigDir(t.TempDir()), config.WithDebounce(time.Hour))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	rec := &notify.Recorder{}
	rt, err := NewRuntime(context.Background(), mgr, WithBuilder(builderByModelName), WithNotifier(rec))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()
	first := rt.Engine()

	if err := rt.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if rt.Engine() != first {
		t.Fatalf("unchanged config should keep the engine")
	}

	writeConfig(t, rt.ConfigPath(), `{"chat_model":"deepseek-reasoner"}`)
	if err := rt.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if rt.Engine().Version <= first.Version {
		t.Fatalf("engine was not rebuilt")
	}
	got := rt.GenerateReply(context.Background(), []models.Message{models.UserMessage("x")})
	if got != "deepseek-reasoner:x" {
		t.Fatalf("reply did not use the new model: %q", got)
	}
	if last, ok := rec.Last(); !ok || last.Level != notify.LevelInfo {
		t.Fatalf("expected reload notice, got %+v", last)
	}

	// A failing rebuild keeps the previous engine.
	current := rt.Engine()
	writeConfig(t, rt.ConfigPath(), `{"chat_model":"broken"}`)
	if err := rt.Reload(context.Background()); err == nil {
		t.Fatalf("expected build error")
	}
	if rt.Engine() != current {
		t.Fatalf("failed rebuild should keep the previous engine")
	}
	if last, _ := rec.Last(); last.Level != notify.LevelError {
		t.Fatalf("expected failure notice, got %+v", last)
	}

	// So does a file that no longer parses.
	writeConfig(t, rt.ConfigPath(), `{"chat_model":`)
	if err := rt.Reload(context.Background()); err == nil {
		t.Fatalf("expected decode error")
	}
	if rt.Engine() != current {
		t.Fatalf("broken file should keep the previous engine")
	}
}

func TestRuntimeWatchesConfigFile(t *testing.T) {
	mgr, err := config.NewManager(config.WithConfigDir(t.TempDir()), config.WithDebounce(20*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	rt, err := NewRuntime(context.Background(), mgr, WithBuilder(builderByModelName))
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	writeConfig(t, rt.ConfigPath(), `{"chat_model":"edited"}`)
	deadline := time.Now().Add(2 * time.Second)
	for rt.Engine().Config.ChatModel != "edited" {
		if time.Now().After(deadline) {
			t.Fatalf("engine not rebuilt after editing %s", rt.ConfigPath())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestRuntimeStartsDegradedWithoutModel(t *testing.T) {
	initial := config.DefaultConfigWithRoot(t.TempDir())
	initial.ChatModel = "broken"
	mgr, err := config.NewManager(config.WithConfigDir(t.TempDir()), config.WithInitialConfig(initial))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	rt, err := NewRuntime(context.Background(), mgr, WithBuilder(builderByModelName))
	if err != nil {
		t.Fatalf("NewRuntime should not fail: %v", err)
	}
	defer rt.Close()

	if rt.Engine().Err == nil {
		t.Fatalf("degraded engine should carry the build error")
	}
	if got := rt.GenerateReply(context.Background(), nil); got != consts.ReplyApology {
		t.Fatalf("expected apology, got %q", got)
	}
}

func TestNewRuntimeRequiresManager(t *testing.T) {
	if _, err := NewRuntime(context.Background(), nil); err == nil {
		t.Fatalf("expected error without manager")
	}
}
