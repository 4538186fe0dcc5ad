package conversation

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/dyike/GenieGo/consts"
	"github.com/dyike/GenieGo/internal/notify"
	"github.com/dyike/GenieGo/models"
)

var errEmptyCompletion = errors.New("conversation: empty completion")

// Client turns an exchange history into one assistant reply. It never
// returns an error: failures are reported on the notifier and answered with
// a fixed apology.
type Client struct {
	model    model.BaseChatModel
	persona  string
	logger   *zap.Logger
	notifier notify.Notifier
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

func WithPersona(persona string) Option {
	return func(c *Client) {
		if strings.TrimSpace(persona) != "" {
			c.persona = persona
		}
	}
}

func NewClient(chatModel model.BaseChatModel, opts ...Option) *Client {
	c := &Client{
		model:    chatModel,
		persona:  consts.SystemPersona,
		logger:   zap.NewNop(),
		notifier: notify.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateReply submits the persona followed by history. The caller is
// responsible for excluding the welcome message (see BuildHistory).
func (c *Client) GenerateReply(ctx context.Context, history []models.Message) string {
	reply, err := c.generate(ctx, history)
	if err != nil {
		if ctx.Err() == nil {
			c.notifier.Notify(notify.LevelError, consts.NoticeReplyFailed)
		}
		c.logger.Error("generate reply failed", zap.Int("history_len", len(history)), zap.Error(err))
		return consts.ReplyApology
	}
	return reply
}

func (c *Client) generate(ctx context.Context, history []models.Message) (string, error) {
	if c.model == nil {
		return "", errors.New("conversation: chat model not configured")
	}
	resp, err := c.model.Generate(ctx, c.Payload(history))
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", errEmptyCompletion
	}
	return resp.Content, nil
}

// Payload is the exact message list sent to the model.
func (c *Client) Payload(history []models.Message) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, schema.SystemMessage(c.persona))
	for _, m := range history {
		msgs = append(msgs, toSchema(m))
	}
	return msgs
}

func toSchema(m models.Message) *schema.Message {
	if m.IsUser() {
		return schema.UserMessage(m.Content)
	}
	return &schema.Message{Role: schema.Assistant, Content: m.Content}
}

// BuildHistory drops the seeded welcome message at the head of log. The log
// is expected to already end with the newest user message.
func BuildHistory(log []models.Message) []models.Message {
	if len(log) > 0 && log[0] == models.WelcomeMessage() {
		log = log[1:]
	}
	out := make([]models.Message, len(log))
	copy(out, log)
	return out
}
