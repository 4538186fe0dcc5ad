package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dyike/GenieGo/config"
)

// NewChatModel builds the chat model named by cfg.LLMProvider. The openai
// provider targets any OpenAI-compatible endpoint at cfg.BackendURL.
func NewChatModel(ctx context.Context, cfg config.Config) (model.BaseChatModel, error) {
	if cfg.DeepSeekAPIKey == "" {
		return nil, errors.New("DEEPSEEK_API_KEY is not configured")
	}

	switch cfg.LLMProvider {
	case config.ProviderOpenAI, "":
		maxTokens := cfg.MaxTokens
		temperature := cfg.Temperature
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL:     cfg.BackendURL,
			APIKey:      cfg.DeepSeekAPIKey,
			Model:       cfg.ChatModel,
			MaxTokens:   &maxTokens,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("create openai chat model: %w", err)
		}
		return chatModel, nil
	case config.ProviderDeepSeek:
		chatModel, err := deepseek.NewChatModel(ctx, &deepseek.ChatModelConfig{
			APIKey:      cfg.DeepSeekAPIKey,
			Model:       cfg.ChatModel,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("create deepseek chat model: %w", err)
		}
		return chatModel, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}
