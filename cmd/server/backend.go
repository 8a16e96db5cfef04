package main

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ahmetcoskunkizilkaya/nippogen/internal/config"
	"github.com/ahmetcoskunkizilkaya/nippogen/internal/generation"
)

// newBackend picks the report generation backend from AI_PROVIDER. The
// returned close func releases the Gemini client when one was opened.
func newBackend(ctx context.Context, cfg *config.Config) (generation.Backend, func() error, error) {
	if strings.EqualFold(cfg.AIProvider, "gemini") {
		gemini, err := generation.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("generation backend ready", "provider", "gemini", "model", cfg.GeminiModel)
		return generation.NewPromptBackend(gemini), gemini.Close, nil
	}

	chat := generation.NewChatCompleter(&http.Client{Timeout: cfg.AITimeout},
		generation.ChatEndpoint{Name: "glm", URL: cfg.GLMAPIURL, APIKey: cfg.GLMAPIKey, Model: cfg.GLMModel},
		generation.ChatEndpoint{Name: "deepseek", URL: cfg.DeepSeekAPIURL, APIKey: cfg.DeepSeekAPIKey, Model: cfg.DeepSeekModel},
		generation.ChatEndpoint{Name: "openai", URL: cfg.OpenAIAPIURL, APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel},
	)
	if len(chat.Endpoints()) == 0 {
		slog.Warn("no generation API key configured, report generation will fail")
	} else {
		slog.Info("generation backend ready", "provider", "chat", "endpoints", chat.Endpoints())
	}
	return generation.NewPromptBackend(chat), func() error { return nil }, nil
}
