// Package suggest talks to an external text generation service that turns a
// health prompt into a free-text diet and training suggestion.
package suggest

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/AiCodeFutures/usermanage/internal/apperr"
)

// Suggester returns a suggestion for prompt or an error wrapping
// apperr.ErrExternalService.
type Suggester interface {
	Suggest(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Redis    redis.Options
	CacheTTL time.Duration
}

// ConfigFromEnv reads the AI_* and REDIS_* variables.
func ConfigFromEnv() Config {
	cfg := Config{
		APIKey:   os.Getenv("AI_API_KEY"),
		BaseURL:  os.Getenv("AI_BASE_URL"),
		Model:    os.Getenv("AI_MODEL"),
		Timeout:  durationEnv("AI_TIMEOUT", 30*time.Second),
		CacheTTL: durationEnv("AI_CACHE_TTL", 24*time.Hour),
		Redis: redis.Options{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	return cfg
}

func durationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

// New builds the configured suggester chain. It returns a nil Suggester when
// no API key is set, and a close func that releases the cache client if any.
func New(cfg Config, logger *zap.SugaredLogger) (Suggester, func() error) {
	noop := func() error { return nil }
	if cfg.APIKey == "" {
		logger.Infow("ai suggestion disabled", "reason", "AI_API_KEY not set")
		return nil, noop
	}
	var s Suggester = NewOpenAI(cfg)
	if cfg.Redis.Addr == "" {
		return s, noop
	}
	rdb := redis.NewClient(&cfg.Redis)
	logger.Infow("ai suggestion cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.CacheTTL)
	return NewCached(s, rdb, cfg.CacheTTL, logger), rdb.Close
}

// OpenAI calls an OpenAI-compatible chat completion endpoint.
type OpenAI struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAI(cfg Config) *OpenAI {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: openai.NewClientWithConfig(c), model: model, timeout: timeout}
}

const systemPrompt = "You are a certified nutritionist and fitness coach. " +
	"Give a concise, practical diet and training plan. Do not give medical diagnoses."

func (o *OpenAI) Suggest(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %w", apperr.ErrExternalService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", apperr.ErrExternalService)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", apperr.ErrExternalService)
	}
	return text, nil
}
