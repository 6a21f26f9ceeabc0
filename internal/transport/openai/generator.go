package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/answerdex/internal/domain"
	"github.com/kailas-cloud/answerdex/internal/metrics"
)

// Generator produces answer text from a grounded payload through an
// OpenAI-compatible chat completion API. Calls run behind a circuit
// breaker so a misbehaving provider fails fast instead of queueing.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	user        string
	provider    string
	breaker     *gobreaker.CircuitBreaker[string]
	logger      *zap.Logger
}

// GeneratorConfig holds the answer model settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	User        string
	Provider    string
	Logger      *zap.Logger

	BreakerMinRequests  uint32
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
}

// NewGenerator creates an OpenAI-compatible answer model client.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	minRequests := cfg.BreakerMinRequests
	if minRequests == 0 {
		minRequests = 5
	}
	failureRatio := cfg.BreakerFailureRatio
	if failureRatio <= 0 {
		failureRatio = 0.6
	}
	openTimeout := cfg.BreakerOpenTimeout
	if openTimeout <= 0 {
		openTimeout = 30 * time.Second
	}

	logger := cfg.Logger

	settings := gobreaker.Settings{
		Name: "answer-model",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureRatio
		},
		Timeout: openTimeout,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Answer model circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		user:        cfg.User,
		provider:    cfg.Provider,
		breaker:     gobreaker.NewCircuitBreaker[string](settings),
		logger:      logger,
	}
}

// GenerateAnswer implements domain.AnswerModel. The returned string is the
// raw model text; the caller owns parsing and validation.
func (g *Generator) GenerateAnswer(ctx context.Context, payload domain.AnswerPayload) (string, error) {
	raw, err := g.breaker.Execute(func() (string, error) {
		return g.complete(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("answer model circuit open: %w", domain.ErrUpstreamTransport)
		}
		return "", err
	}
	return raw, nil
}

func (g *Generator) complete(ctx context.Context, payload domain.AnswerPayload) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	userMsg, err := buildUserMessage(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	req := openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
		User:        g.user,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildSystemMessage(payload)},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		return "", g.classify(err)
	}

	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, "empty_response").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrUpstreamTransport)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.provider, g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.provider, g.model).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "completion").
			Add(float64(resp.Usage.CompletionTokens))
		metrics.GenerationTokensTotal.WithLabelValues(g.provider, g.model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return resp.Choices[0].Message.Content, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// classify maps a raw client error onto the timeout or transport sentinel.
func (g *Generator) classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, "timeout").Inc()
		return fmt.Errorf("completion timed out: %w", domain.ErrUpstreamTimeout)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, "timeout").Inc()
		return fmt.Errorf("completion timed out: %w", domain.ErrUpstreamTimeout)
	}

	metrics.GenerationErrorsTotal.WithLabelValues(g.provider, g.model, "api_error").Inc()
	return parseAPIError("completion", err, domain.ErrUpstreamTransport)
}

func buildSystemMessage(payload domain.AnswerPayload) string {
	var b strings.Builder
	b.WriteString("You answer questions using only the provided items.\n")
	for _, rule := range payload.Rules {
		b.WriteString("- ")
		b.WriteString(rule)
		b.WriteString("\n")
	}
	b.WriteString(payload.Schema)
	return b.String()
}

func buildUserMessage(payload domain.AnswerPayload) (string, error) {
	body, err := json.Marshal(struct {
		Query string               `json:"query"`
		Items []domain.PayloadItem `json:"items"`
	}{Query: payload.Query, Items: payload.Items})
	if err != nil {
		return "", err
	}
	return string(body), nil
}
