// Package llm is the boundary to the external language-model service. It
// exposes a single synchronous text-completion call and owns the timeout,
// throttling, and transport-error translation for it.
package llm

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/resilience"
)

// Client defines the model operations used by the enhancement engine.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request is a single text-completion request.
type Request struct {
	Model     string
	System    string
	Prompt    string
	MaxTokens int64
}

// Response is the model's answer plus call metadata.
type Response struct {
	Text    string
	Usage   TokenUsage
	Latency time.Duration
}

// TokenUsage tracks token consumption for one call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// modelPricing holds per-million-token pricing for known models.
var modelPricing = map[string][2]float64{
	// model → {input $/MTok, output $/MTok}
	"claude-haiku-4-5-20251001":  {0.80, 4.00},
	"claude-sonnet-4-5-20250929": {3.00, 15.00},
}

// EstimateCost computes an estimated cost in USD. Returns 0 for unknown models.
func (u TokenUsage) EstimateCost(model string) float64 {
	pricing, ok := modelPricing[model]
	if !ok {
		return 0
	}
	return (float64(u.InputTokens)/1e6)*pricing[0] + (float64(u.OutputTokens)/1e6)*pricing[1]
}

// Option configures the SDK-backed client.
type Option func(*sdkClient)

// WithTimeout overrides the per-call timeout (default 2 minutes).
func WithTimeout(d time.Duration) Option {
	return func(c *sdkClient) {
		c.timeout = d
	}
}

// WithRateLimit throttles calls to n per second with the given burst.
func WithRateLimit(n float64, burst int) Option {
	return func(c *sdkClient) {
		c.limiter = rate.NewLimiter(rate.Limit(n), burst)
	}
}

// WithRetry overrides the retry policy for transient API failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *sdkClient) {
		c.retry = cfg
	}
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client  sdk.Client
	timeout time.Duration
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

const defaultTimeout = 2 * time.Minute

// NewClient creates a model client backed by the SDK.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = transientAPIError
	retry.OnRetry = resilience.RetryLogger("llm")
	c := &sdkClient{
		client:  sdk.NewClient(option.WithAPIKey(apiKey)),
		timeout: defaultTimeout,
		retry:   retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// transientAPIError reports whether a model-service error is worth retrying:
// network-level faults, rate limiting, or server-side overload.
func transientAPIError(err error) bool {
	if resilience.IsTransient(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"429", "502", "503", "504", "529", "overloaded", "rate limit"} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func (c *sdkClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "llm: rate limit wait")
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	msg, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*sdk.Message, error) {
		return c.client.Messages.New(ctx, params)
	})
	latency := time.Since(start)
	if err != nil {
		return nil, eris.Wrap(err, "llm: create message")
	}

	resp := &Response{
		Text:    extractText(msg),
		Latency: latency,
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}

	zap.L().Debug("llm call",
		zap.String("model", req.Model),
		zap.Int64("input_tokens", resp.Usage.InputTokens),
		zap.Int64("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("latency", latency),
		zap.Float64("estimated_cost_usd", resp.Usage.EstimateCost(req.Model)),
	)

	return resp, nil
}

// extractText concatenates all text content blocks from a message.
func extractText(msg *sdk.Message) string {
	var out string
	for _, block := range msg.Content {
		if block.Text != "" {
			if out != "" {
				out += "\n"
			}
			out += block.Text
		}
	}
	return out
}
