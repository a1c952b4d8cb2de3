package completion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

// Client is an OpenAI-compatible chat completion client. It also speaks to
// OpenRouter-style gateways via a custom base URL, which is how the hosted
// deployment reaches Gemini-class models.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	configured  bool
}

// Options configure the completion client.
type Options struct {
	APIKey      string
	BaseURL     string // empty = provider default
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // per-call deadline, 0 = no deadline
}

// NewClient builds a completion client. An empty API key yields a client
// that reports not-ready instead of failing construction, so the server can
// boot without credentials and surface a configuration error per request.
func NewClient(opts Options) *Client {
	if opts.Model == "" {
		opts.Model = "gpt-4o-mini"
	}
	if opts.Temperature <= 0 {
		opts.Temperature = 0.7
	}
	if strings.TrimSpace(opts.APIKey) == "" {
		log.Warn().Msg("completion service not configured; agents will use rule-based fallbacks")
		return &Client{model: opts.Model}
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	log.Info().Str("model", opts.Model).Msg("completion service initialized")
	return &Client{
		client:      openai.NewClient(reqOpts...),
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		timeout:     opts.Timeout,
		configured:  true,
	}
}

// Ready reports whether an API key was configured.
func (c *Client) Ready() bool {
	return c != nil && c.configured
}

// Complete sends one prompt with a system instruction and returns the raw
// text of the first choice.
func (c *Client) Complete(ctx context.Context, prompt, systemInstruction string) (string, error) {
	if !c.Ready() {
		return "", ErrNotConfigured
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if systemInstruction != "" {
		messages = append(messages, openai.SystemMessage(systemInstruction))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("completion call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion call: empty response from %s", c.model)
	}
	return resp.Choices[0].Message.Content, nil
}
