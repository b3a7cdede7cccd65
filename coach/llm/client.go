// Package llm adapts an OpenAI-compatible completion endpoint to the
// coach.Completer contract.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"blucoach/coach"
	coreconfig "blucoach/core/config"
	"blucoach/core/logger"
)

// Config holds the prompt material the client needs beyond endpoint
// settings.
type Config struct {
	// SystemPrompt is the coach persona prepended to every completion.
	SystemPrompt string
	// SummaryPrompt instructs the model how to condense business info.
	SummaryPrompt string
	// VisionPrompt frames photo analysis; falls back to SystemPrompt
	// when empty.
	VisionPrompt string
}

// Client talks to the completion endpoint.
type Client struct {
	api          openai.Client
	model        string
	summaryModel string
	temperature  float64
	timeout      time.Duration
	prompts      Config
}

// New builds a Client from endpoint configuration. httpClient may be
// nil to use the default transport.
func New(cfg coreconfig.LLMConfig, prompts Config, httpClient *http.Client) *Client {
	opts := []option.RequestOption{option.WithBaseURL(cfg.BaseURL)}
	if strings.TrimSpace(cfg.APIKey) != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &Client{
		api:          openai.NewClient(opts...),
		model:        cfg.Model,
		summaryModel: cfg.SummaryModel,
		temperature:  cfg.Temperature,
		timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		prompts:      prompts,
	}
}

// Complete generates one coaching reply for the turn. History is
// replayed as alternating user/assistant messages; tone and business
// context travel in the final user message so the model always sees
// the current values.
func (c *Client) Complete(ctx context.Context, req coach.CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+2)
	if c.prompts.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(c.prompts.SystemPrompt))
	}
	for _, msg := range req.History {
		switch msg.Role {
		case coach.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(msg.Content))
		case coach.RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}
	messages = append(messages, openai.UserMessage(turnPrompt(req)))

	return c.create(ctx, c.model, messages)
}

// Summarize condenses business-profile text before it is persisted.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(c.prompts.SummaryPrompt),
		openai.UserMessage(text),
	}
	return c.create(ctx, c.summaryModel, messages)
}

// AnalyzeImage sends the photo as a multimodal content part alongside
// the caption and conversation context. The endpoint must support
// vision input; a non-vision model surfaces as a CompletionError.
func (c *Client) AnalyzeImage(ctx context.Context, req coach.ImageRequest) (string, error) {
	system := c.prompts.VisionPrompt
	if system == "" {
		system = c.prompts.SystemPrompt
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(imagePrompt(req)),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: req.ImageURL}),
	}
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(parts))

	return c.create(ctx, c.model, messages)
}

func (c *Client) create(ctx context.Context, model string, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		logger.Error(ctx, "llm", "completion",
			slog.String("model", model),
			slog.Int("messages", len(messages)),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return "", &coach.CompletionError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &coach.CompletionError{Err: fmt.Errorf("empty choices from model %s", model)}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", &coach.CompletionError{Err: fmt.Errorf("empty completion from model %s", model)}
	}

	logger.Debug(ctx, "llm", "completion",
		slog.String("status", "ok"),
		slog.String("model", model),
		slog.Int("messages", len(messages)),
		slog.Duration("duration", logger.Took(start)),
	)
	return content, nil
}

func imagePrompt(req coach.ImageRequest) string {
	var b strings.Builder
	b.WriteString("کاربر یک تصویر فرستاده است. آن را تحلیل کن و به زبان فارسی توضیح بده.")
	if strings.TrimSpace(req.Caption) != "" {
		b.WriteString("\nتوضیح کاربر: ")
		b.WriteString(req.Caption)
	}
	if strings.TrimSpace(req.Tone) != "" {
		b.WriteString("\nلحن پاسخ: ")
		b.WriteString(req.Tone)
	}
	if strings.TrimSpace(req.Profile) != "" {
		b.WriteString("\nاطلاعات کسب‌وکار کاربر: ")
		b.WriteString(req.Profile)
	}
	return b.String()
}

func turnPrompt(req coach.CompletionRequest) string {
	var b strings.Builder
	b.WriteString("پیام کاربر: ")
	b.WriteString(req.Input)
	if strings.TrimSpace(req.Tone) != "" {
		b.WriteString("\nلحن پاسخ: ")
		b.WriteString(req.Tone)
	}
	if strings.TrimSpace(req.Profile) != "" {
		b.WriteString("\nاطلاعات کسب‌وکار کاربر: ")
		b.WriteString(req.Profile)
	}
	return b.String()
}
