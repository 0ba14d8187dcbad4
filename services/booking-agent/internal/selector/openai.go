package selector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const systemPrompt = `You are a scheduling assistant. Analyze the overlapping available meeting times and suggest the best option: the earliest reasonable business-hour slot.

Answer with JSON only: {"suggested_time": "<ISO 8601 instant with offset>?month=YYYY-MM&date=YYYY-MM-DD"}
Example: {"suggested_time": "2025-03-05T09:30:00-08:00?month=2025-03&date=2025-03-05"}
The instant must be copied exactly from one of the listed options.`

type OpenAI struct {
	client *openai.Client
	model  string
	log    *slog.Logger
}

type suggestion struct {
	SuggestedTime string `json:"suggested_time"`
}

// NewOpenAI builds a selector over any OpenAI-compatible chat completions endpoint.
func NewOpenAI(apiKey, baseURL, model string, log *slog.Logger) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{
		Timeout:   60 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	if strings.TrimSpace(model) == "" {
		model = openai.GPT4oMini
	}
	if log == nil {
		log = slog.Default()
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model, log: log}
}

func (s *OpenAI) Name() string { return "openai:" + s.model }

func (s *OpenAI) Select(ctx context.Context, listing string) (string, error) {
	if strings.TrimSpace(listing) == "" {
		return "", ErrEmptyListing
	}
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Overlapping available times:\n" + listing},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "slot_suggestion",
				Strict: true,
				Schema: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"suggested_time": {
							Type:        jsonschema.String,
							Description: "ISO 8601 instant with offset followed by ?month=YYYY-MM&date=YYYY-MM-DD",
						},
					},
					Required:             []string{"suggested_time"},
					AdditionalProperties: false,
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return parseAnswer(resp.Choices[0].Message.Content, s.log), nil
}

// parseAnswer accepts the JSON object and falls back to the raw text.
func parseAnswer(content string, log *slog.Logger) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var out suggestion
	if err := json.Unmarshal([]byte(content), &out); err == nil && strings.TrimSpace(out.SuggestedTime) != "" {
		return strings.TrimSpace(out.SuggestedTime)
	}
	log.Warn("selector answer was not the expected json", "content", content)
	return content
}
