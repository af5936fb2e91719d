package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/storytailer/api/internal/config"
	"github.com/storytailer/api/internal/model"
)

// JSON schemas for structured outputs. Ollama constrains generation to match.
var (
	verdictSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"summary": {"type": "string"},
			"is_restricted": {"type": "boolean"}
		},
		"required": ["is_restricted"]
	}`)

	insightsSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"title": {"type": "string"},
			"caption": {"type": "string"},
			"subjects": {"type": "array", "items": {"type": "string"}},
			"setting": {"type": "string"},
			"colors": {"type": "array", "items": {"type": "string"}},
			"time_of_day": {"type": "string"}
		},
		"required": ["title", "caption", "setting"]
	}`)
)

// OllamaClient talks to an Ollama server hosting both the vision and the
// text model.
type OllamaClient struct {
	client      *api.Client
	visionModel string
	textModel   string
	configured  bool
}

func NewOllamaClient(cfg *config.OllamaConfig) (*OllamaClient, error) {
	baseURL := strings.TrimSuffix(cfg.URL, "/")
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL %q: %w", cfg.URL, err)
	}

	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}

	return &OllamaClient{
		client:      api.NewClient(parsed, httpClient),
		visionModel: cfg.VisionModel,
		textModel:   cfg.TextModel,
		configured:  cfg.URL != "",
	}, nil
}

// ClassifyContent runs the vision model as a content safety classifier over
// the image plus free-text context.
func (c *OllamaClient) ClassifyContent(ctx context.Context, image []byte, system, user string) (*model.ContentVerdict, error) {
	content, err := c.chat(ctx, c.visionModel, system, user, image, verdictSchema, map[string]any{
		"temperature": 0.0,
		"num_ctx":     2048,
	})
	if err != nil {
		return nil, err
	}

	var verdict model.ContentVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return nil, fmt.Errorf("failed to decode verdict: %w", err)
	}
	return &verdict, nil
}

// DescribeImage extracts grounded story-building cues from the image.
func (c *OllamaClient) DescribeImage(ctx context.Context, image []byte, system, user string) (*model.ImageInsights, error) {
	content, err := c.chat(ctx, c.visionModel, system, user, image, insightsSchema, map[string]any{
		"temperature": 0.3,
		"num_ctx":     2048,
	})
	if err != nil {
		return nil, err
	}

	var insights model.ImageInsights
	if err := json.Unmarshal([]byte(content), &insights); err != nil {
		return nil, fmt.Errorf("failed to decode insights: %w", err)
	}
	return &insights, nil
}

// ComposeStory runs the text model to produce the final story prose.
func (c *OllamaClient) ComposeStory(ctx context.Context, system, user string, maxTokens int) (string, error) {
	return c.chat(ctx, c.textModel, system, user, nil, nil, map[string]any{
		"temperature": 1.2,
		"num_ctx":     2048,
		"num_predict": maxTokens,
	})
}

func (c *OllamaClient) chat(
	ctx context.Context,
	mdl string,
	system, user string,
	image []byte,
	format json.RawMessage,
	options map[string]any,
) (string, error) {
	userMsg := api.Message{Role: "user", Content: user}
	if image != nil {
		userMsg.Images = []api.ImageData{image}
	}

	stream := false
	req := &api.ChatRequest{
		Model: mdl,
		Messages: []api.Message{
			{Role: "system", Content: system},
			userMsg,
		},
		Stream:  &stream,
		Format:  format,
		Options: options,
	}

	var resp api.ChatResponse
	err := c.client.Chat(ctx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat (%s): %w", mdl, err)
	}

	if resp.Message.Content == "" {
		return "", fmt.Errorf("ollama chat (%s): empty response", mdl)
	}

	return resp.Message.Content, nil
}

// IsConfigured returns true if the client has valid configuration.
func (c *OllamaClient) IsConfigured() bool {
	return c.configured
}
