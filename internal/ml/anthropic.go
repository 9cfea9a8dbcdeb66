package ml

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// AnthropicConfig holds configuration for the Anthropic model
type AnthropicConfig struct {
	BaseConfig
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
	// BaseURL overrides the API endpoint; empty uses the SDK default
	BaseURL   string `json:"base_url"`
	MaxTokens int64  `json:"max_tokens"`
}

// Load loads the Anthropic configuration
func (c *AnthropicConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "anthropic", c); err != nil {
		return err
	}

	c.APIKey = envOr(c.APIKey, "ANTHROPIC_API_KEY")
	c.Model = envOr(c.Model, "ANTHROPIC_MODEL")
	c.BaseURL = envOr(c.BaseURL, "ANTHROPIC_BASE_URL")
	if c.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}
	if c.Model == "" {
		c.Model = defaultAnthropicModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	return nil
}

// AnthropicModel implements the Model interface over the Messages API
type AnthropicModel struct {
	config AnthropicConfig
	client *anthropic.Client
}

// AnthropicModelFactory implements ModelFactory for Anthropic models
type AnthropicModelFactory struct {
	config AnthropicConfig
}

// NewAnthropicModelFactory creates a new Anthropic model factory
func NewAnthropicModelFactory(config AnthropicConfig) *AnthropicModelFactory {
	return &AnthropicModelFactory{config: config}
}

// CreateModel creates a new Anthropic model instance
func (f *AnthropicModelFactory) CreateModel() (Model, error) {
	return &AnthropicModel{config: f.config}, nil
}

// Load creates the API client. Failed calls are not retried.
func (m *AnthropicModel) Load(ctx context.Context) error {
	opts := []option.RequestOption{
		option.WithAPIKey(m.config.APIKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(120 * time.Second),
	}
	if m.config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(m.config.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	m.client = &client
	return nil
}

func anthropicTools(tools []Tool) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]any{
						t.ParamName: map[string]any{
							"type":        "string",
							"description": t.ParamDescription,
						},
					},
					Required: []string{t.ParamName},
				},
			},
		})
	}
	return out
}

// Generate runs the conversation, answering tool_use blocks until the model
// stops for another reason
func (m *AnthropicModel) Generate(ctx context.Context, req Request) (string, error) {
	if m.client == nil {
		return "", fmt.Errorf("model not loaded")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.config.Model),
		MaxTokens: m.config.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Tools: anthropicTools(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	for round := 0; ; round++ {
		msg, err := m.client.Messages.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("api call: %w", err)
		}

		var text strings.Builder
		var results []anthropic.ContentBlockParamUnion
		for _, block := range msg.Content {
			switch b := block.AsAny().(type) {
			case anthropic.TextBlock:
				text.WriteString(b.Text)
			case anthropic.ToolUseBlock:
				arg := toolInput(req, b.Name, b.JSON.Input.Raw())
				log.Printf("Model requested tool %s(%q)", b.Name, arg)
				results = append(results, anthropic.NewToolResultBlock(b.ID, req.invoke(ctx, b.Name, arg), false))
			}
		}

		if msg.StopReason != anthropic.StopReasonToolUse {
			if text.Len() == 0 {
				return "", fmt.Errorf("empty response")
			}
			return text.String(), nil
		}
		if round >= req.maxRounds() {
			return "", ErrTooManyToolRounds
		}

		params.Messages = append(params.Messages, msg.ToParam(), anthropic.NewUserMessage(results...))
	}
}

// toolInput extracts the tool's single string parameter from raw JSON input
func toolInput(req Request, name, raw string) string {
	t, ok := req.tool(name)
	if !ok {
		return ""
	}
	var input map[string]any
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return ""
	}
	if v, ok := input[t.ParamName].(string); ok {
		return v
	}
	return ""
}
