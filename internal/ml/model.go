package ml

import (
	"context"
	"errors"
	"fmt"
)

// DefaultMaxToolRounds bounds the number of tool-call round trips in a
// single Generate call when Request.MaxToolRounds is zero.
const DefaultMaxToolRounds = 8

// ErrTooManyToolRounds is returned when the model keeps requesting tool
// calls past the configured limit.
var ErrTooManyToolRounds = errors.New("model exceeded tool call limit")

// Tool is a named callback the model may invoke while it reasons. It takes
// a single string parameter and returns free text.
type Tool struct {
	Name             string
	Description      string
	ParamName        string
	ParamDescription string
	ResultName       string
	Invoke           func(ctx context.Context, arg string) (string, error)
}

// Request is one generation call
type Request struct {
	System        string
	Prompt        string
	Tools         []Tool
	MaxToolRounds int
}

func (r Request) maxRounds() int {
	if r.MaxToolRounds > 0 {
		return r.MaxToolRounds
	}
	return DefaultMaxToolRounds
}

func (r Request) tool(name string) (Tool, bool) {
	for _, t := range r.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// invoke runs the named tool. Unknown tools and tool failures are reported
// back to the model as text rather than aborting the request.
func (r Request) invoke(ctx context.Context, name, arg string) string {
	t, ok := r.tool(name)
	if !ok {
		return fmt.Sprintf("unknown tool %q", name)
	}
	out, err := t.Invoke(ctx, arg)
	if err != nil {
		return fmt.Sprintf("tool %s failed: %v", name, err)
	}
	return out
}

func (t Tool) resultName() string {
	if t.ResultName != "" {
		return t.ResultName
	}
	return "result"
}

// Model represents a generative model that answers a text prompt, running
// any tool calls it makes along the way
type Model interface {
	// Load initializes the model with its configuration
	Load(ctx context.Context) error
	// Generate runs the prompt to completion and returns the final text
	Generate(ctx context.Context, req Request) (string, error)
}

// ModelFactory creates a new model instance based on configuration
type ModelFactory interface {
	// CreateModel creates a new model instance
	CreateModel() (Model, error)
}

// NewModel creates a new model instance based on the model type.
// configPath may be empty to use config/<type>.json or the environment.
func NewModel(modelType, configPath string) (Model, error) {
	var factory ModelFactory

	switch modelType {
	case "google":
		config := GoogleConfig{
			BaseConfig: BaseConfig{
				ConfigPath: configPath,
			},
		}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Google config: %w", err)
		}
		factory = NewGoogleModelFactory(config)
	case "anthropic":
		config := AnthropicConfig{
			BaseConfig: BaseConfig{
				ConfigPath: configPath,
			},
		}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Anthropic config: %w", err)
		}
		factory = NewAnthropicModelFactory(config)
	default:
		return nil, fmt.Errorf("unsupported model type: %s", modelType)
	}
	return factory.CreateModel()
}
