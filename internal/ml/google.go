package ml

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

const defaultGoogleModel = "gemini-1.5-pro"

// GoogleConfig holds configuration for the Google model
type GoogleConfig struct {
	BaseConfig
	ProjectID       string  `json:"project_id"`
	Location        string  `json:"location"`
	CredentialsFile string  `json:"credentials_file"`
	ModelName       string  `json:"model_name"`
	Temperature     float32 `json:"temperature"`
}

// Load loads the Google configuration
func (c *GoogleConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "google", c); err != nil {
		return err
	}

	// Fall back to environment variables if not set
	c.ProjectID = envOr(c.ProjectID, "GOOGLE_PROJECT_ID")
	c.Location = envOr(c.Location, "GOOGLE_LOCATION")
	c.CredentialsFile = envOr(c.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	c.ModelName = envOr(c.ModelName, "GOOGLE_MODEL")
	if c.ModelName == "" {
		c.ModelName = defaultGoogleModel
	}
	if c.Location == "" {
		c.Location = "us-central1"
	}
	if c.ProjectID == "" {
		return fmt.Errorf("google project id is not set")
	}
	return nil
}

// chatSession is the part of *genai.ChatSession the tool loop needs
type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GoogleModel implements the Model interface for Google's Vertex AI
type GoogleModel struct {
	config GoogleConfig
	client *genai.Client

	// newSession opens a chat for one request; replaced in tests
	newSession func(req Request) chatSession
}

// GoogleModelFactory implements ModelFactory for Google models
type GoogleModelFactory struct {
	config GoogleConfig
}

// NewGoogleModelFactory creates a new Google model factory
func NewGoogleModelFactory(config GoogleConfig) *GoogleModelFactory {
	return &GoogleModelFactory{config: config}
}

// CreateModel creates a new Google model instance
func (f *GoogleModelFactory) CreateModel() (Model, error) {
	return &GoogleModel{
		config: f.config,
	}, nil
}

// Load initializes the Google model
func (m *GoogleModel) Load(ctx context.Context) error {
	opts := []option.ClientOption{}

	if m.config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(m.config.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, m.config.ProjectID, m.config.Location, opts...)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	m.client = client
	m.newSession = m.startChat
	return nil
}

// Close releases the underlying client
func (m *GoogleModel) Close() error {
	if m.client == nil {
		return nil
	}
	return m.client.Close()
}

func (m *GoogleModel) startChat(req Request) chatSession {
	gm := m.client.GenerativeModel(m.config.ModelName)
	if m.config.Temperature > 0 {
		gm.SetTemperature(m.config.Temperature)
	}
	if req.System != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if len(req.Tools) > 0 {
		gm.Tools = []*genai.Tool{{FunctionDeclarations: functionDeclarations(req.Tools)}}
	}
	return gm.StartChat()
}

func functionDeclarations(tools []Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					t.ParamName: {
						Type:        genai.TypeString,
						Description: t.ParamDescription,
					},
				},
				Required: []string{t.ParamName},
			},
		})
	}
	return decls
}

// Generate sends the prompt and answers function calls until the model
// returns text
func (m *GoogleModel) Generate(ctx context.Context, req Request) (string, error) {
	if m.newSession == nil {
		return "", fmt.Errorf("model not loaded")
	}
	return runChat(ctx, m.newSession(req), req)
}

func runChat(ctx context.Context, session chatSession, req Request) (string, error) {
	parts := []genai.Part{genai.Text(req.Prompt)}

	for round := 0; ; round++ {
		resp, err := session.SendMessage(ctx, parts...)
		if err != nil {
			return "", fmt.Errorf("failed to call ai: %w", err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", fmt.Errorf("no response generated")
		}

		var text strings.Builder
		var calls []genai.FunctionCall
		for _, p := range resp.Candidates[0].Content.Parts {
			switch v := p.(type) {
			case genai.Text:
				text.WriteString(string(v))
			case genai.FunctionCall:
				calls = append(calls, v)
			}
		}

		if len(calls) == 0 {
			if text.Len() == 0 {
				return "", fmt.Errorf("no content in response")
			}
			return text.String(), nil
		}
		if round >= req.maxRounds() {
			return "", ErrTooManyToolRounds
		}

		parts = make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			arg := callArg(req, call)
			log.Printf("Model requested tool %s(%q)", call.Name, arg)
			out := req.invoke(ctx, call.Name, arg)

			t, _ := req.tool(call.Name)
			parts = append(parts, genai.FunctionResponse{
				Name:     call.Name,
				Response: map[string]any{t.resultName(): out},
			})
		}
	}
}

func callArg(req Request, call genai.FunctionCall) string {
	t, ok := req.tool(call.Name)
	if !ok {
		return ""
	}
	switch v := call.Args[t.ParamName].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
