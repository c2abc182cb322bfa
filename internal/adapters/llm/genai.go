// Package llm implements the language-model capability on Google's Gemini
// API. Completion failures are surfaced to the caller; token counting is
// total and degrades to 0.
package llm

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/kiln-ai/kiln/internal/core"
	"github.com/kiln-ai/kiln/internal/logging"
)

// APIKeyEnv is the credential environment variable. Absence is a startup
// failure, reported before any cycle runs.
const APIKeyEnv = "GEMINI_API_KEY"

// Compile-time interface conformance checks.
var (
	_ core.Completer    = (*GenAIClient)(nil)
	_ core.TokenCounter = (*GenAIClient)(nil)
)

// GenAIClient talks to the Gemini API.
type GenAIClient struct {
	client *genai.Client
	model  string
	logger *logging.Logger
}

// NewGenAIClient creates a client using the GEMINI_API_KEY credential.
func NewGenAIClient(ctx context.Context, model string, logger *logging.Logger) (*GenAIClient, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	apiKey := os.Getenv(APIKeyEnv)
	if apiKey == "" {
		return nil, core.ErrConfig("MISSING_API_KEY",
			fmt.Sprintf("%s is not set; export your Gemini API key before starting", APIKeyEnv))
	}

	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, core.ErrConfig("CLIENT_INIT", "failed to create Gemini client").WithCause(err)
	}

	return &GenAIClient{client: client, model: model, logger: logger}, nil
}

// Complete sends a conversation and returns the reply text (implements
// core.Completer).
func (c *GenAIClient) Complete(ctx context.Context, req core.CompletionRequest) (string, error) {
	contents := toContents(req.Messages)

	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", core.ErrPlan("COMPLETION_FAILED", "model call failed").WithCause(err)
	}

	text := result.Text()
	if text == "" {
		return "", core.ErrPlan("EMPTY_COMPLETION", "model returned no text")
	}
	return text, nil
}

// CountTokens measures text with the provider tokenizer (implements
// core.TokenCounter). Any error yields 0.
func (c *GenAIClient) CountTokens(ctx context.Context, text string) int {
	if text == "" {
		return 0
	}

	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
	result, err := c.client.Models.CountTokens(ctx, c.model, contents, nil)
	if err != nil {
		c.logger.Warn("token count failed", "error", err)
		return 0
	}
	return int(result.TotalTokens)
}

func toContents(messages []core.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		var role genai.Role = genai.RoleUser
		if m.Role == "model" || m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	return contents
}
