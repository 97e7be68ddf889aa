package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avoronov/jobsift/internal/textgen"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Client wraps the Google GenAI client behind the textgen.Generator
// interface, for running evaluations against a hosted model instead of a
// local one.
type Client struct {
	client    *genai.Client
	modelName string
	logger    *zap.Logger
}

func New(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{client: client, modelName: model, logger: logger}, nil
}

// Generate sends the prompt to Gemini and returns the concatenated textual
// candidates. API failures and empty responses are BackendErrors so the
// retry layer treats them the same as local backend failures.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	c.logger.Debug("make request", zap.String("model", c.modelName))

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", &textgen.BackendError{Err: fmt.Errorf("generate content: %w", err)}
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", &textgen.BackendError{Message: "gemini api returned empty response"}
	}

	return output, nil
}

func (c *Client) Model() string { return c.modelName }
