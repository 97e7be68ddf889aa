package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avoronov/jobsift/internal/textgen"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "gemma3:4b"
	generatePath   = "/api/generate"
	contentType    = "application/json"
)

// Client talks to a local Ollama server. It sends a single synchronous
// generate request per prompt and leaves retries to the caller.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string

	model  string
	logger *zap.Logger
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func New(baseURL, model string, logger *zap.Logger) *Client {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			// Local models can be slow, especially on the first request.
			Timeout: 5 * time.Minute,
		},
		model:  model,
		logger: logger,
	}
}

// Generate sends the prompt to the configured model and returns the raw text
// output. Any non-success status or transport failure is a BackendError.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt must not be empty")
	}

	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate request: %w", err)
	}

	url := c.BaseURL + generatePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("make request", zap.String("url", url), zap.String("model", c.model))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &textgen.BackendError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &textgen.BackendError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &textgen.BackendError{
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(body)),
		}
	}

	var decoded generateResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &textgen.BackendError{Err: fmt.Errorf("decode generate response: %w", err)}
	}

	output := strings.TrimSpace(decoded.Response)
	if output == "" {
		return "", &textgen.BackendError{Message: "ollama returned empty response"}
	}

	return output, nil
}

func (c *Client) Model() string { return c.model }
