package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/avoronov/jobsift/internal/textgen"

	"go.uber.org/zap"
)

func TestGenerateReturnsModelOutput(t *testing.T) {
	var gotModel, gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotModel = req.Model
		gotPrompt = req.Prompt
		if req.Stream {
			t.Fatalf("expected stream to be disabled")
		}

		json.NewEncoder(w).Encode(map[string]string{"response": "  {\"verdict\":\"yes\"} \n"})
	}))
	defer server.Close()

	client := New(server.URL, "test-model", zap.NewNop())

	output, err := client.Generate(context.Background(), "evaluate this")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != `{"verdict":"yes"}` {
		t.Fatalf("expected trimmed response, got %q", output)
	}

	if gotModel != "test-model" || gotPrompt != "evaluate this" {
		t.Fatalf("unexpected request payload: model=%q prompt=%q", gotModel, gotPrompt)
	}
}

func TestGenerateNonSuccessStatusIsBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := New(server.URL, "missing", zap.NewNop())

	_, err := client.Generate(context.Background(), "prompt")

	var be *textgen.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}

	if be.Status != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", be.Status)
	}

	if be.Message != "model not found" {
		t.Fatalf("expected body in error message, got %q", be.Message)
	}
}

func TestGenerateTransportFailureIsBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := New(server.URL, "", zap.NewNop())

	_, err := client.Generate(context.Background(), "prompt")

	var be *textgen.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected BackendError, got %v", err)
	}

	if be.Status != 0 {
		t.Fatalf("expected no status for transport failure, got %d", be.Status)
	}
}

func TestNewDefaults(t *testing.T) {
	client := New("", "", zap.NewNop())

	if client.BaseURL != defaultBaseURL {
		t.Fatalf("unexpected base url: %s", client.BaseURL)
	}

	if client.Model() != defaultModel {
		t.Fatalf("unexpected model: %s", client.Model())
	}
}
