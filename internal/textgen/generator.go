package textgen

import (
	"context"
	"fmt"
)

// Generator produces raw model text for a prompt. Implementations talk to a
// single configured backend and do not retry on their own.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// BackendError reports a failed call to a text-generation backend. Status is
// the HTTP status code when the backend responded, zero for transport
// failures.
type BackendError struct {
	Status  int
	Message string
	Err     error
}

func (e *BackendError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("backend call failed: %v", e.Err)
	case e.Status != 0:
		return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("backend call failed: %s", e.Message)
	}
}

func (e *BackendError) Unwrap() error { return e.Err }
