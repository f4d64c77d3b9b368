package gemini

import (
	"fmt"
	"strings"

	"github.com/spigell/interviewer/internal/ai"
)

// Kind classifies why a generation produced no usable text.
type Kind int

const (
	KindInit Kind = iota
	KindBlocked
	KindStopped
	KindEmpty
	KindTransport
)

// GenerationError is the Go form of the "Error:" sentinel text.
type GenerationError struct {
	Kind     Kind
	Model    string
	Reason   string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	switch e.Kind {
	case KindInit:
		return fmt.Sprintf("%s LLM Initialization Failed - %v", ai.ErrorPrefix, e.Err)
	case KindBlocked:
		return fmt.Sprintf("%s Response blocked due to safety settings (Reason: %s).", ai.ErrorPrefix, e.Reason)
	case KindStopped:
		return fmt.Sprintf("%s Response generation stopped (Reason: %s).", ai.ErrorPrefix, e.Reason)
	case KindEmpty:
		return fmt.Sprintf("%s Response generation finished without content (Reason: %s).", ai.ErrorPrefix, e.Reason)
	}

	detail := ""
	if e.Err != nil {
		detail = e.Err.Error()
	}
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(detail, "API key not valid"):
		return ai.ErrorPrefix + " Invalid Google API Key. Please check your configuration."
	case strings.Contains(lower, "quota"):
		return fmt.Sprintf("%s API quota exceeded for model %s.", ai.ErrorPrefix, e.Model)
	case strings.Contains(lower, "resource_exhausted"):
		return fmt.Sprintf("%s Resource exhausted for model %s. The service might be temporarily overloaded.", ai.ErrorPrefix, e.Model)
	}
	return fmt.Sprintf("%s Failed to query LLM %s after %d attempts. Last error: %s", ai.ErrorPrefix, e.Model, e.Attempts, detail)
}

func (e *GenerationError) Unwrap() error { return e.Err }
