package ai

import (
	"context"
	"strings"
	"time"
)

// ErrorPrefix marks generator output that carries no usable text.
const ErrorPrefix = "Error:"

// NoSpeechTranscript is returned by a Transcriber when the audio is valid but
// contains no recognizable speech. It is not an error.
const NoSpeechTranscript = "[Audio detected - No speech recognized]"

// GenerationParams configures one generation call.
type GenerationParams struct {
	Model       string  `mapstructure:"model"`
	MaxTokens   int32   `mapstructure:"max-tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Transcriber turns a recorded audio file into text. It returns exactly one of:
// (transcript, nil), (NoSpeechTranscript, nil) or ("", err).
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// IsErrorText reports whether generator output is an error sentinel.
func IsErrorText(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), ErrorPrefix)
}

// RetryPolicy bounds how often a failed generation is re-attempted.
// Retries counts additional attempts after the first one.
type RetryPolicy struct {
	Retries int
	Delay   time.Duration
}

// DefaultRetryPolicy is two retries five seconds apart.
var DefaultRetryPolicy = RetryPolicy{Retries: 2, Delay: 5 * time.Second}

// Attempts returns the total number of calls the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}
	return p.Retries + 1
}
