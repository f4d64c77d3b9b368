package interview

import (
	"context"

	"github.com/spigell/interviewer/internal/confidence"
	"github.com/spigell/interviewer/internal/knowledge"
)

// ConfidenceAnalyzer scores the candidate's vocal confidence. Implementations
// report failures inside the result instead of returning an error.
type ConfidenceAnalyzer interface {
	Analyze(ctx context.Context, audioPath string) confidence.Result
}

// Player speaks interviewer utterances. Errors are logged and otherwise ignored.
type Player interface {
	Send(ctx context.Context, text string) error
}

// Retriever looks up reference snippets for question planning.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, threshold float64) ([]knowledge.Document, error)
}
