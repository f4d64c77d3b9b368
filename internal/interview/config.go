package interview

import (
	"time"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/knowledge"
	"github.com/spigell/interviewer/internal/textanalysis"
)

const (
	DefaultNumQuestions    = 6
	DefaultCandidateName   = "Candidate"
	DefaultInterviewerName = "Alexi"
	DefaultCompanyName     = "SecureData Financial Corp."

	DefaultInterviewerModel = "gemini-1.5-flash-latest"
	DefaultEvaluatorModel   = "gemini-1.5-pro-latest"

	DefaultMaxContextLength = 10000
	DefaultSearchQueries    = 3
	DefaultHistoryTurns     = 6
	DefaultHistoryEntryLen  = 200
	DefaultEvaluationDelay  = 500 * time.Millisecond
)

// Config holds the knobs of one interview engine. Zero values fall back to
// the defaults above.
type Config struct {
	NumQuestions    int    `mapstructure:"num-questions"`
	CandidateName   string `mapstructure:"candidate-name"`
	InterviewerName string `mapstructure:"interviewer-name"`
	CompanyName     string `mapstructure:"company-name"`

	Interviewer ai.GenerationParams `mapstructure:"interviewer"`
	Evaluator   ai.GenerationParams `mapstructure:"evaluator"`

	MaxSummaryLength        int `mapstructure:"max-summary-length"`
	MaxProjectSummaryLength int `mapstructure:"max-project-summary-length"`
	MaxContextLength        int `mapstructure:"max-context-length"`

	// RetrievalTopK of zero disables retrieval.
	RetrievalTopK      int     `mapstructure:"retrieval-top-k"`
	RetrievalThreshold float64 `mapstructure:"retrieval-threshold"`
	SearchQueries      int     `mapstructure:"search-queries"`

	HistoryTurns    int `mapstructure:"history-turns"`
	HistoryEntryLen int `mapstructure:"history-entry-length"`

	// EvaluationDelay pauses between evaluation calls to stay under rate limits.
	// A negative value disables the pause.
	EvaluationDelay time.Duration `mapstructure:"evaluation-delay"`
}

func DefaultConfig() Config {
	return Config{
		NumQuestions:    DefaultNumQuestions,
		CandidateName:   DefaultCandidateName,
		InterviewerName: DefaultInterviewerName,
		CompanyName:     DefaultCompanyName,
		Interviewer: ai.GenerationParams{
			Model:       DefaultInterviewerModel,
			MaxTokens:   500,
			Temperature: 0.65,
		},
		Evaluator: ai.GenerationParams{
			Model:       DefaultEvaluatorModel,
			MaxTokens:   700,
			Temperature: 0.5,
		},
		MaxSummaryLength:        textanalysis.DefaultMaxSummaryLength,
		MaxProjectSummaryLength: textanalysis.DefaultMaxProjectSummaryLength,
		MaxContextLength:        DefaultMaxContextLength,
		RetrievalTopK:           knowledge.DefaultTopK,
		RetrievalThreshold:      knowledge.DefaultThreshold,
		SearchQueries:           DefaultSearchQueries,
		HistoryTurns:            DefaultHistoryTurns,
		HistoryEntryLen:         DefaultHistoryEntryLen,
		EvaluationDelay:         DefaultEvaluationDelay,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NumQuestions <= 0 {
		c.NumQuestions = d.NumQuestions
	}
	if c.CandidateName == "" {
		c.CandidateName = d.CandidateName
	}
	if c.InterviewerName == "" {
		c.InterviewerName = d.InterviewerName
	}
	if c.CompanyName == "" {
		c.CompanyName = d.CompanyName
	}
	if c.Interviewer.Model == "" {
		c.Interviewer.Model = d.Interviewer.Model
	}
	if c.Interviewer.MaxTokens <= 0 {
		c.Interviewer.MaxTokens = d.Interviewer.MaxTokens
	}
	if c.Evaluator.Model == "" {
		c.Evaluator.Model = d.Evaluator.Model
	}
	if c.Evaluator.MaxTokens <= 0 {
		c.Evaluator.MaxTokens = d.Evaluator.MaxTokens
	}
	if c.MaxSummaryLength <= 0 {
		c.MaxSummaryLength = d.MaxSummaryLength
	}
	if c.MaxProjectSummaryLength <= 0 {
		c.MaxProjectSummaryLength = d.MaxProjectSummaryLength
	}
	if c.MaxContextLength <= 0 {
		c.MaxContextLength = d.MaxContextLength
	}
	if c.SearchQueries <= 0 {
		c.SearchQueries = d.SearchQueries
	}
	if c.HistoryTurns <= 0 {
		c.HistoryTurns = d.HistoryTurns
	}
	if c.HistoryEntryLen <= 0 {
		c.HistoryEntryLen = d.HistoryEntryLen
	}
	if c.EvaluationDelay == 0 {
		c.EvaluationDelay = d.EvaluationDelay
	}
	return c
}
