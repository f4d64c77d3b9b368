package interview

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/knowledge"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/textanalysis"
)

const (
	noRetrievalText     = "No knowledge-base context available."
	noDocumentsText     = "No relevant context found in the knowledge base."
	contextHeader       = "--- Relevant Context from Knowledge Base ---\n\n"
	extraQuestionHints  = "Ensure questions are distinct and progressively probe deeper if appropriate."
	minGenerationTokens = 1500
)

// Planner turns a résumé and job description into the prepared questions.
type Planner struct {
	cfg       Config
	generator ai.TextGenerator
	retriever Retriever
	logger    *zap.Logger
}

func NewPlanner(cfg Config, generator ai.TextGenerator, retriever Retriever, log *zap.Logger) *Planner {
	return &Planner{
		cfg:       cfg.withDefaults(),
		generator: generator,
		retriever: retriever,
		logger:    logger.Component(log, "planner"),
	}
}

// Plan returns NumQuestions+1 prepared questions together with the text
// analysis they were built from. Every failure is an *InitializationError.
func (p *Planner) Plan(ctx context.Context, resume, jobDescription string) (*Plan, error) {
	if p.generator == nil {
		return nil, &InitializationError{Reason: "no text generator configured"}
	}

	plan := &Plan{
		RoleTitle:      textanalysis.RoleTitle(jobDescription),
		ResumeSummary:  textanalysis.Summarize(resume, p.cfg.MaxSummaryLength),
		JDSummary:      textanalysis.Summarize(jobDescription, p.cfg.MaxSummaryLength),
		ProjectDetails: textanalysis.ExtractProjectDetails(resume, p.cfg.MaxProjectSummaryLength),
		FocusTopics:    textanalysis.FocusTopics(resume, jobDescription, textanalysis.DefaultFocusTopics),
	}
	p.logger.Info("analyzed interview inputs",
		zap.String("role_title", plan.RoleTitle),
		zap.Strings("focus_topics", plan.FocusTopics),
		zap.Int("project_details_length", utf8.RuneCountInString(plan.ProjectDetails)),
	)

	plan.RetrievedContext = p.retrieveContext(ctx, plan)

	n := p.cfg.NumQuestions
	guidance := guidanceFor(plan.RoleTitle)
	focus := strings.Join(plan.FocusTopics, ", ")
	if focus == "" {
		focus = "General skills for " + plan.RoleTitle
	}

	prompt, err := renderPrompt("question_generation.tmpl", questionPromptData{
		RoleTitle:              plan.RoleTitle,
		ResumeSummary:          orDefault(plan.ResumeSummary, "Not provided."),
		ProjectDetails:         orDefault(plan.ProjectDetails, "No specific project details extracted."),
		JDSummary:              orDefault(plan.JDSummary, "Not provided."),
		FocusTopics:            focus,
		RetrievedContext:       plan.RetrievedContext,
		NumQuestions:           n,
		TotalQuestions:         n + 1,
		RoleGuidance:           guidance.Role,
		CodingGuidance:         guidance.Coding,
		ProblemSolvingGuidance: guidance.Solving,
		ExtraHints:             extraQuestionHints,
		Slots:                  questionSlots(guidance.Tags, n),
	})
	if err != nil {
		return nil, &InitializationError{Reason: "build question prompt", Err: err}
	}

	params := p.cfg.Interviewer
	params.MaxTokens = max(params.MaxTokens*2, minGenerationTokens)

	p.logger.Info("generating prepared questions",
		zap.Int("questions", n+1),
		zap.String(logger.FieldModel, params.Model),
	)
	raw, err := p.generator.Generate(ctx, prompt, params)
	if err != nil {
		return nil, &InitializationError{Reason: "generate questions", Err: err}
	}
	if ai.IsErrorText(raw) {
		return nil, &InitializationError{Reason: "generate questions", Err: errors.New(strings.TrimSpace(raw))}
	}

	questions := ParseQuestions(CleanModelOutput(raw, false))
	if len(questions) < n {
		return nil, &InitializationError{
			Reason: fmt.Sprintf("parsed %d questions, expected at least %d", len(questions), n),
		}
	}
	if len(questions) == n {
		p.logger.Warn("model returned no project question, using the default one")
		questions = append(questions, fallbackDeepDiveQuestion)
	}
	plan.Questions = questions[:n+1]

	p.logger.Info("prepared questions ready", zap.Int("questions", len(plan.Questions)))
	return plan, nil
}

func (p *Planner) retrieveContext(ctx context.Context, plan *Plan) string {
	if p.retriever == nil || p.cfg.RetrievalTopK <= 0 {
		return noRetrievalText
	}

	queries := textanalysis.SearchQueries(plan.RoleTitle, plan.ResumeSummary, plan.JDSummary, p.cfg.SearchQueries)
	byContent := make(map[string]knowledge.Document)
	for _, query := range queries {
		docs, err := p.retriever.Retrieve(ctx, query, p.cfg.RetrievalTopK, p.cfg.RetrievalThreshold)
		if err != nil {
			p.logger.Warn("knowledge retrieval failed", zap.String("query", query), zap.Error(err))
			continue
		}
		for _, doc := range docs {
			if existing, ok := byContent[doc.Content]; !ok || doc.Score > existing.Score {
				byContent[doc.Content] = doc
			}
		}
	}

	if len(byContent) == 0 {
		p.logger.Info("no knowledge documents matched", zap.Int("queries", len(queries)))
		return noDocumentsText
	}

	docs := make([]knowledge.Document, 0, len(byContent))
	for _, doc := range byContent {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score == docs[j].Score {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].Score > docs[j].Score
	})

	return formatContext(docs, p.cfg.MaxContextLength)
}

// formatContext concatenates documents best-first and stops at the first one
// that would exceed limit characters.
func formatContext(docs []knowledge.Document, limit int) string {
	var b strings.Builder
	b.WriteString(contextHeader)
	length := utf8.RuneCountInString(contextHeader)

	for _, doc := range docs {
		chunk := fmt.Sprintf("Source ID %d (Similarity: %.2f):\n%s\n\n", doc.ID, doc.Score, doc.Content)
		size := utf8.RuneCountInString(chunk)
		if length+size > limit {
			break
		}
		b.WriteString(chunk)
		length += size
	}
	return strings.TrimSpace(b.String())
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
