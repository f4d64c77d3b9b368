package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/utils"
)

// Evaluate scores every recorded answer once. Calling it again after it
// completed returns the stored summary. If ctx ends mid-way the session stays
// EVALUATING and a later call resumes with the records not yet evaluated.
func (e *Engine) Evaluate(ctx context.Context, s *Session) (EvaluationSummary, error) {
	if s.state != StateFinished && s.state != StateEvaluating {
		return EvaluationSummary{}, preconditionError("evaluate", s.state)
	}

	log := e.sessionLogger(s)
	if s.evaluationComplete {
		log.Info("evaluation already performed")
		return s.evaluation, nil
	}

	if s.state == StateFinished {
		if err := s.transition(StateEvaluating); err != nil {
			return EvaluationSummary{}, err
		}
	}
	log.Info("starting evaluation", zap.Int("records", len(s.qna)))

	calls := 0
	for i := range s.qna {
		record := &s.qna[i]
		if record.Evaluation != nil {
			continue
		}
		turnLog := log.With(logger.Turn(record.TurnNumber))

		if reason, skip := skipReason(record); skip {
			turnLog.Warn("skipping evaluation", zap.String("reason", reason))
			record.Evaluation = ptr(fmt.Sprintf("Evaluation skipped (%s)", reason))
			s.evaluation.Skipped++
			continue
		}

		if calls > 0 && e.cfg.EvaluationDelay > 0 {
			if err := utils.WaitFor(ctx, e.cfg.EvaluationDelay); err != nil {
				return s.evaluation, fmt.Errorf("evaluate turn %d: %w", record.TurnNumber, err)
			}
		}
		calls++

		text, err := e.evaluateRecord(ctx, s, record)
		if err != nil {
			turnLog.Error("evaluation failed", zap.Error(err))
			record.Evaluation = ptr("Evaluation Error: " + err.Error())
			s.evaluation.Failed++
			continue
		}

		record.Evaluation = &text
		record.Score = ParseScore(text)
		record.Justification = ParseJustification(text)
		if record.Score == nil {
			turnLog.Warn("could not parse score", zap.String("evaluation", utils.TruncateForLog(text, 100)))
		}
		s.evaluation.Evaluated++
	}

	s.evaluationComplete = true
	if err := s.transition(StateFinished); err != nil {
		return s.evaluation, err
	}

	log.Info("evaluation complete",
		zap.Int("evaluated", s.evaluation.Evaluated),
		zap.Int("skipped", s.evaluation.Skipped),
		zap.Int("failed", s.evaluation.Failed),
	)
	return s.evaluation, nil
}

func (e *Engine) evaluateRecord(ctx context.Context, s *Session, record *QnaTurn) (string, error) {
	if e.deps.Generator == nil {
		return "", errors.New("no text generator configured")
	}

	prompt, err := renderPrompt("evaluation.tmpl", evaluationPromptData{
		RoleTitle:     s.plan.RoleTitle,
		JDSummary:     s.plan.JDSummary,
		ResumeSummary: s.plan.ResumeSummary,
		Question:      record.Question,
		Response:      record.Response,
	})
	if err != nil {
		return "", err
	}

	raw, err := e.deps.Generator.Generate(ctx, prompt, e.cfg.Evaluator)
	if err != nil {
		return "", err
	}

	text := CleanModelOutput(raw, true)
	switch {
	case text == "":
		return "", errors.New("evaluator returned no text")
	case ai.IsErrorText(text):
		return "", errors.New(strings.TrimSpace(text))
	}
	return text, nil
}

func skipReason(record *QnaTurn) (string, bool) {
	if !record.STTSucceeded {
		if record.STTError != "" {
			return record.STTError, true
		}
		return noSpeechReason, true
	}
	if record.Response == ai.NoSpeechTranscript {
		return noSpeechReason, true
	}
	return "", false
}

func ptr[T any](v T) *T { return &v }
