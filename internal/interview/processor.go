package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/confidence"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/utils"
)

const (
	unknownQuestion = "Unknown Question (Context Mismatch)"
	noSpeechReason  = "No speech detected"
)

var errNoTranscriber = errors.New("speech-to-text is not configured")

// IngestResult describes the record appended for one candidate answer.
type IngestResult struct {
	Turn QnaTurn
}

// Ingest transcribes the candidate's recorded answer, scores its confidence
// and records it against the question that was asked. Collaborator failures
// degrade the record instead of failing the call.
func (e *Engine) Ingest(ctx context.Context, s *Session, audioPath string) (IngestResult, error) {
	if s.state != StateAwaitingResponse {
		return IngestResult{}, preconditionError("ingest response", s.state)
	}

	qctx, matched := s.LastQuestionContext()
	turn := s.currentTurn
	if matched {
		turn = qctx.TurnNumber
	}
	log := e.sessionLogger(s).With(logger.Turn(turn))

	if err := s.transition(StateInProgress); err != nil {
		return IngestResult{}, err
	}
	log.Info("processing candidate response", zap.String("audio", audioPath))

	record := QnaTurn{TurnNumber: turn}
	record.Response, record.STTSucceeded, record.STTError = e.transcribe(ctx, audioPath, log)
	s.history = append(s.history, Entry{Speaker: e.cfg.CandidateName, Text: record.Response})

	result := e.analyzeConfidence(ctx, audioPath, record, log)
	record.ConfidenceScore = result.Score
	record.ConfidenceRating = result.Rating
	record.PrimaryEmotion = result.PrimaryEmotion
	record.ConfidenceError = result.Error
	record.ConfidenceMessage = result.Message

	if matched {
		record.Question = qctx.Question
		record.PreparedIndex = qctx.PreparedIndex
		record.IsPrepared = qctx.PreparedIndex != nil
		record.DetectionMethod = qctx.DetectionMethod
	} else {
		log.Warn("no question context for response, falling back to last interviewer message")
		record.Question = e.lastInterviewerMessage(s)
		record.DetectionMethod = methodFallback
	}

	s.qna = append(s.qna, record)
	s.currentTurn = turn
	s.lastContext = nil
	if err := s.transition(StateAsking); err != nil {
		return IngestResult{}, err
	}

	log.Info("candidate response recorded",
		zap.Bool("stt_succeeded", record.STTSucceeded),
		zap.Bool("prepared", record.IsPrepared),
	)
	return IngestResult{Turn: record}, nil
}

// transcribe returns the response text to record and the STT outcome.
func (e *Engine) transcribe(ctx context.Context, audioPath string, log *zap.Logger) (string, bool, string) {
	if e.deps.Transcriber == nil {
		return fmt.Sprintf("[STT Error: %v]", errNoTranscriber), false, errNoTranscriber.Error()
	}

	text, err := e.deps.Transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		log.Error("speech-to-text failed", zap.Error(err))
		return fmt.Sprintf("[STT Error: %v]", err), false, err.Error()
	}

	text = strings.TrimSpace(text)
	if text == "" || text == ai.NoSpeechTranscript {
		log.Warn("no speech detected in response")
		return ai.NoSpeechTranscript, true, ""
	}

	log.Info("response transcribed", zap.String("transcript", utils.TruncateForLog(text, 100)))
	return text, true, ""
}

func (e *Engine) analyzeConfidence(ctx context.Context, audioPath string, record QnaTurn, log *zap.Logger) confidence.Result {
	result := confidence.NotPerformed()

	switch {
	case !record.STTSucceeded:
		result.Message = "Skipped due to STT Error: " + record.STTError
	case record.Response == ai.NoSpeechTranscript:
		result.Message = "Skipped (No speech detected)"
		result.Error = false
	case e.deps.Confidence == nil:
		log.Debug("confidence analysis is not configured")
	default:
		result = e.deps.Confidence.Analyze(ctx, audioPath)
		if result.Error {
			log.Warn("confidence analysis failed", zap.String("message", result.Message))
		}
	}

	return result
}

func (e *Engine) lastInterviewerMessage(s *Session) string {
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Speaker == e.cfg.InterviewerName {
			return s.history[i].Text
		}
	}
	return unknownQuestion
}
