package interview

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/logger"
	"github.com/spigell/interviewer/internal/utils"
)

const (
	greetingQuestion = "Initial Greeting / Ready Check"
	methodGreeting   = "Greeting"
	methodFollowUp   = "Follow-up or Transition"
	methodFallback   = "Context Mismatch Fallback"

	apologyText = "Apologies, I encountered a temporary issue generating my response. Could you perhaps repeat your last point or should we try the next question?"
)

// Deps are the collaborators an Engine talks to. Only Generator is required.
type Deps struct {
	Generator   ai.TextGenerator
	Transcriber ai.Transcriber
	Confidence  ConfidenceAnalyzer
	Player      Player
	Retriever   Retriever
	Logger      *zap.Logger

	NewID func() string
	Now   func() time.Time
}

// Utterance is what the interviewer says next. Transient marks an apology
// produced after a failed generation; the caller may retry the same step.
type Utterance struct {
	Text      string
	Transient bool
	Finished  bool
}

// Engine drives interview sessions. It holds no per-session state, so one
// Engine serves any number of sessions.
type Engine struct {
	cfg     Config
	deps    Deps
	planner *Planner
	logger  *zap.Logger
}

func NewEngine(cfg Config, deps Deps) *Engine {
	cfg = cfg.withDefaults()
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Engine{
		cfg:     cfg,
		deps:    deps,
		planner: NewPlanner(cfg, deps.Generator, deps.Retriever, deps.Logger),
		logger:  deps.Logger,
	}
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) sessionLogger(s *Session) *zap.Logger {
	return logger.WithSession(e.logger, s.id)
}

// Start creates a session and plans its questions. On failure the session is
// returned in StateError together with an *InitializationError.
func (e *Engine) Start(ctx context.Context, resume, jobDescription string) (*Session, error) {
	s := newSession(e.deps.NewID(), resume, jobDescription, e.deps.Now())
	log := e.sessionLogger(s)
	log.Info("initializing interview session")

	plan, err := e.planner.Plan(ctx, resume, jobDescription)
	if err != nil {
		s.fail(err.Error())
		log.Error("interview initialization failed", zap.Error(err))
		return s, err
	}

	s.plan = *plan
	if err := s.transition(StateReady); err != nil {
		return s, err
	}
	log.Info("interview session ready", zap.Int("prepared_questions", len(s.plan.Questions)))
	return s, nil
}

// Greeting opens the interview and waits for the candidate's ready reply.
func (e *Engine) Greeting(ctx context.Context, s *Session) (Utterance, error) {
	if s.state != StateReady {
		return Utterance{}, preconditionError("greeting", s.state)
	}

	text := fmt.Sprintf("Hello %s. I'm %s, and I'll be conducting your interview today for the %s position at %s. "+
		"We'll go through about %d questions covering technical concepts and your past experience. "+
		"Please respond verbally when prompted. Are you ready to begin?",
		e.cfg.CandidateName, e.cfg.InterviewerName, s.plan.RoleTitle, e.cfg.CompanyName, len(s.plan.Questions))

	if err := s.transition(StateAwaitingResponse); err != nil {
		return Utterance{}, err
	}
	e.appendAI(s, text)
	s.currentTurn = 0
	s.lastContext = &QuestionContext{
		Question:        greetingQuestion,
		DetectionMethod: methodGreeting,
		TurnNumber:      0,
	}
	e.play(ctx, s, text)

	return Utterance{Text: text}, nil
}

// NextTurn produces the interviewer's next utterance. Once the interview is
// finished it keeps returning the last message without side effects.
func (e *Engine) NextTurn(ctx context.Context, s *Session) (Utterance, error) {
	switch s.state {
	case StateFinished, StateEvaluating:
		return Utterance{Text: s.lastAI, Finished: true}, nil
	case StateAsking:
	default:
		return Utterance{}, preconditionError("next turn", s.state)
	}

	log := e.sessionLogger(s)
	turn := s.currentTurn + 1

	if len(s.asked) >= len(s.plan.Questions) && turn > len(s.plan.Questions) {
		return e.finish(ctx, s)
	}

	prompt, err := e.turnPrompt(s, turn)
	if err != nil {
		s.fail(err.Error())
		log.Error("failed to build turn prompt", zap.Error(err))
		return Utterance{}, err
	}

	log.Debug("requesting interviewer turn", logger.Turn(turn))
	raw, err := e.deps.Generator.Generate(ctx, prompt, e.cfg.Interviewer)
	text := CleanModelOutput(raw, false)
	if err != nil || text == "" || ai.IsErrorText(text) {
		log.Error("interviewer generation failed", logger.Turn(turn), zap.Error(err), zap.String("output", utils.TruncateForLog(raw, 120)))
		e.play(ctx, s, apologyText)
		return Utterance{Text: apologyText, Transient: true}, nil
	}

	resolved := &QuestionContext{
		Question:        text,
		DetectionMethod: methodFollowUp,
		TurnNumber:      turn,
	}
	if idx, overlap, ok := MatchPreparedQuestion(text, s.plan.Questions, s.remainingIndices()); ok {
		s.asked[idx] = struct{}{}
		resolved.Question = s.plan.Questions[idx]
		resolved.PreparedIndex = &idx
		resolved.DetectionMethod = fmt.Sprintf("Prepared Q Match (Overlap: %.1f%%)", overlap*100)
		log.Info("prepared question asked", logger.Turn(turn), zap.Int("question", idx+1), zap.Float64("overlap", overlap))
	} else {
		resolved.Question = FollowUpQuestion(text)
		log.Info("follow-up or transition turn", logger.Turn(turn))
	}

	if err := s.transition(StateAwaitingResponse); err != nil {
		return Utterance{}, err
	}
	e.appendAI(s, text)
	s.lastContext = resolved
	e.play(ctx, s, text)

	return Utterance{Text: text}, nil
}

func (e *Engine) finish(ctx context.Context, s *Session) (Utterance, error) {
	log := e.sessionLogger(s)

	if s.lastSpeaker() != e.cfg.InterviewerName {
		text := fmt.Sprintf("Alright, that concludes our planned questions. Thank you very much for your time and for sharing your experience, %s. "+
			"We'll evaluate the session and be in touch regarding the next steps.", e.cfg.CandidateName)
		if err := s.transition(StateFinished); err != nil {
			return Utterance{}, err
		}
		e.appendAI(s, text)
		e.play(ctx, s, text)
		log.Info("all prepared questions asked, interview finished")
		return Utterance{Text: text, Finished: true}, nil
	}

	if err := s.transition(StateFinished); err != nil {
		return Utterance{}, err
	}
	if isClosingRemark(s.lastAI) {
		log.Info("interview finished on existing closing remark")
		return Utterance{Text: s.lastAI, Finished: true}, nil
	}

	text := fmt.Sprintf("Thank you again, %s. That's all the questions I have for now. We will be in touch.", e.cfg.CandidateName)
	e.appendAI(s, text)
	e.play(ctx, s, text)
	log.Info("interview finished with short closing")
	return Utterance{Text: text, Finished: true}, nil
}

func isClosingRemark(text string) bool {
	return strings.Contains(text, "concludes") || strings.Contains(strings.ToLower(text), "thank you")
}

func (e *Engine) appendAI(s *Session, text string) {
	s.history = append(s.history, Entry{Speaker: e.cfg.InterviewerName, Text: text})
	s.lastAI = text
}

func (e *Engine) play(ctx context.Context, s *Session, text string) {
	if e.deps.Player == nil {
		return
	}
	if err := e.deps.Player.Send(ctx, text); err != nil {
		e.sessionLogger(s).Warn("failed to send text to player", zap.Error(err))
	}
}

func (e *Engine) turnPrompt(s *Session, turn int) (string, error) {
	numbered := make([]string, len(s.plan.Questions))
	for i, q := range s.plan.Questions {
		numbered[i] = fmt.Sprintf("%d. %s", i+1, q)
	}

	return renderPrompt("conversation_turn.tmpl", turnPromptData{
		InterviewerName:    e.cfg.InterviewerName,
		CompanyName:        e.cfg.CompanyName,
		RoleTitle:          s.plan.RoleTitle,
		CandidateName:      e.cfg.CandidateName,
		ResumeSummary:      s.plan.ResumeSummary,
		ProjectDetails:     s.plan.ProjectDetails,
		JDSummary:          s.plan.JDSummary,
		FocusTopics:        strings.Join(s.plan.FocusTopics, ", "),
		PreparedQuestions:  strings.Join(numbered, "\n"),
		AskedQuestions:     oneBased(s.AskedIndices(), "None yet"),
		RemainingQuestions: oneBased(s.remainingIndices(), "None (proceed with follow-ups or conclude)"),
		History:            e.formatHistory(s),
		TurnNumber:         turn,
		TotalQuestions:     len(s.plan.Questions),
	})
}

// formatHistory renders the most recent turns, two entries per turn, each
// entry capped in length.
func (e *Engine) formatHistory(s *Session) string {
	if len(s.history) == 0 {
		return "The conversation has not started yet."
	}

	recent := s.history
	if limit := e.cfg.HistoryTurns * 2; len(recent) > limit {
		recent = recent[len(recent)-limit:]
	}

	lines := make([]string, 0, len(recent))
	for _, entry := range recent {
		lines = append(lines, fmt.Sprintf("**%s:** %s", entry.Speaker, utils.Truncate(entry.Text, e.cfg.HistoryEntryLen)))
	}
	return strings.Join(lines, "\n\n")
}

func oneBased(indices []int, empty string) string {
	if len(indices) == 0 {
		return empty
	}
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx + 1)
	}
	return strings.Join(parts, ", ")
}
