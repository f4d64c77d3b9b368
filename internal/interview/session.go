package interview

import (
	"fmt"
	"sort"
	"time"
)

type State int

const (
	StateInitializing State = iota
	StateReady
	StateAsking
	StateAwaitingResponse
	StateInProgress
	StateEvaluating
	StateFinished
	StateError
)

var stateNames = map[State]string{
	StateInitializing:     "INITIALIZING",
	StateReady:            "READY",
	StateAsking:           "ASKING",
	StateAwaitingResponse: "AWAITING_RESPONSE",
	StateInProgress:       "IN_PROGRESS",
	StateEvaluating:       "EVALUATING",
	StateFinished:         "FINISHED",
	StateError:            "ERROR",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Every state may additionally move to StateError.
var allowedTransitions = map[State][]State{
	StateInitializing:     {StateReady},
	StateReady:            {StateAwaitingResponse},
	StateAwaitingResponse: {StateInProgress},
	StateInProgress:       {StateAsking},
	StateAsking:           {StateAwaitingResponse, StateFinished},
	StateFinished:         {StateEvaluating},
	StateEvaluating:       {StateFinished},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	if to == StateError {
		return from != StateError
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Entry is one line of the conversation.
type Entry struct {
	Speaker string
	Text    string
}

// QuestionContext links the latest AI turn to the answer that follows it.
// PreparedIndex is nil when the turn was a follow-up.
type QuestionContext struct {
	Question        string
	PreparedIndex   *int
	DetectionMethod string
	TurnNumber      int
}

// QnaTurn records one candidate response. Only the evaluation fields change
// after the record is appended. PreparedIndex is zero-based.
type QnaTurn struct {
	TurnNumber      int
	Question        string
	Response        string
	IsPrepared      bool
	PreparedIndex   *int
	DetectionMethod string

	STTSucceeded bool
	STTError     string

	ConfidenceScore   *float64
	ConfidenceRating  string
	PrimaryEmotion    string
	ConfidenceError   bool
	ConfidenceMessage string

	Evaluation    *string
	Score         *int
	Justification *string
}

// Plan is everything derived from the résumé and job description before the
// interview starts.
type Plan struct {
	RoleTitle        string
	ResumeSummary    string
	JDSummary        string
	ProjectDetails   string
	FocusTopics      []string
	RetrievedContext string
	Questions        []string
}

// EvaluationSummary counts evaluation outcomes per turn.
type EvaluationSummary struct {
	Evaluated int
	Skipped   int
	Failed    int
}

// Session is one interview. It is not safe for concurrent use; callers
// serialize access per session id.
type Session struct {
	id        string
	createdAt time.Time

	resumeText string
	jdText     string
	plan       Plan

	state        State
	errorMessage string

	asked       map[int]struct{}
	history     []Entry
	qna         []QnaTurn
	lastContext *QuestionContext
	currentTurn int
	lastAI      string

	evaluationComplete bool
	evaluation         EvaluationSummary
}

func newSession(id, resume, jd string, now time.Time) *Session {
	return &Session{
		id:         id,
		createdAt:  now,
		resumeText: resume,
		jdText:     jd,
		state:      StateInitializing,
		asked:      make(map[int]struct{}),
	}
}

func (s *Session) transition(to State) error {
	if !CanTransition(s.state, to) {
		return fmt.Errorf("transition %s -> %s: %w", s.state, to, ErrPrecondition)
	}
	s.state = to
	return nil
}

func (s *Session) fail(message string) {
	s.state = StateError
	s.errorMessage = message
}

func (s *Session) ID() string { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) State() State { return s.state }
func (s *Session) ErrorMessage() string { return s.errorMessage }
func (s *Session) ResumeText() string { return s.resumeText }
func (s *Session) JobDescription() string { return s.jdText }
func (s *Session) RoleTitle() string { return s.plan.RoleTitle }
func (s *Session) CurrentTurnNumber() int { return s.currentTurn }
func (s *Session) EvaluationComplete() bool { return s.evaluationComplete }
func (s *Session) LastAIMessage() string { return s.lastAI }

// Evaluation returns the outcome counts of the last Evaluate call.
func (s *Session) Evaluation() EvaluationSummary { return s.evaluation }

// Plan returns a copy of the prepared plan.
func (s *Session) Plan() Plan {
	p := s.plan
	p.FocusTopics = append([]string(nil), s.plan.FocusTopics...)
	p.Questions = append([]string(nil), s.plan.Questions...)
	return p
}

func (s *Session) PreparedQuestions() []string {
	return append([]string(nil), s.plan.Questions...)
}

// AskedIndices returns the confirmed prepared-question indices in ascending order.
func (s *Session) AskedIndices() []int {
	indices := make([]int, 0, len(s.asked))
	for i := range s.asked {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

func (s *Session) History() []Entry {
	return append([]Entry(nil), s.history...)
}

func (s *Session) QnaRecords() []QnaTurn {
	return append([]QnaTurn(nil), s.qna...)
}

// LastQuestionContext returns the pending question context, if any.
func (s *Session) LastQuestionContext() (QuestionContext, bool) {
	if s.lastContext == nil {
		return QuestionContext{}, false
	}
	return *s.lastContext, true
}

func (s *Session) remainingIndices() []int {
	var remaining []int
	for i := range s.plan.Questions {
		if _, ok := s.asked[i]; !ok {
			remaining = append(remaining, i)
		}
	}
	return remaining
}

func (s *Session) lastSpeaker() string {
	if len(s.history) == 0 {
		return ""
	}
	return s.history[len(s.history)-1].Speaker
}
