package interview

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/interviewer/internal/ai"
	"github.com/spigell/interviewer/internal/confidence"
)

type generateCall struct {
	prompt string
	params ai.GenerationParams
}

type generateReply struct {
	text string
	err  error
}

type stubGenerator struct {
	replies []generateReply
	calls   []generateCall
}

func (g *stubGenerator) push(text string, err error) {
	g.replies = append(g.replies, generateReply{text: text, err: err})
}

func (g *stubGenerator) Generate(_ context.Context, prompt string, params ai.GenerationParams) (string, error) {
	g.calls = append(g.calls, generateCall{prompt: prompt, params: params})
	if len(g.replies) == 0 {
		return "", errors.New("Error: no scripted reply")
	}
	reply := g.replies[0]
	g.replies = g.replies[1:]
	return reply.text, reply.err
}

type transcribeReply struct {
	text string
	err  error
}

type stubTranscriber struct {
	replies []transcribeReply
	paths   []string
}

func (s *stubTranscriber) push(text string, err error) {
	s.replies = append(s.replies, transcribeReply{text: text, err: err})
}

func (s *stubTranscriber) Transcribe(_ context.Context, audioPath string) (string, error) {
	s.paths = append(s.paths, audioPath)
	if len(s.replies) == 0 {
		return "", errors.New("no scripted transcript")
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply.text, reply.err
}

type stubConfidence struct {
	result confidence.Result
	calls  int
}

func (c *stubConfidence) Analyze(context.Context, string) confidence.Result {
	c.calls++
	return c.result
}

type stubPlayer struct {
	texts []string
	err   error
}

func (p *stubPlayer) Send(_ context.Context, text string) error {
	p.texts = append(p.texts, text)
	return p.err
}

type harness struct {
	engine      *Engine
	gen         *stubGenerator
	transcriber *stubTranscriber
	confidence  *stubConfidence
	player      *stubPlayer
}

func newHarness(t *testing.T, logger *zap.Logger) *harness {
	t.Helper()
	score := 0.8
	h := &harness{
		gen:         &stubGenerator{},
		transcriber: &stubTranscriber{},
		confidence: &stubConfidence{result: confidence.Result{
			Score: &score, Rating: "High", PrimaryEmotion: "neutral", Message: "ok",
		}},
		player: &stubPlayer{},
	}
	h.engine = NewEngine(testConfig(2), Deps{
		Generator:   h.gen,
		Transcriber: h.transcriber,
		Confidence:  h.confidence,
		Player:      h.player,
		Logger:      logger,
		NewID:       func() string { return "session-1" },
		Now:         func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) },
	})
	return h
}

// startedSession returns a session that has been greeted and is waiting for
// the candidate's ready reply.
func (h *harness) startedSession(t *testing.T) *Session {
	t.Helper()
	h.gen.push(threeQuestions, nil)
	s, err := h.engine.Start(context.Background(), testResume, testJD)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := h.engine.Greeting(context.Background(), s); err != nil {
		t.Fatalf("greeting: %v", err)
	}
	return s
}

func (h *harness) answer(t *testing.T, s *Session, transcript string, err error) QnaTurn {
	t.Helper()
	h.transcriber.push(transcript, err)
	res, ingestErr := h.engine.Ingest(context.Background(), s, "answer.wav")
	if ingestErr != nil {
		t.Fatalf("ingest: %v", ingestErr)
	}
	return res.Turn
}

func (h *harness) ask(t *testing.T, s *Session, reply string) Utterance {
	t.Helper()
	h.gen.push(reply, nil)
	u, err := h.engine.NextTurn(context.Background(), s)
	if err != nil {
		t.Fatalf("next turn: %v", err)
	}
	return u
}

func TestStartPreparesSession(t *testing.T) {
	h := newHarness(t, nil)
	h.gen.push(threeQuestions, nil)

	s, err := h.engine.Start(context.Background(), testResume, testJD)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.ID() != "session-1" || s.State() != StateReady {
		t.Fatalf("unexpected session %s in %s", s.ID(), s.State())
	}
	if len(s.PreparedQuestions()) != 3 {
		t.Fatalf("expected N+1 questions, got %d", len(s.PreparedQuestions()))
	}
	if s.ResumeText() != testResume || s.RoleTitle() != "Backend Software Engineer" {
		t.Fatalf("session lost its inputs")
	}
}

func TestStartFailureMovesToError(t *testing.T) {
	h := newHarness(t, nil)
	h.gen.push("", errors.New("Error: Invalid Google API Key. Please check your configuration."))

	s, err := h.engine.Start(context.Background(), testResume, testJD)
	var initErr *InitializationError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected InitializationError, got %v", err)
	}
	if s.State() != StateError || !strings.Contains(s.ErrorMessage(), "Invalid Google API Key") {
		t.Fatalf("expected error state with message, got %s %q", s.State(), s.ErrorMessage())
	}
	if _, err := h.engine.Greeting(context.Background(), s); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected greeting to be rejected, got %v", err)
	}
}

func TestGreeting(t *testing.T) {
	h := newHarness(t, nil)
	s := h.startedSession(t)

	if s.State() != StateAwaitingResponse {
		t.Fatalf("expected AWAITING_RESPONSE, got %s", s.State())
	}
	greeting := s.LastAIMessage()
	for _, want := range []string{"Backend Software Engineer", DefaultCompanyName, "about 3 questions", DefaultInterviewerName} {
		if !strings.Contains(greeting, want) {
			t.Fatalf("greeting %q does not mention %q", greeting, want)
		}
	}
	qctx, ok := s.LastQuestionContext()
	if !ok || qctx.TurnNumber != 0 || qctx.DetectionMethod != methodGreeting || qctx.Question != greetingQuestion {
		t.Fatalf("unexpected greeting context %+v", qctx)
	}
	if len(h.player.texts) != 1 || h.player.texts[0] != greeting {
		t.Fatalf("greeting was not played: %q", h.player.texts)
	}
}

func TestFullInterview(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := newHarness(t, zap.New(core))
	ctx := context.Background()
	s := h.startedSession(t)

	ready := h.answer(t, s, "Yes, I'm ready.", nil)
	if ready.TurnNumber != 0 || ready.DetectionMethod != methodGreeting || ready.IsPrepared {
		t.Fatalf("unexpected ready record %+v", ready)
	}
	if s.State() != StateAsking || s.CurrentTurnNumber() != 0 {
		t.Fatalf("expected ASKING at turn 0, got %s at %d", s.State(), s.CurrentTurnNumber())
	}

	h.ask(t, s, "Great. How would you design a rate limiter for a public HTTP API?")
	qctx, _ := s.LastQuestionContext()
	if qctx.PreparedIndex == nil || *qctx.PreparedIndex != 0 || qctx.TurnNumber != 1 {
		t.Fatalf("expected prepared question 0 at turn 1, got %+v", qctx)
	}
	if !strings.HasPrefix(qctx.DetectionMethod, "Prepared Q Match (Overlap: 100.0%") {
		t.Fatalf("unexpected detection method %q", qctx.DetectionMethod)
	}
	first := h.answer(t, s, "I would use a token bucket.", nil)
	if !first.IsPrepared || first.Question != s.PreparedQuestions()[0] || first.ConfidenceScore == nil || first.ConfidenceError {
		t.Fatalf("unexpected first record %+v", first)
	}

	h.ask(t, s, "Interesting. How did you choose the bucket size for bursts?")
	failed := h.answer(t, s, "", errors.New("audio file is empty"))
	if failed.IsPrepared || failed.Question != "How did you choose the bucket size for bursts?" {
		t.Fatalf("unexpected follow-up record %+v", failed)
	}
	if failed.STTSucceeded || failed.Response != "[STT Error: audio file is empty]" {
		t.Fatalf("unexpected stt failure record %+v", failed)
	}
	if !failed.ConfidenceError || failed.ConfidenceMessage != "Skipped due to STT Error: audio file is empty" {
		t.Fatalf("unexpected confidence for stt failure %+v", failed)
	}

	h.ask(t, s, "Imagine a Go service slowly leaks memory in production. How would you investigate it?")
	silent := h.answer(t, s, "", nil)
	if silent.Response != ai.NoSpeechTranscript || !silent.STTSucceeded {
		t.Fatalf("expected no-speech record, got %+v", silent)
	}
	if silent.ConfidenceError || silent.ConfidenceMessage != "Skipped (No speech detected)" {
		t.Fatalf("unexpected confidence for silence %+v", silent)
	}

	h.ask(t, s, "Tell me about the most complex project on your resume and your role in it.")
	h.answer(t, s, "It was a billing system.", nil)
	if got := s.AskedIndices(); len(got) != 3 {
		t.Fatalf("expected all prepared questions asked, got %v", got)
	}

	calls := len(h.gen.calls)
	closing, err := h.engine.NextTurn(ctx, s)
	if err != nil {
		t.Fatalf("closing turn: %v", err)
	}
	if !closing.Finished || !strings.Contains(closing.Text, "concludes") || s.State() != StateFinished {
		t.Fatalf("expected closing remark, got %+v in %s", closing, s.State())
	}
	if len(h.gen.calls) != calls {
		t.Fatalf("closing must not call the generator")
	}

	again, err := h.engine.NextTurn(ctx, s)
	if err != nil || again.Text != closing.Text || len(s.History()) != 11 {
		t.Fatalf("expected idempotent closing, got %+v (%v), history %d", again, err, len(s.History()))
	}

	if h.confidence.calls != 3 {
		t.Fatalf("expected confidence for three spoken answers, got %d", h.confidence.calls)
	}

	records := s.QnaRecords()
	for i := 1; i < len(records); i++ {
		if records[i].TurnNumber <= records[i-1].TurnNumber {
			t.Fatalf("turn numbers not increasing: %d then %d", records[i-1].TurnNumber, records[i].TurnNumber)
		}
	}

	for i := 0; i < 3; i++ {
		h.gen.push("Evaluation: Solid.\nOverall Score (1-5): 4\nJustification: Relevant and concrete.", nil)
	}
	summary, err := h.engine.Evaluate(ctx, s)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if summary != (EvaluationSummary{Evaluated: 3, Skipped: 2}) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !s.EvaluationComplete() || s.State() != StateFinished {
		t.Fatalf("evaluation did not complete")
	}

	records = s.QnaRecords()
	if *records[2].Evaluation != "Evaluation skipped (audio file is empty)" || records[2].Score != nil {
		t.Fatalf("unexpected skipped record %+v", records[2])
	}
	if *records[3].Evaluation != "Evaluation skipped (No speech detected)" {
		t.Fatalf("unexpected no-speech evaluation %q", *records[3].Evaluation)
	}
	if records[4].Score == nil || *records[4].Score != 4 || *records[4].Justification != "Relevant and concrete." {
		t.Fatalf("unexpected evaluated record %+v", records[4])
	}

	calls = len(h.gen.calls)
	second, err := h.engine.Evaluate(ctx, s)
	if err != nil || second != summary || len(h.gen.calls) != calls {
		t.Fatalf("expected idempotent evaluation, got %+v (%v) with %d new calls", second, err, len(h.gen.calls)-calls)
	}

	if logs.FilterMessage("prepared question asked").Len() != 3 {
		t.Fatalf("expected three prepared-question log entries, got %d", logs.FilterMessage("prepared question asked").Len())
	}
	if logs.FilterField(zap.String("session_id", "session-1")).Len() == 0 {
		t.Fatalf("expected session-scoped log entries")
	}
}

func TestNextTurnGenerationFailureIsTransient(t *testing.T) {
	tests := []struct {
		name string
		text string
		err  error
	}{
		{name: "error", err: errors.New("Error: Failed to query LLM x after 3 attempts. Last error: timeout")},
		{name: "error text", text: "Error: Response generation stopped (Reason: SAFETY)."},
		{name: "empty", text: "  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			s := h.startedSession(t)
			h.answer(t, s, "Ready.", nil)
			history := len(s.History())

			h.gen.push(tt.text, tt.err)
			u, err := h.engine.NextTurn(context.Background(), s)
			if err != nil {
				t.Fatalf("next turn: %v", err)
			}
			if !u.Transient || u.Text != apologyText {
				t.Fatalf("expected transient apology, got %+v", u)
			}
			if s.State() != StateAsking || len(s.History()) != history || len(s.AskedIndices()) != 0 {
				t.Fatalf("session mutated on transient failure")
			}
			if h.player.texts[len(h.player.texts)-1] != apologyText {
				t.Fatalf("apology was not played")
			}

			u = h.ask(t, s, "How would you design a rate limiter for a public HTTP API?")
			if u.Transient || s.State() != StateAwaitingResponse {
				t.Fatalf("retry did not recover: %+v in %s", u, s.State())
			}
		})
	}
}

func TestPreconditions(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.gen.push(threeQuestions, nil)
	s, err := h.engine.Start(ctx, testResume, testJD)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := h.engine.NextTurn(ctx, s); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected NextTurn on READY to fail, got %v", err)
	}
	if _, err := h.engine.Ingest(ctx, s, "a.wav"); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected Ingest on READY to fail, got %v", err)
	}
	if _, err := h.engine.Evaluate(ctx, s); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected Evaluate on READY to fail, got %v", err)
	}
	if s.State() != StateReady || len(h.transcriber.paths) != 0 {
		t.Fatalf("rejected calls changed the session")
	}

	if _, err := h.engine.Greeting(ctx, s); err != nil {
		t.Fatalf("greeting: %v", err)
	}
	if _, err := h.engine.Greeting(ctx, s); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected second greeting to fail, got %v", err)
	}
	if _, err := h.engine.NextTurn(ctx, s); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected NextTurn while awaiting response to fail, got %v", err)
	}
}

func TestIngestContextMismatchFallback(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(t, zap.New(core))
	s := h.startedSession(t)
	s.lastContext = nil

	rec := h.answer(t, s, "Ready when you are.", nil)
	if rec.DetectionMethod != methodFallback || rec.Question != s.History()[0].Text {
		t.Fatalf("expected fallback to last interviewer message, got %+v", rec)
	}
	if logs.FilterMessageSnippet("falling back").Len() != 1 {
		t.Fatalf("expected mismatch to be logged")
	}
}

func TestIngestWithoutCollaborators(t *testing.T) {
	gen := &stubGenerator{}
	gen.push(threeQuestions, nil)
	engine := NewEngine(testConfig(2), Deps{Generator: gen})
	ctx := context.Background()

	s, err := engine.Start(ctx, testResume, testJD)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := engine.Greeting(ctx, s); err != nil {
		t.Fatalf("greeting: %v", err)
	}
	res, err := engine.Ingest(ctx, s, "a.wav")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Turn.STTSucceeded || !strings.HasPrefix(res.Turn.Response, "[STT Error:") {
		t.Fatalf("expected stt failure without transcriber, got %+v", res.Turn)
	}
}

func TestFinishReusesClosingRemark(t *testing.T) {
	h := newHarness(t, nil)
	s := h.startedSession(t)
	h.answer(t, s, "Ready.", nil)

	for i := range s.plan.Questions {
		s.asked[i] = struct{}{}
	}
	s.currentTurn = len(s.plan.Questions)
	h.engine.appendAI(s, "Thank you for walking me through all of that.")
	history := len(s.History())

	u, err := h.engine.NextTurn(context.Background(), s)
	if err != nil {
		t.Fatalf("next turn: %v", err)
	}
	if !u.Finished || u.Text != "Thank you for walking me through all of that." || len(s.History()) != history {
		t.Fatalf("expected existing closing to be reused, got %+v", u)
	}
}

func TestEvaluationErrorsAreCounted(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	s := h.startedSession(t)
	h.answer(t, s, "Ready.", nil)

	s.state = StateFinished
	h.gen.push("", errors.New("Error: API quota exceeded for model gemini-1.5-pro-latest."))

	summary, err := h.engine.Evaluate(ctx, s)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if summary.Failed != 1 || summary.Evaluated != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	rec := s.QnaRecords()[0]
	if !strings.HasPrefix(*rec.Evaluation, "Evaluation Error: Error: API quota exceeded") || rec.Score != nil {
		t.Fatalf("unexpected failed evaluation %+v", rec)
	}
}

func TestEvaluationDelayHonoursContext(t *testing.T) {
	h := newHarness(t, nil)
	h.engine.cfg.EvaluationDelay = time.Hour
	s := h.startedSession(t)
	h.answer(t, s, "Ready.", nil)
	s.qna = append(s.qna, QnaTurn{TurnNumber: 1, Question: "q", Response: "a", STTSucceeded: true})
	s.state = StateFinished
	h.gen.push("Overall Score: 3", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.engine.Evaluate(ctx, s)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if s.State() != StateEvaluating || s.EvaluationComplete() {
		t.Fatalf("expected resumable EVALUATING state, got %s", s.State())
	}

	h.engine.cfg.EvaluationDelay = -1
	h.gen.push("Overall Score: 5", nil)
	summary, err := h.engine.Evaluate(context.Background(), s)
	if err != nil || summary.Evaluated != 2 {
		t.Fatalf("expected resume to finish, got %+v (%v)", summary, err)
	}
}
