// Package report turns an evaluated interview session into the payload an
// external renderer consumes.
package report

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/interviewer/internal/interview"
)

const (
	maxSummaryPoints = 3
	minPointLength   = 5
)

// ErrNotEvaluated is returned by Build before the session has been evaluated.
var ErrNotEvaluated = errors.New("interview has not been evaluated")

var (
	strengthsPattern = regexp.MustCompile(`(?is)Strengths:\s*(.*?)(?:Areas for Improvement:|Overall\s+Score\b[^:\n]*:|Justification\s*:|\z)`)
	areasPattern     = regexp.MustCompile(`(?is)Areas for Improvement:\s*(.*?)(?:Overall\s+Score\b[^:\n]*:|Justification\s*:|\z)`)
	pointSeparator   = regexp.MustCompile(`[*•\n]`)
)

// Identities names the people shown in the report header.
type Identities struct {
	CandidateName   string
	InterviewerName string
	CompanyName     string
}

type Report struct {
	InterviewID     string    `json:"interview_id" yaml:"interview_id"`
	GeneratedAt     time.Time `json:"generated_at" yaml:"generated_at"`
	CompanyName     string    `json:"company_name" yaml:"company_name"`
	RoleTitle       string    `json:"role_title" yaml:"role_title"`
	CandidateName   string    `json:"candidate_name" yaml:"candidate_name"`
	InterviewerName string    `json:"interviewer_name" yaml:"interviewer_name"`
	ResumeText      string    `json:"resume_text" yaml:"resume_text"`
	JobDescription  string    `json:"job_description" yaml:"job_description"`
	Summary         Summary   `json:"summary" yaml:"summary"`
	Turns           []Turn    `json:"turns" yaml:"turns"`
}

// Summary aggregates the per-turn results. Averages are nil when nothing
// contributed to them; AverageConfidence is a percentage.
type Summary struct {
	AverageScore        *float64 `json:"average_score" yaml:"average_score"`
	ScoredResponses     int      `json:"scored_responses" yaml:"scored_responses"`
	AverageConfidence   *float64 `json:"average_confidence" yaml:"average_confidence"`
	AnalyzedResponses   int      `json:"analyzed_responses" yaml:"analyzed_responses"`
	Evaluated           int      `json:"evaluated" yaml:"evaluated"`
	Skipped             int      `json:"skipped" yaml:"skipped"`
	Failed              int      `json:"failed" yaml:"failed"`
	Strengths           []string `json:"strengths,omitempty" yaml:"strengths,omitempty"`
	AreasForImprovement []string `json:"areas_for_improvement,omitempty" yaml:"areas_for_improvement,omitempty"`
}

type Turn struct {
	TurnNumber        int      `json:"turn" yaml:"turn"`
	Question          string   `json:"question" yaml:"question"`
	Response          string   `json:"response" yaml:"response"`
	IsPrepared        bool     `json:"is_prepared" yaml:"is_prepared"`
	PreparedNumber    *int     `json:"prepared_number,omitempty" yaml:"prepared_number,omitempty"`
	DetectionMethod   string   `json:"detection_method" yaml:"detection_method"`
	STTSucceeded      bool     `json:"stt_succeeded" yaml:"stt_succeeded"`
	STTError          string   `json:"stt_error,omitempty" yaml:"stt_error,omitempty"`
	ConfidenceScore   *float64 `json:"confidence_score" yaml:"confidence_score"`
	ConfidenceRating  string   `json:"confidence_rating" yaml:"confidence_rating"`
	PrimaryEmotion    string   `json:"primary_emotion" yaml:"primary_emotion"`
	ConfidenceError   bool     `json:"confidence_error" yaml:"confidence_error"`
	ConfidenceMessage string   `json:"confidence_message" yaml:"confidence_message"`
	Evaluation        string   `json:"evaluation" yaml:"evaluation"`
	Score             *int     `json:"score" yaml:"score"`
	Justification     string   `json:"justification" yaml:"justification"`
}

// Build assembles the report for an evaluated session.
func Build(s *interview.Session, ids Identities, now time.Time) (*Report, error) {
	if !s.EvaluationComplete() {
		return nil, ErrNotEvaluated
	}

	records := s.QnaRecords()
	counts := s.Evaluation()
	r := &Report{
		InterviewID:     s.ID(),
		GeneratedAt:     now,
		CompanyName:     ids.CompanyName,
		RoleTitle:       s.RoleTitle(),
		CandidateName:   ids.CandidateName,
		InterviewerName: ids.InterviewerName,
		ResumeText:      s.ResumeText(),
		JobDescription:  s.JobDescription(),
		Summary: Summary{
			Evaluated: counts.Evaluated,
			Skipped:   counts.Skipped,
			Failed:    counts.Failed,
		},
		Turns: make([]Turn, 0, len(records)),
	}

	var (
		scoreTotal, confidenceTotal float64
		strengths, areas            []string
	)
	for _, rec := range records {
		r.Turns = append(r.Turns, turnFromRecord(rec))

		if rec.Score != nil {
			scoreTotal += float64(*rec.Score)
			r.Summary.ScoredResponses++
		}
		if rec.ConfidenceScore != nil && !rec.ConfidenceError {
			confidenceTotal += *rec.ConfidenceScore
			r.Summary.AnalyzedResponses++
		}
		if rec.Evaluation != nil {
			strengths = append(strengths, sectionPoints(strengthsPattern, *rec.Evaluation)...)
			areas = append(areas, sectionPoints(areasPattern, *rec.Evaluation)...)
		}
	}

	if n := r.Summary.ScoredResponses; n > 0 {
		avg := scoreTotal / float64(n)
		r.Summary.AverageScore = &avg
	}
	if n := r.Summary.AnalyzedResponses; n > 0 {
		avg := confidenceTotal / float64(n) * 100
		r.Summary.AverageConfidence = &avg
	}
	r.Summary.Strengths = topPoints(strengths)
	r.Summary.AreasForImprovement = topPoints(areas)

	return r, nil
}

func turnFromRecord(rec interview.QnaTurn) Turn {
	t := Turn{
		TurnNumber:        rec.TurnNumber,
		Question:          rec.Question,
		Response:          rec.Response,
		IsPrepared:        rec.IsPrepared,
		DetectionMethod:   rec.DetectionMethod,
		STTSucceeded:      rec.STTSucceeded,
		STTError:          rec.STTError,
		ConfidenceScore:   rec.ConfidenceScore,
		ConfidenceRating:  rec.ConfidenceRating,
		PrimaryEmotion:    rec.PrimaryEmotion,
		ConfidenceError:   rec.ConfidenceError,
		ConfidenceMessage: rec.ConfidenceMessage,
		Evaluation:        "N/A",
		Score:             rec.Score,
		Justification:     "N/A",
	}
	if rec.PreparedIndex != nil {
		n := *rec.PreparedIndex + 1
		t.PreparedNumber = &n
	}
	if rec.Evaluation != nil {
		t.Evaluation = *rec.Evaluation
	}
	if rec.Justification != nil {
		t.Justification = *rec.Justification
	}
	return t
}

func sectionPoints(pattern *regexp.Regexp, evaluation string) []string {
	match := pattern.FindStringSubmatch(evaluation)
	if match == nil {
		return nil
	}

	var points []string
	for _, part := range pointSeparator.Split(strings.TrimSpace(match[1]), -1) {
		part = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(part), "-"))
		if part != "" {
			points = append(points, part)
		}
	}
	return points
}

// topPoints keeps the first few distinct points that carry some content.
func topPoints(points []string) []string {
	var result []string
	seen := make(map[string]struct{})
	for _, p := range points {
		if utf8.RuneCountInString(p) <= minPointLength {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		result = append(result, p)
		if len(result) == maxSummaryPoints {
			break
		}
	}
	return result
}
