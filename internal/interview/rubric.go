package interview

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	overallScorePattern = regexp.MustCompile(`(?i)Overall\s+Score\s*(?:\(\s*1\s*[-–]\s*5\s*\)|out\s+of\s+5)?\s*[:\-]?\s*([1-5])(?:\s*/\s*5)?\b`)
	scorePattern        = regexp.MustCompile(`(?i)\bScore\s*(?:\(\s*1\s*[-–]\s*5\s*\)|out\s+of\s+5)?\s*[:\-]?\s*([1-5])(?:\s*/\s*5)?\b`)
	justificationLabel  = regexp.MustCompile(`(?is)Justification\s*[:\-]?\s*(.*)`)
	justificationStops  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\n\s*(?:Strengths|Areas for Improvement|Suggestions|Alignment|Technical Accuracy|Relevance|Overall Assessment)\s*:`),
		regexp.MustCompile(`\n\s*[-*•\d]+\s+`),
	}
)

// ParseScore extracts the 1..5 overall score from evaluation text. It accepts
// "Overall Score (1-5): 4", "Score: 4/5" and similar; nil means no score.
func ParseScore(evaluation string) *int {
	match := overallScorePattern.FindStringSubmatch(evaluation)
	if match == nil {
		match = scorePattern.FindStringSubmatch(evaluation)
	}
	if match == nil {
		return nil
	}
	score, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	return &score
}

// ParseJustification returns the text after a "Justification" label, cut at
// the next section heading or list item on its own line.
func ParseJustification(evaluation string) *string {
	match := justificationLabel.FindStringSubmatch(evaluation)
	if match == nil {
		return nil
	}

	text := strings.TrimSpace(match[1])
	for _, stop := range justificationStops {
		if loc := stop.FindStringIndex(text); loc != nil {
			text = strings.TrimSpace(text[:loc[0]])
		}
	}
	if text == "" {
		return nil
	}
	return &text
}
