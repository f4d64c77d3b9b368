package interview

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const projectDeepDiveTag = "[Project Deep Dive]"

// fallbackDeepDiveQuestion fills the project slot when the model returned
// exactly the core questions without one.
const fallbackDeepDiveQuestion = "Could you walk me through one project from your experience, starting with your primary role and the main goal of the project?"

var questionLinePattern = regexp.MustCompile(`^\s*(?:\[.*?\])?\s*(?:\d{1,2}[.)])?\s*(?:[-*•])?\s*(.*)`)

var (
	leadingNumberPattern = regexp.MustCompile(`^\s*\d+[.)]?\s*`)
	bracketTagPattern    = regexp.MustCompile(`^\s*\[[^\]]*\]\s*[:\-\s]?\s*`)
	codeFencePattern     = regexp.MustCompile("(?m)^```[\\w-]*[ \\t]*\\n?")
)

var questionTags = []string{
	"[Technical/Conceptual]", "[Database Concept]", "[Database Administration]",
	"[Database Concept/Administration]", "[SQL Query]", "[SQL Query Writing]",
	"[SQL Query (Advanced)]", "[Troubleshooting/Problem Solving]", "[Troubleshooting]",
	"[Troubleshooting/Performance]", "[Behavioral/Learning]", "[Coding/Algorithmic]",
	"[System Design]", "[Security Concept]", "[Cloud Concept (if relevant)]",
	"[Behavioral/Teamwork]", "[Behavioral/Problem Solving]", "[DB Concept]",
	"[DB Admin Task]", "[DB Design/Schema]", "[DB Scenario]", "[Performance Scenario]",
	"[Security Scenario]", "[Cloud Scenario]", "[Learning Scenario]", "[Backup/Recovery Scenario]",
	projectDeepDiveTag, "[Technical Concept/Tradeoff]", "[Coding Challenge (Scenario)]",
	"[System Design (Scenario)]", "[Debugging Scenario]", "[Behavioral Scenario (Teamwork)]",
	"[Behavioral Scenario (Learning)]", "[Technical Scenario]", "[Problem Solving Scenario]",
	"[Tool/Concept Question]", "[Design Question]", "[Behavioral Question]", "[Learning Question]",
	"[DB Concept/Scenario]", "[SQL Query (Scenario)]", "[Troubleshooting Scenario]",
	"[DB Admin Task/Scenario]", "[Behavioral/Learning Scenario]", "[Data Interpretation (if relevant)]",
	"Question:", "Follow-up:", "Next question:", "Okay, next:", "Let's discuss:", "How about:",
	"Can you explain:", "Scenario:", "Task:", "Problem:", "Concept:", "Behavioral:", "Technical:",
	"Coding:", "Design:",
}

var tagPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(questionTags)+1)
	for _, tag := range questionTags {
		patterns = append(patterns, regexp.MustCompile(`(?i)^\s*`+regexp.QuoteMeta(tag)+`\s*[:\-\s]?\s*`))
	}
	return append(patterns, bracketTagPattern)
}()

var skipPrefixes = []string{
	"okay", "great", "thanks", "sure", "understood", "evaluation:", "alignment",
	"technical accuracy", "relevance", "strengths:", "areas for improvement",
	"overall score", "here are", "generating", "note:", "based on the", "the question",
	"interview questions:", "response:", "answer:", "certainly", "here is", "here's",
}

var questionWords = []string{"what", "how", "why", "explain", "describe", "tell", "compare", "contrast", "give", "scenario"}

// ParseQuestions extracts prepared questions from a numbered-list reply.
// Numbering, category tags and chatty preamble lines are dropped; a line is
// kept when it reads like a question. If nothing survives and the reply has
// several lines, long non-preamble lines are taken as they are.
func ParseQuestions(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	lines := strings.Split(raw, "\n")
	var questions []string
	seen := make(map[string]struct{})
	add := func(q string) {
		if q == "" {
			return
		}
		if _, ok := seen[q]; ok {
			return
		}
		seen[q] = struct{}{}
		questions = append(questions, q)
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isPreamble(line) {
			continue
		}

		match := questionLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		original := strings.TrimSpace(match[1])
		cleaned := stripTags(original)

		if utf8.RuneCountInString(cleaned) <= 10 {
			continue
		}
		if looksLikeQuestion(cleaned) || cleaned != original {
			add(cleaned)
		}
	}

	if len(questions) == 0 && len(lines) > 1 {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if utf8.RuneCountInString(line) <= 20 || isPreamble(line) {
				continue
			}
			add(strings.TrimSpace(leadingNumberPattern.ReplaceAllString(line, "")))
		}
	}

	return questions
}

func stripTags(text string) string {
	for changed := true; changed; {
		changed = false
		for _, pattern := range tagPatterns {
			loc := pattern.FindStringIndex(text)
			if loc == nil || loc[1] == 0 {
				continue
			}
			text = strings.TrimSpace(text[loc[1]:])
			changed = true
			break
		}
	}
	return text
}

func isPreamble(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range skipPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

func looksLikeQuestion(text string) bool {
	if strings.HasSuffix(text, "?") || utf8.RuneCountInString(text) > 30 {
		return true
	}
	lower := strings.ToLower(text)
	for _, w := range questionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

var evaluationStartMarkers = []string{"Evaluation:", "Relevance & Understanding:"}

// CleanModelOutput strips code fences and markdown emphasis. For evaluations
// it also drops a short single-line preamble before the evaluation heading.
func CleanModelOutput(raw string, evaluation bool) string {
	text := codeFencePattern.ReplaceAllString(raw, "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.NewReplacer("**", "", "__", "").Replace(text)
	text = strings.NewReplacer("*", "", "_", "").Replace(text)
	text = strings.TrimSpace(text)

	if !evaluation {
		return text
	}

	start := -1
	for _, marker := range evaluationStartMarkers {
		if idx := strings.Index(text, marker); idx >= 0 && (start < 0 || idx < start) {
			start = idx
		}
	}
	if start > 0 {
		preamble := strings.TrimSpace(text[:start])
		if utf8.RuneCountInString(preamble) < 50 && !strings.Contains(preamble, "\n") {
			text = text[start:]
		}
	}
	return strings.TrimSpace(text)
}

type roleGuidance struct {
	Tags    []string
	Role    string
	Coding  string
	Solving string
}

func guidanceFor(roleTitle string) roleGuidance {
	lower := strings.ToLower(roleTitle)
	switch {
	case strings.Contains(lower, "database admin"), strings.Contains(lower, "dba"), strings.Contains(lower, "database administrator"):
		return roleGuidance{
			Tags: []string{
				"[DB Concept/Scenario]", "[SQL Query (Scenario)]", "[Troubleshooting Scenario]",
				"[DB Admin Task/Scenario]", "[Security Scenario]", "[Behavioral/Learning Scenario]",
			},
			Role:    "Probe core DB concepts, backup/recovery, performance tuning.",
			Coding:  "Focus on practical SQL for administration & querying.",
			Solving: "Present common DBA challenges (e.g., locking, slow queries, disk space).",
		}
	case strings.Contains(lower, "software engineer"), strings.Contains(lower, "developer"), strings.Contains(lower, "programmer"):
		return roleGuidance{
			Tags: []string{
				"[Technical Concept/Tradeoff]", "[Coding Challenge (Scenario)]", "[System Design (Scenario)]",
				"[Debugging Scenario]", "[Behavioral Scenario (Teamwork)]", "[Behavioral Scenario (Learning)]",
			},
			Role:    "Assess CS fundamentals, data structures, algorithms.",
			Coding:  "Provide small coding problems (logic, syntax).",
			Solving: "Debugging/design scenarios related to application development.",
		}
	default:
		return roleGuidance{
			Tags: []string{
				"[Technical Scenario]", "[Problem Solving Scenario]", "[Tool/Concept Question]",
				"[Data Interpretation (if relevant)]", "[Behavioral Question]", "[Learning Question]",
			},
			Role:    "Focus on general tech concepts relevant to the JD.",
			Coding:  "Ask about high-level logic or specific tool usage.",
			Solving: "Present general technical or analytical challenges.",
		}
	}
}

// questionSlots assigns a category tag to each of the n+1 planned questions,
// rotating through tags; slot n is always the project deep dive.
func questionSlots(tags []string, n int) []string {
	slots := make([]string, n+1)
	for i := range slots {
		if i == n || len(tags) == 0 {
			slots[i] = projectDeepDiveTag
			continue
		}
		slots[i] = tags[i%len(tags)]
	}
	return slots
}
