// Package textanalysis holds the pure text transforms applied to a résumé and a
// job description before questions are planned. Nothing here keeps state.
package textanalysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/spigell/interviewer/internal/utils"
)

const (
	DefaultMaxSummaryLength        = 1200
	DefaultMaxProjectSummaryLength = 800
	DefaultFocusTopics             = 5

	// DefaultRoleTitle is used when the job description has no title heading.
	DefaultRoleTitle = "Relevant Role (from Job Description)"
	// TruncatedMarker is appended to project details cut at the length cap.
	TruncatedMarker = "... (truncated)"

	noInputTopic      = "Review Resume/JD"
	genericFocusTopic = "General technical skills"
	maxQueryLength    = 500
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	roleTitlePattern  = regexp.MustCompile(`(?im)^(?:Job\s+)?Title\s*[:\-]?\s*(.*?)$`)
	headerPattern     = regexp.MustCompile(`^[A-Z][A-Za-z\s/]+(?:[:\-—_])?\s*$`)
)

var projectHeaders = []string{
	"projects", "personal projects", "academic projects",
	"experience", "work experience", "professional experience", "relevant experience",
}

var endHeaders = []string{
	"skills", "technical skills", "languages", "tools", "technologies",
	"education", "certifications", "awards", "publications", "references",
	"interests", "hobbies", "contact",
}

// CleanText collapses every whitespace run into a single space.
func CleanText(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// Summarize returns a whitespace-cleaned prefix of text of at most limit runes.
func Summarize(text string, limit int) string {
	if limit <= 0 {
		limit = DefaultMaxSummaryLength
	}
	return utils.Prefix(CleanText(utils.Prefix(text, limit*2)), limit)
}

// ExtractProjectDetails returns the lines found under a Projects or Experience
// heading, stopping at the next Skills/Education-style heading.
func ExtractProjectDetails(resume string, limit int) string {
	if limit <= 0 {
		limit = DefaultMaxProjectSummaryLength
	}

	var (
		builder   strings.Builder
		inSection bool
	)
	for _, line := range strings.Split(resume, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		isHeader := headerPattern.MatchString(line)

		if inSection && isHeader && hasAnyPrefix(lower, endHeaders) {
			break
		}
		if isHeader && hasAnyPrefix(lower, projectHeaders) {
			inSection = true
			continue
		}
		if inSection {
			builder.WriteString(line)
			builder.WriteByte('\n')
		}
	}

	details := strings.TrimSpace(builder.String())
	if len([]rune(details)) > limit {
		return utils.Prefix(details, limit) + TruncatedMarker
	}
	return details
}

// RoleTitle finds a "Title:" or "Job Title:" heading in the job description.
func RoleTitle(jobDescription string) string {
	match := roleTitlePattern.FindStringSubmatch(jobDescription)
	if match == nil {
		return DefaultRoleTitle
	}
	if title := strings.TrimSpace(match[1]); title != "" {
		return title
	}
	return DefaultRoleTitle
}

// Keywords returns up to limit significant words ordered by frequency; ties
// keep the order of first appearance.
func Keywords(text string, limit int) []string {
	if limit <= 0 {
		return nil
	}

	counts := make(map[string]int)
	var order []string
	for _, word := range words(text) {
		if len(word) <= 2 || IsStopword(word) || isNumber(word) {
			continue
		}
		if counts[word] == 0 {
			order = append(order, word)
		}
		counts[word]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > limit {
		order = order[:limit]
	}
	return order
}

// FocusTopics intersects the résumé and job-description keyword sets and fills
// the remainder with the strongest job-description terms.
func FocusTopics(resume, jobDescription string, topN int) []string {
	if strings.TrimSpace(resume) == "" || strings.TrimSpace(jobDescription) == "" {
		return []string{noInputTopic}
	}
	if topN <= 0 {
		topN = DefaultFocusTopics
	}

	resumeKeywords := toSet(Keywords(resume, 20))
	jdKeywords := Keywords(jobDescription, 20)

	topics := make([]string, 0, topN)
	for _, kw := range jdKeywords {
		if _, ok := resumeKeywords[kw]; ok {
			topics = append(topics, kw)
		}
	}
	if len(topics) < topN {
		chosen := toSet(topics)
		for _, kw := range jdKeywords {
			if len(topics) == topN {
				break
			}
			if _, ok := chosen[kw]; !ok {
				topics = append(topics, kw)
			}
		}
	}
	if len(topics) > topN {
		topics = topics[:topN]
	}
	if len(topics) == 0 {
		return []string{genericFocusTopic}
	}
	return topics
}

// SearchQueries builds up to n distinct retrieval queries for the role.
func SearchQueries(roleTitle, resumeSummary, jdSummary string, n int) []string {
	if n <= 0 {
		return nil
	}
	if roleTitle = strings.TrimSpace(roleTitle); roleTitle == "" {
		roleTitle = "Position"
	}

	resumeKeywords := Keywords(resumeSummary, 8)
	jdKeywords := Keywords(jdSummary, 8)

	combined := make([]string, 0, len(resumeKeywords)+len(jdKeywords))
	seen := make(map[string]struct{})
	for _, kw := range append(append([]string{}, jdKeywords...), resumeKeywords...) {
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		combined = append(combined, kw)
	}

	resumeSet := toSet(resumeKeywords)
	var overlap []string
	for _, kw := range jdKeywords {
		if _, ok := resumeSet[kw]; ok {
			overlap = append(overlap, kw)
		}
	}

	var queries []string
	if len(combined) > 0 {
		queries = append(queries, fmt.Sprintf("%s technical concepts related to %s", roleTitle, strings.Join(firstN(combined, 4), ", ")))
	}
	switch {
	case len(overlap) > 1:
		queries = append(queries, fmt.Sprintf("Explain %s and %s for a %s", overlap[0], overlap[1], roleTitle))
	case len(overlap) == 1:
		queries = append(queries, fmt.Sprintf("Explain %s for a %s", overlap[0], roleTitle))
	}
	if len(jdKeywords) > 0 {
		queries = append(queries, fmt.Sprintf("Common interview questions about %s for %s", jdKeywords[0], roleTitle))
	}
	if len(queries) == 0 {
		fallback := utils.Prefix(CleanText(fmt.Sprintf("%s: %s Candidate skills: %s", roleTitle, jdSummary, resumeSummary)), maxQueryLength)
		queries = append(queries, fallback)
	}

	result := make([]string, 0, n)
	unique := make(map[string]struct{})
	for _, q := range queries {
		q = CleanText(q)
		if q == "" {
			continue
		}
		if _, ok := unique[q]; ok {
			continue
		}
		unique[q] = struct{}{}
		result = append(result, q)
		if len(result) == n {
			break
		}
	}
	return result
}

// ContentTokens returns the set of lower-cased alphabetic tokens of at least
// three letters that are not stop-words.
func ContentTokens(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) }) {
		if len([]rune(field)) < 3 || IsStopword(field) {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isNumber(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
