package interview

import (
	"strings"
	"unicode/utf8"

	"github.com/spigell/interviewer/internal/textanalysis"
)

// MatchThreshold is the minimum share of a prepared question's content words
// that must appear in an utterance for the question to count as asked.
const MatchThreshold = 0.60

const minFollowUpLength = 15

// MatchPreparedQuestion finds the remaining prepared question best covered by
// the utterance. remaining is scanned in the given order and only a strictly
// better overlap replaces the current best, so ties keep the earlier index.
func MatchPreparedQuestion(utterance string, questions []string, remaining []int) (int, float64, bool) {
	spoken := textanalysis.ContentTokens(utterance)
	if len(spoken) == 0 {
		return -1, 0, false
	}

	best, bestOverlap := -1, 0.0
	for _, idx := range remaining {
		if idx < 0 || idx >= len(questions) {
			continue
		}
		words := textanalysis.ContentTokens(questions[idx])
		if len(words) == 0 {
			continue
		}

		common := 0
		for w := range words {
			if _, ok := spoken[w]; ok {
				common++
			}
		}
		overlap := float64(common) / float64(len(words))
		if overlap > bestOverlap && overlap >= MatchThreshold {
			best, bestOverlap = idx, overlap
		}
	}

	if best < 0 {
		return -1, 0, false
	}
	return best, bestOverlap, true
}

// FollowUpQuestion returns the trailing question of text when it is long
// enough to stand on its own, otherwise the whole text.
func FollowUpQuestion(text string) string {
	text = strings.TrimSpace(text)
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return text
	}
	last := sentences[len(sentences)-1]
	if strings.HasSuffix(last, "?") && utf8.RuneCountInString(last) > minFollowUpLength {
		return last
	}
	return text
}

// splitSentences splits after '.', '!' or '?' when followed by whitespace.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)
	runes := []rune(text)
	for i := 0; i < len(runes)-1; i++ {
		if !strings.ContainsRune(".!?", runes[i]) || !isSpace(runes[i+1]) {
			continue
		}
		sentences = append(sentences, string(runes[start:i+1]))
		j := i + 1
		for j < len(runes) && isSpace(runes[j]) {
			j++
		}
		start = j
		i = j - 1
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}
