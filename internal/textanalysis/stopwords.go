package textanalysis

// English stop-words excluded from keyword and overlap computations.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"a", "about", "above", "after", "again", "against", "ain", "all", "also", "am", "an", "and", "any",
		"are", "aren", "as", "at", "be", "because", "been", "before", "being", "below", "between", "both",
		"but", "by", "can", "could", "couldn", "did", "didn", "do", "does", "doesn", "doing", "don", "down",
		"during", "each", "etc", "few", "for", "from", "further", "had", "hadn", "has", "hasn", "have",
		"haven", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how", "i", "if",
		"in", "into", "is", "isn", "it", "its", "itself", "just", "let", "ll", "ma", "may", "me", "might",
		"mightn", "more", "most", "must", "mustn", "my", "myself", "needn", "no", "nor", "not", "now", "of",
		"off", "on", "once", "only", "or", "other", "our", "ours", "ourselves", "out", "over", "own", "re",
		"same", "shall", "shan", "she", "should", "shouldn", "so", "some", "such", "than", "that", "the",
		"their", "theirs", "them", "themselves", "then", "there", "these", "they", "this", "those",
		"through", "to", "too", "under", "until", "up", "ve", "very", "was", "wasn", "we", "were", "weren",
		"what", "when", "where", "which", "while", "who", "whom", "why", "will", "with", "won", "would",
		"wouldn", "you", "your", "yours", "yourself", "yourselves",
	} {
		stopwords[w] = struct{}{}
	}
}

// IsStopword reports whether the lower-cased word carries no topical meaning.
func IsStopword(word string) bool {
	_, ok := stopwords[word]
	return ok
}
