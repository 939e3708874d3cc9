package textmetrics

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize prepares text for comparison across independent engines: Unicode
// NFKC normalization, case folding, and whitespace collapsing. Two engines
// that disagree only in encoding or casing should compare as identical.
func Normalize(s string) string {
	folded := cases.Fold().String(norm.NFKC.String(s))
	return strings.Join(strings.Fields(folded), " ")
}

// Words splits normalized text into word tokens.
func Words(s string) []string {
	return strings.Fields(Normalize(s))
}

// Similarity computes a normalized edit-distance ratio between two strings
// in [0,1], where 1 means the normalized texts are identical.
func Similarity(a, b string) float64 {
	na := []rune(Normalize(a))
	nb := []rune(Normalize(b))
	if len(na) == 0 && len(nb) == 0 {
		return 1
	}
	longest := len(na)
	if len(nb) > longest {
		longest = len(nb)
	}
	if longest == 0 {
		return 1
	}
	distance := levenshtein(na, nb)
	return 1 - float64(distance)/float64(longest)
}

// WER computes the word error rate of a hypothesis transcript against a
// reference: word-level edit distance divided by reference length. An empty
// reference with a non-empty hypothesis is total error (1.0).
func WER(reference, hypothesis string) float64 {
	ref := Words(reference)
	hyp := Words(hypothesis)
	if len(ref) == 0 {
		if len(hyp) == 0 {
			return 0
		}
		return 1
	}
	distance := levenshteinWords(ref, hyp)
	rate := float64(distance) / float64(len(ref))
	if rate > 1 {
		rate = 1
	}
	return rate
}

// DictionaryRatio returns the fraction of word tokens present in the given
// dictionary. Tokens are stripped of surrounding punctuation before lookup;
// purely numeric tokens count as dictionary hits since numbers are expected
// in legitimate OCR output.
func DictionaryRatio(text string, dictionary map[string]struct{}) float64 {
	tokens := Words(text)
	if len(tokens) == 0 {
		return 0
	}
	hits := 0
	for _, token := range tokens {
		stripped := strings.Trim(token, ".,;:!?\"'()[]{}")
		if stripped == "" {
			continue
		}
		if isNumeric(stripped) {
			hits++
			continue
		}
		if _, ok := dictionary[stripped]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func levenshteinWords(a, b []string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func minInt(values ...int) int {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
