// Package readability estimates the school grade needed to read a text (Flesch-Kincaid)
// and reports the sentence and word statistics behind the estimate.
package readability

import (
	"strings"
	"unicode"
)

type Stats struct {
	Sentences        int
	Words            int
	Syllables        int
	WordsPerSentence []int
	Grade            float64
}

// Grade returns the Flesch-Kincaid grade of text; 0 when there are no sentences or words.
func Grade(text string) float64 {
	return Analyze(text).Grade
}

func Analyze(text string) Stats {
	var st Stats
	for _, s := range Sentences(text) {
		n := len(strings.Fields(s))
		if n == 0 {
			continue
		}
		st.WordsPerSentence = append(st.WordsPerSentence, n)
	}
	st.Sentences = len(st.WordsPerSentence)

	words := strings.Fields(text)
	st.Words = len(words)
	for _, w := range words {
		st.Syllables += CountSyllables(w)
	}
	if st.Sentences == 0 || st.Words == 0 {
		return st
	}
	w := float64(st.Words)
	st.Grade = 0.39*(w/float64(st.Sentences)) + 11.8*(float64(st.Syllables)/w) - 15.59
	return st
}

// Sentences splits on '.', '!' and '?', dropping blank fragments.
func Sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CountSyllables approximates syllables by counting vowel runs. A trailing silent "e" is
// dropped unless the word ends in consonant+"le". Every word has at least one syllable.
func CountSyllables(word string) int {
	var b strings.Builder
	for _, r := range strings.ToLower(word) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	w := []rune(b.String())
	if len(w) == 0 {
		return 1
	}

	count := 0
	prevVowel := false
	for _, r := range w {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}

	n := len(w)
	if w[n-1] == 'e' {
		count--
		if n >= 3 && w[n-2] == 'l' && !isVowel(w[n-3]) {
			count++
		}
	}
	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
