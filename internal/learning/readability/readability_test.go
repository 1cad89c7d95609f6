package readability

import (
	"math"
	"testing"
)

func TestGrade_DegenerateInputIsZero(t *testing.T) {
	for _, in := range []string{"", "   ", "...", "!?"} {
		if got := Grade(in); got != 0 {
			t.Fatalf("Grade(%q)=%v", in, got)
		}
	}
}

func TestCountSyllables(t *testing.T) {
	cases := map[string]int{
		"cat":       1,
		"the":       1,
		"cake":      1,
		"table":     2,
		"little":    2,
		"water":     2,
		"happy":     2,
		"beautiful": 3,
		"Sun!":      1,
		"42":        1,
		"rhythm":    1,
		"queue":     1,
	}
	for w, want := range cases {
		if got := CountSyllables(w); got != want {
			t.Fatalf("CountSyllables(%q)=%d want %d", w, got, want)
		}
	}
}

func TestAnalyze_Formula(t *testing.T) {
	// 2 sentences, 6 words, all monosyllabic: 0.39*3 + 11.8*1 - 15.59
	st := Analyze("The cat sat. The dog ran!")
	if st.Sentences != 2 || st.Words != 6 || st.Syllables != 6 {
		t.Fatalf("stats=%+v", st)
	}
	want := 0.39*3 + 11.8 - 15.59
	if math.Abs(st.Grade-want) > 1e-9 {
		t.Fatalf("grade=%v want %v", st.Grade, want)
	}
	if len(st.WordsPerSentence) != 2 || st.WordsPerSentence[0] != 3 || st.WordsPerSentence[1] != 3 {
		t.Fatalf("per sentence=%v", st.WordsPerSentence)
	}
}

func TestGrade_HarderTextScoresHigher(t *testing.T) {
	easy := Grade("I see a dog. The dog is big. It can run.")
	hard := Grade("Photosynthesis transforms electromagnetic radiation into chemical energy through complicated biochemical pathways.")
	if !(hard > easy) {
		t.Fatalf("easy=%v hard=%v", easy, hard)
	}
}

func TestSentences_IgnoresEmptyFragments(t *testing.T) {
	got := Sentences("Hi!! Are you there?  ... Yes.")
	if len(got) != 3 {
		t.Fatalf("got %q", got)
	}
}
