// Package policy is the per-grade-band constraint table: sentence length, total length and
// vocabulary that is too advanced for the band.
package policy

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Band string

const (
	BandK2    Band = "K-2"
	Band34    Band = "3-4"
	Band56    Band = "5-6"
	Band78    Band = "7-8"
	Band9Plus Band = "9+"
)

type Policy struct {
	Band                Band
	MaxWordsPerSentence int
	MaxTotalWords       int
	BannedWords         map[string]struct{}
	// SoftLimits means the length caps are guidance only and never fail validation.
	SoftLimits bool
}

//go:embed bands.yaml
var bandsYAML []byte

type bandDoc struct {
	Band                string   `yaml:"band"`
	MaxGrade            *int     `yaml:"max_grade"`
	MaxWordsPerSentence int      `yaml:"max_words_per_sentence"`
	MaxTotalWords       int      `yaml:"max_total_words"`
	BannedWords         []string `yaml:"banned_words"`
	SoftLimits          bool     `yaml:"soft_limits"`
}

type table struct {
	rows []bandDoc
}

var bands = mustParse(bandsYAML)

func mustParse(b []byte) table {
	t, err := parse(b)
	if err != nil {
		panic(fmt.Sprintf("policy: %v", err))
	}
	return t
}

func parse(b []byte) (table, error) {
	var doc struct {
		Bands []bandDoc `yaml:"bands"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return table{}, fmt.Errorf("parse bands: %w", err)
	}
	if len(doc.Bands) == 0 {
		return table{}, fmt.Errorf("no bands defined")
	}
	for i, row := range doc.Bands {
		if strings.TrimSpace(row.Band) == "" {
			return table{}, fmt.Errorf("band %d has no name", i)
		}
		if row.MaxWordsPerSentence <= 0 || row.MaxTotalWords <= 0 {
			return table{}, fmt.Errorf("band %s has non-positive limits", row.Band)
		}
		last := i == len(doc.Bands)-1
		if row.MaxGrade == nil && !last {
			return table{}, fmt.Errorf("band %s: only the last band may omit max_grade", row.Band)
		}
		if i > 0 && row.MaxGrade != nil && *row.MaxGrade <= *doc.Bands[i-1].MaxGrade {
			return table{}, fmt.Errorf("band %s: max_grade must increase", row.Band)
		}
	}
	return table{rows: doc.Bands}, nil
}

func (t table) lookup(grade int) bandDoc {
	for _, row := range t.rows {
		if row.MaxGrade == nil || grade <= *row.MaxGrade {
			return row
		}
	}
	return t.rows[len(t.rows)-1]
}

// BandFor maps a grade level (0 = kindergarten) to its band. Negative grades clamp to K-2.
func BandFor(grade int) Band {
	return Band(bands.lookup(grade).Band)
}

// For returns the constraints for a grade level. The returned BannedWords set is a fresh copy.
func For(grade int) Policy {
	row := bands.lookup(grade)
	banned := make(map[string]struct{}, len(row.BannedWords))
	for _, w := range row.BannedWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			banned[w] = struct{}{}
		}
	}
	return Policy{
		Band:                Band(row.Band),
		MaxWordsPerSentence: row.MaxWordsPerSentence,
		MaxTotalWords:       row.MaxTotalWords,
		BannedWords:         banned,
		SoftLimits:          row.SoftLimits,
	}
}

// ScreensVocabulary reports whether banned-word checks apply to this band.
func (p Policy) ScreensVocabulary() bool {
	return len(p.BannedWords) > 0
}

// FindBanned returns the banned terms that occur in text as case-insensitive substrings, sorted.
func (p Policy) FindBanned(text string) []string {
	if len(p.BannedWords) == 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)
	var found []string
	for w := range p.BannedWords {
		if strings.Contains(lower, w) {
			found = append(found, w)
		}
	}
	sort.Strings(found)
	return found
}

// Banned lists the band's banned vocabulary, sorted.
func (p Policy) Banned() []string {
	out := make([]string, 0, len(p.BannedWords))
	for w := range p.BannedWords {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
