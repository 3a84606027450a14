package domain

import (
	"regexp"
	"strings"
)

var parentheticalPattern = regexp.MustCompile(`\(.*?\)`)

// NormalizeKey is the single matching key used between known entities,
// classification requests and classification results: whitespace runs
// collapse to one space, ends are trimmed, text is lowercased.
func NormalizeKey(text string) string {
	return strings.ToLower(collapseSpace(text))
}

// CleanTerm strips parenthetical content and normalizes whitespace while
// keeping the original case.
func CleanTerm(text string) string {
	return collapseSpace(parentheticalPattern.ReplaceAllString(text, ""))
}

// CleanTriple applies CleanTerm to each heading of a triple.
func CleanTriple(t TermTriple) TermTriple {
	return TermTriple{
		Main:   CleanTerm(t.Main),
		Midsub: CleanTerm(t.Midsub),
		Sub:    CleanTerm(t.Sub),
	}
}

// DedupeTriples cleans triples and drops duplicates, keeping the first
// occurrence and source order. Triples without a main heading are dropped.
func DedupeTriples(triples []TermTriple) []TermTriple {
	seen := make(map[TermTriple]struct{}, len(triples))
	out := make([]TermTriple, 0, len(triples))
	for _, t := range triples {
		cleaned := CleanTriple(t)
		if cleaned.Main == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	return out
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
