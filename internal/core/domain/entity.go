package domain

import "strings"

// EntityKind is the canonical four-way type vocabulary for names and index terms.
type EntityKind string

const (
	KindPerson       EntityKind = "person"
	KindPlace        EntityKind = "place"
	KindOrganization EntityKind = "organization"
	KindTerm         EntityKind = "term"
)

// kindSynonyms maps every vocabulary accepted from external classifiers and
// older pipeline output to the canonical kind. Keys are upper case.
var kindSynonyms = map[string]EntityKind{
	"PERSON":       KindPerson,
	"PER":          KindPerson,
	"PLACE":        KindPlace,
	"GPE":          KindPlace,
	"LOC":          KindPlace,
	"LOCATION":     KindPlace,
	"ORGANIZATION": KindOrganization,
	"ORGANISATION": KindOrganization,
	"ORG":          KindOrganization,
	"TERM":         KindTerm,
	"MISC":         KindTerm,
	"OTHER":        KindTerm,
}

// ParseEntityKind normalizes an external classification label.
// Returns false for labels outside the vocabulary.
func ParseEntityKind(label string) (EntityKind, bool) {
	kind, ok := kindSynonyms[strings.ToUpper(strings.TrimSpace(label))]
	return kind, ok
}

// IsValid returns true for the four canonical kinds.
func (k EntityKind) IsValid() bool {
	switch k {
	case KindPerson, KindPlace, KindOrganization, KindTerm:
		return true
	}
	return false
}

// IsNamed returns true for person, place and organization.
// Only named kinds receive a URI and are memoized in the registry.
func (k EntityKind) IsNamed() bool {
	return k == KindPerson || k == KindPlace || k == KindOrganization
}

// TermClassification is one {term, classification} pair as returned by an
// external classifier. Classification is the raw, unnormalized label.
type TermClassification struct {
	Term           string `json:"term"`
	Classification string `json:"classification"`
}

// Classifications maps normalized term keys to their resolved kind.
type Classifications map[string]EntityKind

// Resolve returns the kind for a term, defaulting to KindTerm.
func (c Classifications) Resolve(text string) EntityKind {
	if kind, ok := c[NormalizeKey(text)]; ok {
		return kind
	}
	return KindTerm
}
