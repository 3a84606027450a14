package services

import (
	"strings"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// Assemble builds the output document for raw using the resolved
// classifications. It has no side effects: the same input always produces
// the same document.
//
// Authors and recipients become persons in display form, the location a
// place. Index terms keep first-occurrence order after deduplication; a
// triple whose main heading is blank is omitted. Only named kinds carry a URI.
func Assemble(raw *domain.RawDocument, classifications domain.Classifications) *domain.Document {
	doc := &domain.Document{
		DocumentID:    raw.DocumentID,
		DocumentTitle: raw.DocumentTitle,
		ProjectInfo:   copyProjectInfo(raw.ProjectInfo),
		Authors:       people(raw.Authors),
		Recipients:    people(raw.Recipients),
		Dates:         raw.Dates,
		Repositories:  append([]string{}, raw.Repositories...),
		Indexing:      []domain.IndexTerm{},
	}

	if raw.Location != nil {
		if name := strings.TrimSpace(raw.Location.Name); name != "" {
			doc.Location = newEntity(name, domain.KindPlace)
		}
	}

	for _, triple := range domain.DedupeTriples(raw.Indexing) {
		main := buildTerm(triple.Main, classifications)
		if triple.Midsub != "" {
			main.Midsub = buildTerm(triple.Midsub, classifications)
		}
		if triple.Sub != "" {
			main.Sub = buildTerm(triple.Sub, classifications)
		}
		doc.Indexing = append(doc.Indexing, *main)
	}

	return doc
}

// AssignURIs recomputes the URI of every entity and index term in doc from
// its current name and type. Term nodes lose any URI they carry.
func AssignURIs(doc *domain.Document) {
	for i := range doc.Authors {
		assignEntityURI(&doc.Authors[i])
	}
	for i := range doc.Recipients {
		assignEntityURI(&doc.Recipients[i])
	}
	if doc.Location != nil {
		assignEntityURI(doc.Location)
	}
	for i := range doc.Indexing {
		doc.Indexing[i].Walk(func(t *domain.IndexTerm) {
			if t.Type.IsNamed() {
				t.URI = domain.AssignURI(t.Term)
			} else {
				t.URI = ""
			}
		})
	}
}

func assignEntityURI(e *domain.Entity) {
	if e.Type.IsNamed() {
		e.URI = domain.AssignURI(e.Name)
	} else {
		e.URI = ""
	}
}

func people(refs []domain.NameRef) []domain.Entity {
	out := make([]domain.Entity, 0, len(refs))
	for _, ref := range refs {
		if strings.TrimSpace(ref.Name) == "" {
			continue
		}
		out = append(out, *newEntity(domain.DisplayName(ref.Name), domain.KindPerson))
	}
	return out
}

func newEntity(name string, kind domain.EntityKind) *domain.Entity {
	return &domain.Entity{
		Name: name,
		Type: kind,
		URI:  domain.AssignURI(name),
	}
}

func buildTerm(text string, classifications domain.Classifications) *domain.IndexTerm {
	kind := classifications.Resolve(text)
	term := &domain.IndexTerm{
		Term: text,
		Type: kind,
	}
	if kind == domain.KindPerson {
		term.Term = domain.DisplayName(text)
	}
	if kind.IsNamed() {
		term.URI = domain.AssignURI(term.Term)
	}
	return term
}

func copyProjectInfo(p domain.ProjectInfo) domain.ProjectInfo {
	p.Formats = append([]string{}, p.Formats...)
	return p
}
