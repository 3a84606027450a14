package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

func jeffersonLetter() *domain.RawDocument {
	return &domain.RawDocument{
		DocumentID:    strPtr("TSJN-01-01-02-0001"),
		DocumentTitle: strPtr("To James Madison"),
		ProjectInfo: domain.ProjectInfo{
			PublicationName: strPtr("Papers of Thomas Jefferson"),
			Formats:         []string{"letter"},
		},
		Authors:      []domain.NameRef{{Name: "Jefferson, Thomas"}},
		Recipients:   []domain.NameRef{{Name: "Madison, James"}},
		Dates:        domain.DateRange{From: strPtr("1787-05-10")},
		Location:     &domain.NameRef{Name: "Monticello"},
		Repositories: []string{"Library of Congress"},
		Indexing:     []domain.TermTriple{{Main: "Agriculture"}},
	}
}

func TestAssemble_EndToEndJefferson(t *testing.T) {
	doc := Assemble(jeffersonLetter(), domain.Classifications{})

	require.Len(t, doc.Authors, 1)
	assert.Equal(t, "Thomas Jefferson", doc.Authors[0].Name)
	assert.Equal(t, domain.KindPerson, doc.Authors[0].Type)
	assert.Equal(t, domain.AssignURI("Thomas Jefferson"), doc.Authors[0].URI)
	assert.Equal(t, "r87835264", doc.Authors[0].URI)

	require.Len(t, doc.Recipients, 1)
	assert.Equal(t, "James Madison", doc.Recipients[0].Name)
	assert.Equal(t, "r19229132", doc.Recipients[0].URI)

	require.NotNil(t, doc.Location)
	assert.Equal(t, domain.KindPlace, doc.Location.Type)
	assert.Equal(t, domain.AssignURI("Monticello"), doc.Location.URI)

	require.Len(t, doc.Indexing, 1)
	assert.Equal(t, domain.IndexTerm{Term: "Agriculture", Type: domain.KindTerm}, doc.Indexing[0])
}

func TestAssemble_ClassifiedPlaceTerm(t *testing.T) {
	raw := &domain.RawDocument{
		Indexing: []domain.TermTriple{{Main: "Aberdeen, Scotland"}},
	}
	classifications := domain.Classifications{"aberdeen, scotland": domain.KindPlace}

	doc := Assemble(raw, classifications)

	require.Len(t, doc.Indexing, 1)
	assert.Equal(t, domain.IndexTerm{
		Term: "Aberdeen, Scotland",
		Type: domain.KindPlace,
		URI:  domain.AssignURI("Aberdeen, Scotland"),
	}, doc.Indexing[0])
	assert.Equal(t, "r80684553", doc.Indexing[0].URI)
}

func TestAssemble_NestedTerms(t *testing.T) {
	raw := &domain.RawDocument{
		Indexing: []domain.TermTriple{
			{Main: "Virginia (State)", Midsub: "Politics", Sub: "Madison, James"},
			{Main: "Virginia", Midsub: "Politics", Sub: "Madison,  James"},
			{Main: "", Midsub: "orphan"},
			{Main: "Agriculture", Sub: "Tobacco"},
		},
	}
	classifications := domain.Classifications{
		"virginia":       domain.KindPlace,
		"madison, james": domain.KindPerson,
	}

	doc := Assemble(raw, classifications)

	require.Len(t, doc.Indexing, 2)

	first := doc.Indexing[0]
	assert.Equal(t, "Virginia", first.Term)
	assert.Equal(t, domain.KindPlace, first.Type)
	assert.NotEmpty(t, first.URI)
	require.NotNil(t, first.Midsub)
	assert.Equal(t, domain.IndexTerm{Term: "Politics", Type: domain.KindTerm}, *first.Midsub)
	require.NotNil(t, first.Sub)
	assert.Equal(t, "James Madison", first.Sub.Term)
	assert.Equal(t, domain.KindPerson, first.Sub.Type)
	assert.Equal(t, domain.AssignURI("James Madison"), first.Sub.URI)

	second := doc.Indexing[1]
	assert.Equal(t, "Agriculture", second.Term)
	assert.Nil(t, second.Midsub)
	require.NotNil(t, second.Sub)
	assert.Equal(t, "Tobacco", second.Sub.Term)
}

func TestAssemble_MissingFieldsStayAbsent(t *testing.T) {
	raw := &domain.RawDocument{
		Authors:  []domain.NameRef{{Name: "  "}},
		Location: &domain.NameRef{Name: ""},
	}

	doc := Assemble(raw, nil)

	assert.Nil(t, doc.DocumentID)
	assert.Nil(t, doc.Location)
	assert.NotNil(t, doc.Authors)
	assert.Empty(t, doc.Authors)
	assert.NotNil(t, doc.Recipients)
	assert.NotNil(t, doc.Repositories)
	assert.NotNil(t, doc.Indexing)
}

func TestAssemble_Idempotent(t *testing.T) {
	raw := jeffersonLetter()
	raw.Indexing = append(raw.Indexing,
		domain.TermTriple{Main: "Aberdeen, Scotland", Midsub: "Trade"},
		domain.TermTriple{Main: "Agriculture"},
	)
	classifications := domain.Classifications{"aberdeen, scotland": domain.KindPlace}

	first, err := json.Marshal(Assemble(raw, classifications))
	require.NoError(t, err)
	second, err := json.Marshal(Assemble(raw, classifications))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestAssemble_DoesNotAliasInput(t *testing.T) {
	raw := jeffersonLetter()
	doc := Assemble(raw, nil)

	doc.Repositories[0] = "changed"
	doc.ProjectInfo.Formats[0] = "changed"

	assert.Equal(t, "Library of Congress", raw.Repositories[0])
	assert.Equal(t, "letter", raw.ProjectInfo.Formats[0])
}

func TestAssignURIs(t *testing.T) {
	doc := &domain.Document{
		Authors:  []domain.Entity{{Name: "Thomas Jefferson", Type: domain.KindPerson}},
		Location: &domain.Entity{Name: "Monticello", Type: domain.KindPlace, URI: "stale"},
		Indexing: []domain.IndexTerm{{
			Term:   "Agriculture",
			Type:   domain.KindTerm,
			URI:    "r1",
			Midsub: &domain.IndexTerm{Term: "Aberdeen, Scotland", Type: domain.KindPlace},
		}},
	}

	AssignURIs(doc)

	assert.Equal(t, "r87835264", doc.Authors[0].URI)
	assert.Equal(t, "r12773443", doc.Location.URI)
	assert.Empty(t, doc.Indexing[0].URI)
	assert.Equal(t, "r80684553", doc.Indexing[0].Midsub.URI)
}
