package neo4j

import (
	"fmt"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

// Statement is one parameterised Cypher query.
type Statement struct {
	Query  string
	Params map[string]any
}

// node identifies a graph node by label and key property.
type node struct {
	label string
	key   string
	value string
	name  string
}

// entityNode maps a named entity or index term onto its node. Named kinds
// are keyed by URI; plain terms, and named terms without a URI, by text.
func entityNode(name string, kind domain.EntityKind, uri string) node {
	switch {
	case kind == domain.KindPerson && uri != "":
		return node{label: "Person", key: "uri", value: uri, name: name}
	case kind == domain.KindPlace && uri != "":
		return node{label: "Place", key: "uri", value: uri, name: name}
	case kind == domain.KindOrganization && uri != "":
		return node{label: "Organization", key: "uri", value: uri, name: name}
	default:
		return node{label: "Term", key: "term", value: name}
	}
}

func (n node) merge() Statement {
	if n.name == "" {
		return Statement{
			Query:  fmt.Sprintf("MERGE (n:%s {%s: $value})", n.label, n.key),
			Params: map[string]any{"value": n.value},
		}
	}
	return Statement{
		Query:  fmt.Sprintf("MERGE (n:%s {%s: $value}) ON CREATE SET n.name = $name", n.label, n.key),
		Params: map[string]any{"value": n.value, "name": n.name},
	}
}

// relate links two existing nodes with a typed relationship.
func relate(from node, rel string, to node) Statement {
	return Statement{
		Query: fmt.Sprintf(
			"MATCH (a:%s {%s: $from}) MATCH (b:%s {%s: $to}) MERGE (a)-[:%s]->(b)",
			from.label, from.key, to.label, to.key, rel,
		),
		Params: map[string]any{"from": from.value, "to": to.value},
	}
}

var hasRelationship = map[string]string{
	"Person":       "HAS_PERSON",
	"Place":        "HAS_PLACE",
	"Organization": "HAS_ORGANIZATION",
	"Term":         "HAS_TERM",
}

// Plan returns the MERGE statements that upsert doc. Every node is merged
// before any relationship incident to it. Returns nil for a document
// without an ID.
func Plan(doc *domain.Document) []Statement {
	id := doc.ID()
	if id == "" {
		return nil
	}

	document := node{label: "Document", key: "documentID", value: id}
	info := doc.ProjectInfo
	stmts := []Statement{{
		Query: "MERGE (d:Document {documentID: $documentID}) " +
			"ON CREATE SET d.title = $title, d.volumeInfo = $volumeInfo, d.publisher = $publisher, " +
			"d.publicationName = $publicationName, d.seriesName = $seriesName",
		Params: map[string]any{
			"documentID":      id,
			"title":           deref(doc.DocumentTitle),
			"volumeInfo":      deref(info.VolumeInfo),
			"publisher":       deref(info.Publisher),
			"publicationName": deref(info.PublicationName),
			"seriesName":      deref(info.SeriesName),
		},
	}}

	link := func(e domain.Entity, rel string) {
		n := entityNode(e.Name, e.Type, e.URI)
		stmts = append(stmts, n.merge(), relate(n, rel, document))
	}
	for _, a := range doc.Authors {
		link(a, "AUTHOR")
	}
	for _, r := range doc.Recipients {
		link(r, "RECIPIENT")
	}
	if doc.Location != nil {
		link(*doc.Location, "LOCATION")
	}

	stmts = appendDate(stmts, document, doc.Dates.From, "DATE_FROM")
	stmts = appendDate(stmts, document, doc.Dates.To, "DATE_TO")

	for i := range doc.Indexing {
		term := &doc.Indexing[i]
		parent := entityNode(term.Term, term.Type, term.URI)
		stmts = append(stmts, parent.merge(), relate(document, hasRelationship[parent.label], parent))

		for _, child := range []struct {
			rel  string
			term *domain.IndexTerm
		}{{"MIDSUB", term.Midsub}, {"SUB", term.Sub}} {
			if child.term == nil {
				continue
			}
			n := entityNode(child.term.Term, child.term.Type, child.term.URI)
			stmts = append(stmts, n.merge(), relate(parent, child.rel, n))
		}
	}

	return stmts
}

func appendDate(stmts []Statement, document node, date *string, rel string) []Statement {
	if date == nil || *date == "" {
		return stmts
	}
	n := node{label: "Date", key: "date", value: *date}
	return append(stmts, n.merge(), relate(document, rel, n))
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
