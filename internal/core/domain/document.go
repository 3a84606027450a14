package domain

// Corpus is the ingestion shape produced from one finding-aid XML file.
// Documents keep their source order.
type Corpus struct {
	Documents []*RawDocument `json:"documents"`
}

// RawDocument is a document as read from XML, before classification.
// Nullable scalars are pointers so absent XML elements round-trip as JSON null.
type RawDocument struct {
	DocumentID    *string      `json:"documentID"`
	DocumentTitle *string      `json:"documentTitle"`
	ProjectInfo   ProjectInfo  `json:"projectInfo"`
	Authors       []NameRef    `json:"authors"`
	Recipients    []NameRef    `json:"recipients"`
	Dates         DateRange    `json:"dates"`
	Location      *NameRef     `json:"location"`
	Repositories  []string     `json:"repositories"`
	Indexing      []TermTriple `json:"indexing"`
}

// ID returns the document ID or "" when absent.
func (d *RawDocument) ID() string {
	if d.DocumentID == nil {
		return ""
	}
	return *d.DocumentID
}

// ProjectInfo carries the edition metadata of a document.
type ProjectInfo struct {
	PublicationName *string  `json:"publicationName"`
	SeriesName      *string  `json:"seriesName"`
	VolumeInfo      *string  `json:"volumeInfo"`
	Publisher       *string  `json:"publisher"`
	Formats         []string `json:"formats"`
}

// DateRange holds the ISO-ish from/to strings; either may be absent.
type DateRange struct {
	From *string `json:"date-from"`
	To   *string `json:"date-to"`
}

// NameRef is an unclassified name as it appears in the XML.
type NameRef struct {
	Name string `json:"name"`
}

// TermTriple is a raw index term: a main heading with optional midsub and sub headings.
// Empty strings mean the heading is absent.
type TermTriple struct {
	Main   string `json:"main"`
	Midsub string `json:"midsub"`
	Sub    string `json:"sub"`
}

// Output is the enriched shape handed to the graph loader.
type Output struct {
	Documents []*Document `json:"documents"`
}

// Document is an assembled document. It is only mutated in place by
// enrichment stages (URI, authority identifiers).
type Document struct {
	DocumentID    *string     `json:"documentID"`
	DocumentTitle *string     `json:"documentTitle"`
	ProjectInfo   ProjectInfo `json:"projectInfo"`
	Authors       []Entity    `json:"authors"`
	Recipients    []Entity    `json:"recipients"`
	Dates         DateRange   `json:"dates"`
	Location      *Entity     `json:"location"`
	Repositories  []string    `json:"repositories"`
	Indexing      []IndexTerm `json:"indexing"`
}

// ID returns the document ID or "" when absent.
func (d *Document) ID() string {
	if d.DocumentID == nil {
		return ""
	}
	return *d.DocumentID
}

// Entity is a person, place or organization attached to a document.
type Entity struct {
	Name      string     `json:"name"`
	Type      EntityKind `json:"type"`
	URI       string     `json:"uri,omitempty"`
	VIAF      string     `json:"viaf,omitempty"`
	Authority string     `json:"authority,omitempty"`
}

// IndexTerm is a node of the index term tree. Only the main heading carries
// Midsub and Sub children. Type term nodes never carry a URI.
type IndexTerm struct {
	Term      string     `json:"term"`
	Type      EntityKind `json:"type"`
	URI       string     `json:"uri,omitempty"`
	VIAF      string     `json:"viaf,omitempty"`
	Authority string     `json:"authority,omitempty"`
	Midsub    *IndexTerm `json:"midsub,omitempty"`
	Sub       *IndexTerm `json:"sub,omitempty"`
}

// Walk calls fn for the term and its midsub and sub children, in that order.
func (t *IndexTerm) Walk(fn func(*IndexTerm)) {
	fn(t)
	if t.Midsub != nil {
		fn(t.Midsub)
	}
	if t.Sub != nil {
		fn(t.Sub)
	}
}
