// Package xmlsource reads finding-aid XML exports into the ingestion shape.
package xmlsource

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/custodia-labs/findingaid/internal/core/domain"
	"github.com/custodia-labs/findingaid/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DocumentSource = (*Source)(nil)

// Source implements driven.DocumentSource for <document> records under any root element.
type Source struct {
	logger *slog.Logger
}

// NewSource creates a new XML source
func NewSource(logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{logger: logger}
}

type xmlCorpus struct {
	Documents []xmlDocument `xml:"document"`
}

type xmlDocument struct {
	DocumentID    *string        `xml:"documentID"`
	DocumentTitle *string        `xml:"documentTitle"`
	ProjectInfo   xmlProjectInfo `xml:"projectInfo"`
	Authors       []string       `xml:"authors>author"`
	Recipients    []string       `xml:"recipients>recipient"`
	DateFrom      *string        `xml:"dates>date-from"`
	DateTo        *string        `xml:"dates>date-to"`
	Location      *string        `xml:"location>placeName"`
	Repositories  []string       `xml:"repositories>repository"`
	IndexTerms    []xmlIndexTerm `xml:"indexing>indexTerm"`
}

type xmlProjectInfo struct {
	PublicationName *string  `xml:"publicationName"`
	SeriesName      *string  `xml:"seriesName"`
	VolumeInfo      *string  `xml:"volumeInfo"`
	Publisher       *string  `xml:"publisher"`
	Formats         []string `xml:"formats>type"`
}

type xmlIndexTerm struct {
	Main   string `xml:"main"`
	Midsub string `xml:"midsub"`
	Sub    string `xml:"sub"`
}

// Read parses one XML file. Index terms are returned as written; cleaning
// and deduplication happen in the pipeline.
func (s *Source) Read(ctx context.Context, path string) (*domain.Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	corpus, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	s.logger.Debug("read xml", "file", path, "documents", len(corpus.Documents))
	return corpus, nil
}

// Decode parses finding-aid XML from r.
func Decode(r io.Reader) (*domain.Corpus, error) {
	var raw xmlCorpus
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: parse xml: %v", domain.ErrInvalidInput, err)
	}

	corpus := &domain.Corpus{Documents: make([]*domain.RawDocument, 0, len(raw.Documents))}
	for _, d := range raw.Documents {
		corpus.Documents = append(corpus.Documents, d.toDomain())
	}
	return corpus, nil
}

func (d xmlDocument) toDomain() *domain.RawDocument {
	doc := &domain.RawDocument{
		DocumentID:    trimPtr(d.DocumentID),
		DocumentTitle: trimPtr(d.DocumentTitle),
		ProjectInfo: domain.ProjectInfo{
			PublicationName: trimPtr(d.ProjectInfo.PublicationName),
			SeriesName:      trimPtr(d.ProjectInfo.SeriesName),
			VolumeInfo:      trimPtr(d.ProjectInfo.VolumeInfo),
			Publisher:       trimPtr(d.ProjectInfo.Publisher),
			Formats:         trimAll(d.ProjectInfo.Formats),
		},
		Authors:    names(d.Authors),
		Recipients: names(d.Recipients),
		Dates: domain.DateRange{
			From: trimPtr(d.DateFrom),
			To:   trimPtr(d.DateTo),
		},
		Repositories: trimAll(d.Repositories),
		Indexing:     make([]domain.TermTriple, 0, len(d.IndexTerms)),
	}

	if d.Location != nil {
		doc.Location = &domain.NameRef{Name: strings.TrimSpace(*d.Location)}
	}

	for _, t := range d.IndexTerms {
		doc.Indexing = append(doc.Indexing, domain.TermTriple{
			Main:   strings.TrimSpace(t.Main),
			Midsub: strings.TrimSpace(t.Midsub),
			Sub:    strings.TrimSpace(t.Sub),
		})
	}
	return doc
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.TrimSpace(v))
	}
	return out
}

func names(values []string) []domain.NameRef {
	out := make([]domain.NameRef, 0, len(values))
	for _, v := range values {
		out = append(out, domain.NameRef{Name: strings.TrimSpace(v)})
	}
	return out
}
