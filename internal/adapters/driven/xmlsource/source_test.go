package xmlsource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<documents>
  <document>
    <documentID>TSJN-01-01-02-0001</documentID>
    <documentTitle> To James Madison </documentTitle>
    <projectInfo>
      <publicationName>Papers of Thomas Jefferson</publicationName>
      <publisher>University of Virginia Press</publisher>
      <formats><type>letter</type><type>draft</type></formats>
    </projectInfo>
    <authors><author>Jefferson, Thomas</author></authors>
    <recipients><recipient>Madison, James</recipient></recipients>
    <dates><date-from>1787-05-10</date-from></dates>
    <location><placeName> Monticello </placeName></location>
    <repositories><repository>Library of Congress</repository></repositories>
    <indexing>
      <indexTerm><main>Agriculture (general)</main><sub>Tobacco</sub></indexTerm>
      <indexTerm><main>Aberdeen, Scotland</main></indexTerm>
    </indexing>
  </document>
  <document>
    <documentTitle>Untitled fragment</documentTitle>
  </document>
</documents>`

func TestDecode(t *testing.T) {
	corpus, err := Decode(strings.NewReader(sampleXML))
	require.NoError(t, err)
	require.Len(t, corpus.Documents, 2)

	doc := corpus.Documents[0]
	assert.Equal(t, "TSJN-01-01-02-0001", doc.ID())
	assert.Equal(t, "To James Madison", *doc.DocumentTitle)
	assert.Equal(t, "Papers of Thomas Jefferson", *doc.ProjectInfo.PublicationName)
	assert.Nil(t, doc.ProjectInfo.SeriesName)
	assert.Nil(t, doc.ProjectInfo.VolumeInfo)
	assert.Equal(t, []string{"letter", "draft"}, doc.ProjectInfo.Formats)
	assert.Equal(t, []domain.NameRef{{Name: "Jefferson, Thomas"}}, doc.Authors)
	assert.Equal(t, []domain.NameRef{{Name: "Madison, James"}}, doc.Recipients)
	assert.Equal(t, "1787-05-10", *doc.Dates.From)
	assert.Nil(t, doc.Dates.To)
	require.NotNil(t, doc.Location)
	assert.Equal(t, "Monticello", doc.Location.Name)
	assert.Equal(t, []string{"Library of Congress"}, doc.Repositories)
	assert.Equal(t, []domain.TermTriple{
		{Main: "Agriculture (general)", Sub: "Tobacco"},
		{Main: "Aberdeen, Scotland"},
	}, doc.Indexing)
}

func TestDecode_MissingElements(t *testing.T) {
	corpus, err := Decode(strings.NewReader(sampleXML))
	require.NoError(t, err)

	doc := corpus.Documents[1]
	assert.Nil(t, doc.DocumentID)
	assert.Equal(t, "", doc.ID())
	assert.Nil(t, doc.Location)
	assert.Nil(t, doc.Dates.From)
	assert.NotNil(t, doc.Authors)
	assert.Empty(t, doc.Authors)
	assert.NotNil(t, doc.Repositories)
	assert.NotNil(t, doc.Indexing)
	assert.NotNil(t, doc.ProjectInfo.Formats)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(strings.NewReader("<documents><document>"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestSource_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "letters.xml")
	require.NoError(t, os.WriteFile(path, []byte(sampleXML), 0o644))

	source := NewSource(nil)

	corpus, err := source.Read(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, corpus.Documents, 2)

	_, err = source.Read(context.Background(), filepath.Join(dir, "missing.xml"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
