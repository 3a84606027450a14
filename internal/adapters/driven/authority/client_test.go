package authority

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/findingaid/internal/core/domain"
)

const jeffersonSuggest = `{
	"query": "thomas jefferson",
	"result": [
		{"term": "Jefferson, Thomas, 1743-1826", "nametype": "personal", "viafid": "41866271", "lc": "n79089957"},
		{"term": "Jefferson, Thomas, 1917-1998", "nametype": "personal", "viafid": "111111", "lc": "n80000001"},
		{"term": "Thomas Jefferson Foundation", "nametype": "corporate", "viafid": "222222"},
		{"term": "Jefferson, Thomas, 1820-1885", "nametype": "personal", "viafid": "333333"}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, RequestsPerSecond: 1000})
}

func TestClient_Lookup(t *testing.T) {
	var queries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("query"))
		_, _ = io.WriteString(w, jeffersonSuggest)
	})

	tests := []struct {
		hint    string
		cluster string
	}{
		{hint: "", cluster: "41866271"},
		{hint: "1826", cluster: "41866271"},
		{hint: "1917", cluster: "111111"},
		{hint: "1870", cluster: "333333"},
	}

	for _, tt := range tests {
		t.Run("hint "+tt.hint, func(t *testing.T) {
			record, err := c.Lookup(t.Context(), "Thomas Jefferson", tt.hint)
			require.NoError(t, err)
			require.NotNil(t, record)
			assert.Equal(t, tt.cluster, record.ClusterID)
		})
	}
	assert.Equal(t, "Thomas Jefferson", queries[0])
}

func TestClient_LookupRecordFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, jeffersonSuggest)
	})

	record, err := c.Lookup(t.Context(), "Thomas Jefferson", "")
	require.NoError(t, err)
	assert.Equal(t, &domain.AuthorityRecord{
		ClusterID:      "41866271",
		LocalCode:      "n79089957",
		PreferredLabel: "Jefferson, Thomas, 1743-1826",
	}, record)
}

func TestClient_LookupNoCandidates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"query": "nobody", "result": null}`)
	})

	record, err := c.Lookup(t.Context(), "Nobody", "")
	require.NoError(t, err)
	assert.Nil(t, record)

	record, err = c.Lookup(t.Context(), "  ", "")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestClient_LookupErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		fatal     bool
		transient bool
		malformed bool
		none      bool
	}{
		{name: "not found", status: http.StatusNotFound, none: true},
		{name: "forbidden", status: http.StatusForbidden, fatal: true},
		{name: "rate limited", status: http.StatusTooManyRequests, transient: true},
		{name: "server error", status: http.StatusBadGateway, transient: true},
		{name: "bad request", status: http.StatusBadRequest},
		{name: "html", status: http.StatusOK, body: "<html></html>", malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			record, err := c.Lookup(t.Context(), "Thomas Jefferson", "")
			assert.Nil(t, record)
			if tt.none {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.fatal, domain.IsFatal(err))
			assert.Equal(t, tt.transient, domain.IsTransient(err))
			assert.Equal(t, tt.malformed, errors.Is(err, domain.ErrMalformedResponse))
		})
	}
}

func TestClient_LookupNetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()
	c := NewClient(Config{BaseURL: server.URL, RequestsPerSecond: 1000})

	_, err := c.Lookup(t.Context(), "Thomas Jefferson", "")
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}
