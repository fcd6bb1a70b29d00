package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/alchemist/internal/config"
	"github.com/aiox-platform/alchemist/internal/filters"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.CatalogConfig{
		BaseURL: srv.URL + "/",
		APIKey:  "api-key",
		SiteKey: "site-key",
		Timeout: 2 * time.Second,
	})
}

func TestSearch_SortsByScoreDescending(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api-key/site-key/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": {"products": [
			{"title": "three", "imageUrl": "http://img/3", "listPrice": 30, "salePrice": 25, "score": 3, "description": "d3"},
			{"title": "one", "imageUrl": "http://img/1", "listPrice": 10, "salePrice": 10, "score": 1},
			{"title": "two", "imageUrl": ["http://img/2a", "http://img/2b"], "listPrice": "20.5", "salePrice": "19", "score": 2}
		]}}`))
	})

	records, err := client.Search(context.Background(), "red dress", filters.Set{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []float64{3, 2, 1}, []float64{records[0].Score, records[1].Score, records[2].Score})

	two := records[1]
	assert.Equal(t, "two", two.Title)
	assert.Equal(t, "http://img/2a", two.ImageURL)
	require.NotNil(t, two.ListPrice)
	assert.Equal(t, 20.5, *two.ListPrice)
	require.NotNil(t, two.SalePrice)
	assert.Equal(t, 19.0, *two.SalePrice)
	assert.Equal(t, "d3", records[0].Description)
}

func TestSearch_StableForEqualScores(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"products": [
			{"title": "a", "score": 1}, {"title": "b", "score": 2}, {"title": "c", "score": 1}, {"title": "d", "score": 2}
		]}}`))
	})

	records, err := client.Search(context.Background(), "q", nil)
	require.NoError(t, err)
	var titles []string
	for _, r := range records {
		titles = append(titles, r.Title)
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, titles)
}

func TestSearch_OmitsFilterWhenEmpty(t *testing.T) {
	var queries []url.Values
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query())
		_, _ = w.Write([]byte(`{"response": {"products": []}}`))
	})

	_, err := client.Search(context.Background(), "red dress", filters.Set{})
	require.NoError(t, err)
	_, err = client.Search(context.Background(), "red dress", filters.Set{filters.Color: `"red"`})
	require.NoError(t, err)

	require.Len(t, queries, 2)
	_, hasFilter := queries[0]["filter"]
	assert.False(t, hasFilter, "filter parameter must be absent for an empty set")
	assert.Equal(t, "red dress", queries[0].Get("q"))
	assert.Equal(t, Fields, queries[0].Get("fields"))

	assert.Equal(t, []string{`color_uFilter:"red"`}, queries[1]["filter"])
}

func TestSearchURL_AbsentDiffersFromEmptyFilter(t *testing.T) {
	c := NewClient(config.CatalogConfig{BaseURL: "http://search.local", APIKey: "k", SiteKey: "s"})
	without := c.searchURL("shoes", "")

	params := url.Values{}
	params.Set("q", "shoes")
	params.Set("fields", Fields)
	params.Set("filter", "")
	withEmpty := "http://search.local/k/s/search?" + params.Encode()

	assert.NotEqual(t, withEmpty, without)
	assert.NotContains(t, without, "filter=")
}

func TestSearch_NonSuccessReturnsEmpty(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	records, err := client.Search(context.Background(), "q", nil)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	var catErr *CatalogError
	require.True(t, errors.As(err, &catErr))
	assert.Equal(t, http.StatusBadGateway, catErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load(), "search must not retry")
}

func TestSearch_TransportFailureReturnsEmpty(t *testing.T) {
	c := NewClient(config.CatalogConfig{BaseURL: "http://127.0.0.1:1", APIKey: "k", SiteKey: "s", Timeout: time.Second})
	records, err := c.Search(context.Background(), "q", nil)
	assert.Empty(t, records)
	var catErr *CatalogError
	require.True(t, errors.As(err, &catErr))
	assert.Zero(t, catErr.StatusCode)
}

func TestSearch_MissingFieldsStayAbsent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"products": [{"imageUrl": "http://img", "salePrice": "n/a", "score": 1}]}}`))
	})

	records, err := client.Search(context.Background(), "q", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Title)
	assert.Nil(t, records[0].ListPrice)
	assert.Nil(t, records[0].SalePrice)
}

func TestSearch_UnexpectedBodyShape(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "nope"}`))
	})
	records, err := client.Search(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Empty(t, records)

	client = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	records, err = client.Search(context.Background(), "q", nil)
	assert.Empty(t, records)
	var catErr *CatalogError
	assert.True(t, errors.As(err, &catErr))
}

func TestSearch_OversizedBodyRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response": {"products": [{"title": "a", "score": 1}]}}`))
	})
	client.maxBody = 16

	records, err := client.Search(context.Background(), "q", nil)
	assert.Empty(t, records)
	var catErr *CatalogError
	require.True(t, errors.As(err, &catErr))
	assert.Contains(t, catErr.Error(), "exceeds")
}
