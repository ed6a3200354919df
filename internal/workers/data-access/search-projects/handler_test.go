package searchprojects

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"civicmatch-workers/internal/common/logger"
	"civicmatch-workers/internal/workers/data-access/search-projects/queries"
)

type stubTransport func(*http.Request) (*http.Response, error)

func (f stubTransport) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func esResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"X-Elastic-Product": []string{"Elasticsearch"}, "Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newStubClient(t *testing.T, fn stubTransport) *elasticsearch.Client {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://elasticsearch.test:9200"},
		Transport: fn,
	})
	require.NoError(t, err)
	return client
}

func newTestHandler(t *testing.T, fn stubTransport) *Handler {
	t.Helper()
	log := logger.NewZapAdapter(zaptest.NewLogger(t))
	return NewHandler(LoadConfig(), newStubClient(t, fn), log)
}

const searchHitsBody = `{
	"took": 4,
	"hits": {
		"total": {"value": 2, "relation": "eq"},
		"max_score": 3.5,
		"hits": [
			{"_id": "p-1", "_score": 3.5, "_source": {"name": "Urban Garden", "city": "Lisbon"}},
			{"_id": "p-2", "_score": 1.2, "_source": {"name": "River Cleanup", "city": "Porto"}}
		]
	}
}`

func TestExecuteProjectSearchParsesHits(t *testing.T) {
	var capturedBody string
	handler := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(r.Body)
		capturedBody = string(raw)
		return esResponse(http.StatusOK, searchHitsBody), nil
	})

	output, err := handler.Execute(context.Background(), &Input{
		QueryType: "project_search",
		Filters:   map[string]interface{}{"keywords": "garden"},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), output.TotalHits)
	assert.Equal(t, 3.5, output.MaxScore)
	require.Len(t, output.Data, 2)
	assert.Equal(t, "Urban Garden", output.Data[0]["name"])
	assert.GreaterOrEqual(t, output.Took, int64(0))

	assert.Contains(t, capturedBody, "multi_match")
	assert.Contains(t, capturedBody, "name^3")
	assert.Contains(t, capturedBody, "description^2")
}

func TestExecuteDefaultIndexAndPaginationClamp(t *testing.T) {
	var capturedPath, capturedSize string
	handler := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		capturedPath = r.URL.Path
		capturedSize = r.URL.Query().Get("size")
		return esResponse(http.StatusOK, searchHitsBody), nil
	})

	_, err := handler.Execute(context.Background(), &Input{
		QueryType:  "project_search",
		Pagination: Pagination{From: 0, Size: 500},
	})

	require.NoError(t, err)
	assert.Equal(t, "/projects/_search", capturedPath)
	assert.Equal(t, "100", capturedSize)
}

func TestExecuteAppliesTermFilters(t *testing.T) {
	var capturedBody string
	handler := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		raw, _ := io.ReadAll(r.Body)
		capturedBody = string(raw)
		return esResponse(http.StatusOK, searchHitsBody), nil
	})

	_, err := handler.Execute(context.Background(), &Input{
		QueryType: "project_search",
		Filters: map[string]interface{}{
			"city":   "Lisbon",
			"status": "active",
			"tags":   []interface{}{"environment", "community"},
		},
	})

	require.NoError(t, err)
	assert.Contains(t, capturedBody, `"term":{"city":"Lisbon"}`)
	assert.Contains(t, capturedBody, `"term":{"status":"active"}`)
	assert.Contains(t, capturedBody, `"terms":{"tags":["environment","community"]}`)
	assert.Contains(t, capturedBody, "match_all")
}

func TestExecuteUnknownQueryType(t *testing.T) {
	handler := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		t.Fatal("no request expected for an unknown query type")
		return nil, nil
	})

	_, err := handler.Execute(context.Background(), &Input{QueryType: "trending_projects"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchQueryFailed)
	assert.Equal(t, "SEARCH_QUERY_FAILED", mapErrorToCode(err))
}

func TestExecuteIndexNotFound(t *testing.T) {
	handler := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		body := `{"error":{"type":"index_not_found_exception","reason":"no such index [projects]"}}`
		return esResponse(http.StatusNotFound, body), nil
	})

	_, err := handler.Execute(context.Background(), &Input{QueryType: "project_search"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexNotFound)
	assert.Equal(t, "INDEX_NOT_FOUND", mapErrorToCode(err))
}

func TestExecuteConnectionFailure(t *testing.T) {
	handler := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp 127.0.0.1:9200: connection refused")
	})

	_, err := handler.Execute(context.Background(), &Input{QueryType: "project_search"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElasticsearchConnectionFailed)
	assert.Equal(t, "ELASTICSEARCH_CONNECTION_FAILED", mapErrorToCode(err))
}

func TestExecuteTimeout(t *testing.T) {
	handler := newTestHandler(t, func(r *http.Request) (*http.Response, error) {
		<-r.Context().Done()
		return nil, r.Context().Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := handler.Execute(ctx, &Input{QueryType: "project_search"})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchTimeout)
	assert.Equal(t, "SEARCH_TIMEOUT", mapErrorToCode(err))
}

func TestBuildQueryRequiresIndex(t *testing.T) {
	_, err := queries.BuildQuery(nil, queries.ProjectSearch{QueryType: "project_search"})
	assert.ErrorIs(t, err, queries.ErrMissingIndex)
}

func TestSimilarProjectsWithoutIDMatchesNothing(t *testing.T) {
	req, err := queries.BuildQuery(nil, queries.ProjectSearch{
		Index:     "projects",
		QueryType: "similar_projects",
	})
	require.NoError(t, err)

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "match_none")
}

func TestSimilarProjectsUsesMoreLikeThis(t *testing.T) {
	req, err := queries.BuildQuery(nil, queries.ProjectSearch{
		Index:     "projects",
		QueryType: "similar_projects",
		ProjectID: "p-42",
	})
	require.NoError(t, err)

	raw, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "more_like_this")
	assert.Contains(t, string(raw), `"_id":"p-42"`)
}
