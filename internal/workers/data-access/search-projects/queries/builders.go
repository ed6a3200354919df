// internal/workers/data-access/search-projects/queries/builders.go
package queries

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var (
	ErrUnknownQueryType = errors.New("unknown query type")
	ErrMissingIndex     = errors.New("index name is required")
)

// ProjectSearch defines the structure of a search request
type ProjectSearch struct {
	Index      string
	QueryType  string
	Filters    map[string]interface{}
	ProjectID  string
	Pagination struct {
		From int
		Size int
	}
}

// BuildQuery builds an Elasticsearch search request based on query type and filters
func BuildQuery(esClient *elasticsearch.Client, ps ProjectSearch) (*esapi.SearchRequest, error) {
	if ps.Index == "" {
		return nil, ErrMissingIndex
	}

	var queryBody map[string]interface{}

	switch ps.QueryType {
	case "project_search":
		queryBody = buildProjectSearchQuery(ps)
	case "similar_projects":
		queryBody = buildSimilarProjectsQuery(ps)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownQueryType, ps.QueryType)
	}

	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{ps.Index},
		Body:  strings.NewReader(string(body)),
		From:  &ps.Pagination.From,
		Size:  &ps.Pagination.Size,
	}

	return &req, nil
}

// buildProjectSearchQuery builds the main project search query dynamically.
// Name matches outweigh description matches, which outweigh the location
// fields, so a project named after the keyword always surfaces first.
func buildProjectSearchQuery(ps ProjectSearch) map[string]interface{} {
	boolQuery := make(map[string]interface{})
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if keywords, ok := ps.Filters["keywords"].(string); ok && keywords != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  keywords,
				"fields": []string{"name^3", "description^2", "city", "location"},
				"type":   "best_fields",
			},
		})
	}

	if city, ok := ps.Filters["city"].(string); ok && city != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"city": city},
		})
	}

	if status, ok := ps.Filters["status"].(string); ok && status != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"status": status},
		})
	}

	if tags, ok := ps.Filters["tags"].([]interface{}); ok && len(tags) > 0 {
		terms := make([]string, 0, len(tags))
		for _, tag := range tags {
			if s, ok := tag.(string); ok {
				terms = append(terms, s)
			}
		}
		if len(terms) > 0 {
			filterClauses = append(filterClauses, map[string]interface{}{
				"terms": map[string]interface{}{"tags": terms},
			})
		}
	}

	// Default match_all if no keyword
	if len(mustClauses) == 0 {
		mustClauses = append(mustClauses, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	boolQuery["must"] = mustClauses
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}

	query := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": boolQuery,
		},
	}

	if sortBy, ok := ps.Filters["sortBy"].(string); ok {
		switch sortBy {
		case "name":
			query["sort"] = []map[string]interface{}{{"name.keyword": "asc"}}
		case "created_at":
			query["sort"] = []map[string]interface{}{{"created_at": "desc"}}
		}
	}

	return query
}

// buildSimilarProjectsQuery builds a "projects like this one" query
func buildSimilarProjectsQuery(ps ProjectSearch) map[string]interface{} {
	if ps.ProjectID == "" {
		return map[string]interface{}{
			"query": map[string]interface{}{
				"match_none": map[string]interface{}{},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"more_like_this": map[string]interface{}{
				"fields": []string{"name", "description", "city"},
				"like": []map[string]interface{}{
					{"_index": ps.Index, "_id": ps.ProjectID},
				},
				"min_term_freq":   1,
				"max_query_terms": 12,
				"min_doc_freq":    1,
				"min_word_length": 3,
			},
		},
	}
}
