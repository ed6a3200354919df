// internal/workers/data-access/search-projects/queries/execute.go
package queries

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

type SearchResult struct {
	Data      []map[string]interface{}
	TotalHits int64
	MaxScore  float64
	Took      int64
}

// Execute runs a search built from loosely typed job variables. Pagination
// sizes are clamped to [1, 100] so a workflow cannot ask for the whole index.
func Execute(ctx context.Context, esClient *elasticsearch.Client, input map[string]interface{}) (*SearchResult, error) {
	ps := ProjectSearch{
		Filters:    map[string]interface{}{},
		Pagination: struct{ From, Size int }{0, 20},
	}

	if index, ok := input["indexName"].(string); ok {
		ps.Index = index
	}
	if queryType, ok := input["queryType"].(string); ok {
		ps.QueryType = queryType
	}
	if filters, ok := input["filters"].(map[string]interface{}); ok {
		ps.Filters = filters
	}
	if projectID, ok := input["projectId"].(string); ok {
		ps.ProjectID = projectID
	}
	if pagination, ok := input["pagination"].(map[string]interface{}); ok {
		if from, exists := pagination["from"].(float64); exists {
			ps.Pagination.From = int(from)
		}
		if size, exists := pagination["size"].(float64); exists {
			ps.Pagination.Size = int(size)
			if ps.Pagination.Size > 100 {
				ps.Pagination.Size = 100
			}
			if ps.Pagination.Size < 1 {
				ps.Pagination.Size = 20
			}
		}
	}

	req, err := BuildQuery(esClient, ps)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := req.Do(ctx, esClient)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search query failed: %s", res.String())
	}

	var r map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	hits, ok := r["hits"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("search response missing hits")
	}

	total := 0.0
	if t, ok := hits["total"].(map[string]interface{}); ok {
		if v, ok := t["value"].(float64); ok {
			total = v
		}
	}
	maxScore := 0.0
	if ms, ok := hits["max_score"].(float64); ok {
		maxScore = ms
	}

	var data []map[string]interface{}
	if hitList, ok := hits["hits"].([]interface{}); ok {
		for _, hit := range hitList {
			if source, ok := hit.(map[string]interface{})["_source"].(map[string]interface{}); ok {
				data = append(data, source)
			}
		}
	}

	return &SearchResult{
		Data:      data,
		TotalHits: int64(total),
		MaxScore:  maxScore,
		Took:      time.Since(start).Milliseconds(),
	}, nil
}
