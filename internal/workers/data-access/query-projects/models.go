// internal/workers/data-access/query-projects/models.go
package queryprojects

import "civicmatch-workers/internal/models"

type Input struct {
	QueryType string                 `json:"queryType"`
	ProjectID string                 `json:"projectId,omitempty"`
	City      string                 `json:"city,omitempty"`
	AuthorID  string                 `json:"authorId,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Filters   map[string]interface{} `json:"filters,omitempty"`
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
	CacheHit           bool        `json:"cacheHit"`
}

type QueryType = models.QueryType

var (
	QueryTypeProjectDetails   = models.QueryTypeProjectDetails
	QueryTypeProjectsByCity   = models.QueryTypeProjectsByCity
	QueryTypeProjectsByAuthor = models.QueryTypeProjectsByAuthor
	QueryTypeProjectsByStatus = models.QueryTypeProjectsByStatus
)
