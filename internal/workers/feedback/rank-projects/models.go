// internal/workers/feedback/rank-projects/models.go
package rankprojects

import (
	"civicmatch-workers/internal/models"
	"civicmatch-workers/internal/ranking"
)

type Input struct {
	Interests string           `json:"interests"`
	Projects  []models.Project `json:"projects"`
}

type Output struct {
	RankedProjects []ranking.ScoredProject `json:"ranked_projects"`
	Summary        string                  `json:"summary"`
}

// outputSchema guards the worker's wire contract before job completion.
var outputSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"ranked_projects", "summary"},
	"properties": map[string]interface{}{
		"summary": map[string]interface{}{
			"type":      "string",
			"maxLength": 240,
		},
		"ranked_projects": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []string{"project", "score", "match_explanation"},
				"properties": map[string]interface{}{
					"project": map[string]interface{}{"type": "object"},
					"score": map[string]interface{}{
						"type":    "integer",
						"minimum": 0,
						"maximum": 10,
					},
					"match_explanation": map[string]interface{}{
						"type":      "string",
						"minLength": 1,
						"maxLength": 200,
					},
				},
			},
		},
	},
}
