// internal/workers/feedback/analyze-project/models.go
package analyzeproject

import "civicmatch-workers/internal/models"

type Input struct {
	Project models.Project `json:"project"`
}

// Output is the structured analysis of one project. The error fallbacks
// keep the shape intact: a failed analysis is still a valid Output.
type Output struct {
	Summary       string   `json:"summary"`
	MissingPoints []string `json:"missing_points"`
	Suggestions   []string `json:"suggestions"`
}
