// internal/ranking/models.go
package ranking

import "civicmatch-workers/internal/models"

const (
	MaxScore = 10

	maxExplanationLen = 200
	maxSummaryLen     = 240
	maxMatches        = 5
	summaryTopN       = 5
	summaryTopNames   = 3
)

// ScoredProject is one ranked project with its score and explanation.
type ScoredProject struct {
	Project     models.Project `json:"project"`
	Score       int            `json:"score"`
	Explanation string         `json:"match_explanation"`
}

// RankingResult is the complete outcome of one ranking run.
type RankingResult struct {
	Ranked  []ScoredProject `json:"ranked_projects"`
	Summary string          `json:"summary"`
}

// truncate limits s to max runes, replacing the tail with "..." when it has
// to cut. The marker counts against the budget, so the result is never
// longer than max.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
