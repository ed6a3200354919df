// internal/ranking/matcher_test.go
package ranking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"civicmatch-workers/internal/models"
)

func gardenProject() models.Project {
	return models.Project{
		"id":          "p1",
		"name":        "Urban Garden",
		"description": "A community garden for the neighborhood",
		"city":        "Boston",
		"status":      "active",
	}
}

func TestHeuristicExplanationTokenMatches(t *testing.T) {
	tokens := Tokenize("garden, community projects")
	got := HeuristicExplanation(tokens, gardenProject())
	assert.Equal(t, "Matches interests: mentions garden, community.", got)
}

func TestHeuristicExplanationCityFallback(t *testing.T) {
	tokens := Tokenize("robotics")
	got := HeuristicExplanation(tokens, gardenProject())
	assert.Equal(t, "Relevant to interests and located in Boston.", got)
}

func TestHeuristicExplanationStatusFallback(t *testing.T) {
	project := models.Project{
		"name":        "Night Shelter",
		"description": "Overnight housing support",
		"status":      "planning",
	}
	got := HeuristicExplanation(Tokenize("robotics"), project)
	assert.Equal(t, "Relevant project in status 'planning'.", got)
}

func TestHeuristicExplanationGenericFallback(t *testing.T) {
	project := models.Project{
		"name":        "Night Shelter",
		"description": "Overnight housing support",
	}
	got := HeuristicExplanation(Tokenize("robotics"), project)
	assert.Equal(t, "Relevant to the requested interests.", got)
}

func TestHeuristicExplanationCapsMatchedTokens(t *testing.T) {
	project := models.Project{
		"name":        "Everything Hub",
		"description": "garden park trees river cleanup recycling solar",
	}
	tokens := Tokenize("garden park trees river cleanup recycling solar")
	got := HeuristicExplanation(tokens, project)
	assert.Equal(t, "Matches interests: mentions garden, park, trees, river, cleanup.", got)
}

func TestHeuristicExplanationNeverExceedsCap(t *testing.T) {
	project := models.Project{
		"name":        "Long City",
		"city":        strings.Repeat("verylongcityname", 30),
		"description": "unrelated",
	}
	got := HeuristicExplanation(Tokenize("robotics"), project)
	assert.LessOrEqual(t, len([]rune(got)), 200)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestHeuristicExplanationMatchesAreCaseInsensitive(t *testing.T) {
	project := models.Project{
		"name":        "GARDEN Collective",
		"description": "",
	}
	got := HeuristicExplanation(Tokenize("Garden"), project)
	assert.Equal(t, "Matches interests: mentions garden.", got)
}
