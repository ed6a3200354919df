// internal/workers/feedback/rank-projects/handler_test.go
package rankprojects

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicmatch-workers/internal/common/logger"
	"civicmatch-workers/internal/models"
	"civicmatch-workers/internal/ranking"
)

func createTestConfig() *Config {
	return &Config{
		Timeout:       5 * time.Second,
		OracleTimeout: time.Second,
		Concurrency:   1,
	}
}

func createTestInput() *Input {
	return &Input{
		Interests: "community gardens and urban farming",
		Projects: []models.Project{
			{"id": "p1", "name": "Urban Garden", "description": "community garden downtown", "city": "Boston"},
			{"id": "p2", "name": "Bike Lanes", "description": "cycling infrastructure", "city": "Boston"},
			{"id": "p3", "name": "Rooftop Farming", "description": "urban farming on rooftops", "city": "Cambridge"},
		},
	}
}

// scriptedOracle returns fixed scores keyed by project id.
type scriptedOracle struct {
	scores map[string]int
}

func (o *scriptedOracle) Score(_ context.Context, _ string, p models.Project) (int, error) {
	if s, ok := o.scores[p.ID()]; ok {
		return s, nil
	}
	return 0, ranking.NewOracleError(ranking.OracleTransport, errors.New("no score"))
}

func (o *scriptedOracle) Explain(_ context.Context, _ string, p models.Project) (string, error) {
	return "scripted explanation for " + p.ID(), nil
}

func (o *scriptedOracle) Summarize(_ context.Context, _ string, _ []ranking.ScoredProject) (string, error) {
	return "scripted summary", nil
}

func TestExecuteDegradedMode(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, logger.NewTestLogger(t))

	input := createTestInput()
	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Len(t, output.RankedProjects, len(input.Projects))
	for _, sp := range output.RankedProjects {
		assert.Equal(t, 0, sp.Score)
		assert.NotEmpty(t, sp.Explanation)
	}
	assert.NotEmpty(t, output.Summary)
}

func TestExecuteOrdersByOracleScore(t *testing.T) {
	oracle := &scriptedOracle{scores: map[string]int{"p1": 6, "p2": 2, "p3": 9}}
	h := NewHandler(createTestConfig(), oracle, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	require.Len(t, output.RankedProjects, 3)
	assert.Equal(t, "p3", output.RankedProjects[0].Project.ID())
	assert.Equal(t, "p1", output.RankedProjects[1].Project.ID())
	assert.Equal(t, "p2", output.RankedProjects[2].Project.ID())
	assert.Equal(t, "scripted summary", output.Summary)
}

func TestExecuteEmptyProjectList(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), &Input{Interests: "gardens"})
	require.NoError(t, err)

	assert.Empty(t, output.RankedProjects)
	assert.Equal(t, "Top projects: .", output.Summary)
}

func TestExecuteOutputPassesSchema(t *testing.T) {
	oracle := &scriptedOracle{scores: map[string]int{"p1": 10, "p2": 0, "p3": 5}}
	h := NewHandler(createTestConfig(), oracle, logger.NewTestLogger(t))

	output, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	assert.NoError(t, h.validateOutput(output))
}

func TestValidateOutputRejectsScoreOutOfRange(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, logger.NewTestLogger(t))

	bad := &Output{
		RankedProjects: []ranking.ScoredProject{
			{Project: models.Project{"id": "p1"}, Score: 42, Explanation: "fine"},
		},
		Summary: "ok",
	}
	err := h.validateOutput(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output violates contract")
}

func TestValidateOutputRejectsEmptyExplanation(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, logger.NewTestLogger(t))

	bad := &Output{
		RankedProjects: []ranking.ScoredProject{
			{Project: models.Project{"id": "p1"}, Score: 5, Explanation: ""},
		},
		Summary: "ok",
	}
	assert.Error(t, h.validateOutput(bad))
}

func TestValidateOutputRejectsOverlongSummary(t *testing.T) {
	h := NewHandler(createTestConfig(), nil, logger.NewTestLogger(t))

	bad := &Output{
		RankedProjects: nil,
		Summary:        strings.Repeat("x", 241),
	}
	assert.Error(t, h.validateOutput(bad))
}

func TestExecuteParallelConfig(t *testing.T) {
	cfg := createTestConfig()
	cfg.Concurrency = 4
	oracle := &scriptedOracle{scores: map[string]int{"p1": 6, "p2": 2, "p3": 9}}
	h := NewHandler(cfg, oracle, logger.NewTestLogger(t))

	want, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, err := h.Execute(context.Background(), createTestInput())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
