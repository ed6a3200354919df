// internal/ranking/ranker_test.go
package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicmatch-workers/internal/common/logger"
	"civicmatch-workers/internal/models"
)

// stubOracle lets each test script the three capabilities independently.
type stubOracle struct {
	score     func(project models.Project) (int, error)
	explain   func(project models.Project) (string, error)
	summarize func(top []ScoredProject) (string, error)
}

func (s *stubOracle) Score(_ context.Context, _ string, p models.Project) (int, error) {
	if s.score == nil {
		return 0, NewOracleError(OracleUnavailable, errors.New("no score stub"))
	}
	return s.score(p)
}

func (s *stubOracle) Explain(_ context.Context, _ string, p models.Project) (string, error) {
	if s.explain == nil {
		return "", NewOracleError(OracleUnavailable, errors.New("no explain stub"))
	}
	return s.explain(p)
}

func (s *stubOracle) Summarize(_ context.Context, _ string, top []ScoredProject) (string, error) {
	if s.summarize == nil {
		return "", NewOracleError(OracleUnavailable, errors.New("no summarize stub"))
	}
	return s.summarize(top)
}

func testProjects() []models.Project {
	return []models.Project{
		{"id": "p1", "name": "Urban Garden", "description": "community garden", "city": "Boston"},
		{"id": "p2", "name": "Bike Lanes", "description": "cycling infrastructure", "city": "Boston"},
		{"id": "p3", "name": "River Cleanup", "description": "cleanup of the river banks", "city": "Cambridge"},
	}
}

func TestRankPreservesLength(t *testing.T) {
	r := NewRanker(Disabled(), Config{}, logger.NewTestLogger(t))

	projects := testProjects()
	result, err := r.Rank(context.Background(), projects, "garden cleanup")
	require.NoError(t, err)
	assert.Len(t, result.Ranked, len(projects))
}

func TestRankSortsByScoreDescending(t *testing.T) {
	oracle := &stubOracle{
		score: func(p models.Project) (int, error) {
			switch p.ID() {
			case "p1":
				return 3, nil
			case "p2":
				return 9, nil
			default:
				return 6, nil
			}
		},
		explain: func(p models.Project) (string, error) { return "scripted", nil },
	}
	r := NewRanker(oracle, Config{}, logger.NewTestLogger(t))

	result, err := r.Rank(context.Background(), testProjects(), "anything at all")
	require.NoError(t, err)

	require.Len(t, result.Ranked, 3)
	assert.Equal(t, "p2", result.Ranked[0].Project.ID())
	assert.Equal(t, "p3", result.Ranked[1].Project.ID())
	assert.Equal(t, "p1", result.Ranked[2].Project.ID())
}

func TestRankTieBreakIsInputOrder(t *testing.T) {
	oracle := &stubOracle{
		score: func(p models.Project) (int, error) {
			if p.ID() == "p3" {
				return 9, nil
			}
			return 5, nil
		},
		explain: func(p models.Project) (string, error) { return "scripted", nil },
	}
	r := NewRanker(oracle, Config{}, logger.NewTestLogger(t))

	result, err := r.Rank(context.Background(), testProjects(), "whatever")
	require.NoError(t, err)

	// p3 wins, then p1 and p2 keep their input order despite equal scores.
	assert.Equal(t, "p3", result.Ranked[0].Project.ID())
	assert.Equal(t, "p1", result.Ranked[1].Project.ID())
	assert.Equal(t, "p2", result.Ranked[2].Project.ID())
}

func TestRankOracleFailureFallsBackToHeuristic(t *testing.T) {
	r := NewRanker(Disabled(), Config{}, logger.NewTestLogger(t))

	result, err := r.Rank(context.Background(), testProjects(), "garden cleanup")
	require.NoError(t, err)

	for _, sp := range result.Ranked {
		assert.Equal(t, 0, sp.Score)
		assert.NotEmpty(t, sp.Explanation)
	}
	// p1 mentions garden, p3 mentions cleanup.
	byID := map[string]ScoredProject{}
	for _, sp := range result.Ranked {
		byID[sp.Project.ID()] = sp
	}
	assert.Equal(t, "Matches interests: mentions garden.", byID["p1"].Explanation)
	assert.Equal(t, "Matches interests: mentions cleanup.", byID["p3"].Explanation)
	assert.Equal(t, "Relevant to interests and located in Boston.", byID["p2"].Explanation)
}

func TestRankEmptyExplanationFallsBackToHeuristic(t *testing.T) {
	oracle := &stubOracle{
		score:   func(p models.Project) (int, error) { return 5, nil },
		explain: func(p models.Project) (string, error) { return "   ", nil },
	}
	r := NewRanker(oracle, Config{}, logger.NewTestLogger(t))

	result, err := r.Rank(context.Background(), testProjects()[:1], "garden")
	require.NoError(t, err)
	assert.Equal(t, "Matches interests: mentions garden.", result.Ranked[0].Explanation)
}

func TestRankClampsOutOfRangeScores(t *testing.T) {
	oracle := &stubOracle{
		score: func(p models.Project) (int, error) {
			if p.ID() == "p1" {
				return 15, nil
			}
			return -4, nil
		},
		explain: func(p models.Project) (string, error) { return "scripted", nil },
	}
	r := NewRanker(oracle, Config{}, logger.NewTestLogger(t))

	result, err := r.Rank(context.Background(), testProjects()[:2], "whatever")
	require.NoError(t, err)

	byID := map[string]int{}
	for _, sp := range result.Ranked {
		byID[sp.Project.ID()] = sp.Score
	}
	assert.Equal(t, MaxScore, byID["p1"])
	assert.Equal(t, 0, byID["p2"])
}

func TestRankTruncatesLongExplanations(t *testing.T) {
	oracle := &stubOracle{
		score:   func(p models.Project) (int, error) { return 5, nil },
		explain: func(p models.Project) (string, error) { return strings.Repeat("x", 500), nil },
	}
	r := NewRanker(oracle, Config{}, logger.NewTestLogger(t))

	result, err := r.Rank(context.Background(), testProjects()[:1], "garden")
	require.NoError(t, err)

	got := result.Ranked[0].Explanation
	assert.Len(t, []rune(got), 200)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestRankEmptyProjectList(t *testing.T) {
	r := NewRanker(Disabled(), Config{}, logger.NewTestLogger(t))

	result, err := r.Rank(context.Background(), nil, "garden")
	require.NoError(t, err)
	assert.Empty(t, result.Ranked)
	assert.Equal(t, "Top projects: .", result.Summary)
}

func TestRankCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRanker(Disabled(), Config{}, logger.NewTestLogger(t))
	_, err := r.Rank(ctx, testProjects(), "garden")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRankParallelMatchesSequential(t *testing.T) {
	mkOracle := func() Oracle {
		return &stubOracle{
			score: func(p models.Project) (int, error) {
				// Deterministic per-project score derived from the id.
				return len(p.ID()) + int(p.ID()[1]-'0'), nil
			},
			explain: func(p models.Project) (string, error) {
				return fmt.Sprintf("explanation for %s", p.ID()), nil
			},
			summarize: func(top []ScoredProject) (string, error) {
				return "scripted summary", nil
			},
		}
	}

	projects := testProjects()

	sequential := NewRanker(mkOracle(), Config{Concurrency: 1}, logger.NewTestLogger(t))
	parallel := NewRanker(mkOracle(), Config{Concurrency: 4}, logger.NewTestLogger(t))

	want, err := sequential.Rank(context.Background(), projects, "garden cleanup")
	require.NoError(t, err)

	for run := 0; run < 5; run++ {
		got, err := parallel.Rank(context.Background(), projects, "garden cleanup")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestRankSummaryUsesOracleWhenAvailable(t *testing.T) {
	oracle := &stubOracle{
		score:   func(p models.Project) (int, error) { return 5, nil },
		explain: func(p models.Project) (string, error) { return "scripted", nil },
		summarize: func(top []ScoredProject) (string, error) {
			return "Great  matches\nfor gardening.", nil
		},
	}
	r := NewRanker(oracle, Config{}, logger.NewTestLogger(t))

	result, err := r.Rank(context.Background(), testProjects(), "garden")
	require.NoError(t, err)
	// Whitespace runs collapse to single spaces.
	assert.Equal(t, "Great matches for gardening.", result.Summary)
}

func TestRankSummaryFallsBackOnOracleFailure(t *testing.T) {
	r := NewRanker(Disabled(), Config{}, logger.NewTestLogger(t))

	result, err := r.Rank(context.Background(), testProjects(), "garden cleanup")
	require.NoError(t, err)
	assert.Equal(t,
		"Top themes: garden, cleanup. Top projects: Urban Garden, Bike Lanes, River Cleanup.",
		result.Summary)
}

func TestRankSummaryTruncatedAt240(t *testing.T) {
	oracle := &stubOracle{
		score:   func(p models.Project) (int, error) { return 5, nil },
		explain: func(p models.Project) (string, error) { return "scripted", nil },
		summarize: func(top []ScoredProject) (string, error) {
			return strings.Repeat("long summary ", 50), nil
		},
	}
	r := NewRanker(oracle, Config{}, logger.NewTestLogger(t))

	result, err := r.Rank(context.Background(), testProjects(), "garden")
	require.NoError(t, err)
	assert.Len(t, []rune(result.Summary), 240)
	assert.True(t, strings.HasSuffix(result.Summary, "..."))
}

func TestRankSummarySeesAtMostTopFive(t *testing.T) {
	var observed int
	oracle := &stubOracle{
		score:   func(p models.Project) (int, error) { return 5, nil },
		explain: func(p models.Project) (string, error) { return "scripted", nil },
		summarize: func(top []ScoredProject) (string, error) {
			observed = len(top)
			return "summary", nil
		},
	}
	r := NewRanker(oracle, Config{}, logger.NewTestLogger(t))

	projects := make([]models.Project, 8)
	for i := range projects {
		projects[i] = models.Project{
			"id":   fmt.Sprintf("p%d", i+1),
			"name": fmt.Sprintf("Project %d", i+1),
		}
	}

	_, err := r.Rank(context.Background(), projects, "garden")
	require.NoError(t, err)
	assert.Equal(t, 5, observed)
}

// recordingStub collects every oracle call event the ranker emits.
type recordingStub struct {
	mu     sync.Mutex
	events map[string]int
}

func newRecordingStub() *recordingStub {
	return &recordingStub{events: map[string]int{}}
}

func (r *recordingStub) RecordOracleCall(_ context.Context, capability, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[capability+"/"+outcome]++
}

func TestRankRecordsOracleOutcomes(t *testing.T) {
	oracle := &stubOracle{
		score:   func(p models.Project) (int, error) { return 5, nil },
		explain: func(p models.Project) (string, error) { return "scripted", nil },
	}
	rec := newRecordingStub()
	r := NewRanker(oracle, Config{Recorder: rec}, logger.NewTestLogger(t))

	_, err := r.Rank(context.Background(), testProjects(), "garden cleanup")
	require.NoError(t, err)

	assert.Equal(t, 3, rec.events["score/ok"])
	assert.Equal(t, 3, rec.events["explain/ok"])
	assert.Equal(t, 1, rec.events["summarize/fallback"], "no summarize stub, heuristic summary")
	assert.Zero(t, rec.events["score/fallback"])
}

func TestRankRecordsFallbacksForDisabledOracle(t *testing.T) {
	rec := newRecordingStub()
	r := NewRanker(Disabled(), Config{Recorder: rec}, logger.NewTestLogger(t))

	projects := testProjects()
	_, err := r.Rank(context.Background(), projects, "garden cleanup")
	require.NoError(t, err)

	assert.Equal(t, len(projects), rec.events["score/fallback"])
	assert.Equal(t, len(projects), rec.events["explain/fallback"])
	assert.Equal(t, 1, rec.events["summarize/fallback"])
}
