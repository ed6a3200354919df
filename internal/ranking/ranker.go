// internal/ranking/ranker.go
package ranking

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"civicmatch-workers/internal/common/logger"
	"civicmatch-workers/internal/common/metrics"
	"civicmatch-workers/internal/models"
)

// CallRecorder receives one event per oracle interaction: the capability
// invoked ("score", "explain", "summarize") and the outcome ("ok" or
// "fallback"). The observability layer implements it; nil means no-op.
type CallRecorder interface {
	RecordOracleCall(ctx context.Context, capability, outcome string)
}

// Config tunes one Ranker instance.
type Config struct {
	// OracleTimeout bounds each oracle round-trip. A timed-out call is
	// treated like any other oracle failure.
	OracleTimeout time.Duration
	// Concurrency caps how many projects are scored at once. 1 means
	// sequential processing. Output is identical at any setting.
	Concurrency int
	// Recorder, when set, gets one event per oracle call.
	Recorder CallRecorder
}

// Ranker drives per-project scoring and explanation, falls back to the
// heuristic matcher on oracle failure, sorts the result and composes the
// aggregate summary.
type Ranker struct {
	oracle Oracle
	config Config
	logger logger.Logger
}

func NewRanker(oracle Oracle, config Config, log logger.Logger) *Ranker {
	if oracle == nil {
		oracle = Disabled()
	}
	if config.OracleTimeout <= 0 {
		config.OracleTimeout = 10 * time.Second
	}
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Ranker{
		oracle: oracle,
		config: config,
		logger: log.WithFields(map[string]interface{}{"component": "ranker"}),
	}
}

// Rank scores every project against the interests and returns the complete
// ranking. Oracle failures are absorbed into heuristic fallbacks; the only
// error Rank ever returns is the caller's own cancellation.
func (r *Ranker) Rank(ctx context.Context, projects []models.Project, interests string) (*RankingResult, error) {
	tokens := Tokenize(interests)

	ranked := make([]ScoredProject, len(projects))
	if r.config.Concurrency > 1 && len(projects) > 1 {
		r.rankParallel(ctx, projects, interests, tokens, ranked)
	} else {
		for i, p := range projects {
			if ctx.Err() != nil {
				break
			}
			ranked[i] = r.scoreOne(ctx, interests, tokens, p)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stable sort keeps input order as the tie-break for equal scores,
	// regardless of which goroutine finished first.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	summary := r.composeSummary(ctx, interests, tokens, ranked)

	return &RankingResult{Ranked: ranked, Summary: summary}, nil
}

func (r *Ranker) rankParallel(ctx context.Context, projects []models.Project, interests string, tokens []string, ranked []ScoredProject) {
	workers := r.config.Concurrency
	if workers > len(projects) {
		workers = len(projects)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Results land in the slot of the original input
				// index, never in completion order.
				ranked[i] = r.scoreOne(ctx, interests, tokens, projects[i])
			}
		}()
	}

feed:
	for i := range projects {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}

func (r *Ranker) scoreOne(ctx context.Context, interests string, tokens []string, project models.Project) ScoredProject {
	score := r.oracleScore(ctx, interests, project)
	explanation := r.oracleExplanation(ctx, interests, project)
	if explanation == "" {
		explanation = HeuristicExplanation(tokens, project)
	}

	return ScoredProject{
		Project:     project,
		Score:       score,
		Explanation: truncate(explanation, maxExplanationLen),
	}
}

func (r *Ranker) recordCall(ctx context.Context, capability, outcome string) {
	if r.config.Recorder != nil {
		r.config.Recorder.RecordOracleCall(ctx, capability, outcome)
	}
}

func (r *Ranker) oracleScore(ctx context.Context, interests string, project models.Project) int {
	callCtx, cancel := context.WithTimeout(ctx, r.config.OracleTimeout)
	defer cancel()

	score, err := r.oracle.Score(callCtx, interests, project)
	if err != nil {
		metrics.OracleFallbacks.WithLabelValues("score").Inc()
		r.recordCall(ctx, "score", "fallback")
		r.logger.Debug("oracle score failed, using 0", map[string]interface{}{
			"projectId": project.ID(),
			"kind":      string(OracleErrorKindOf(err)),
		})
		return 0
	}
	r.recordCall(ctx, "score", "ok")
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func (r *Ranker) oracleExplanation(ctx context.Context, interests string, project models.Project) string {
	callCtx, cancel := context.WithTimeout(ctx, r.config.OracleTimeout)
	defer cancel()

	explanation, err := r.oracle.Explain(callCtx, interests, project)
	if err != nil {
		metrics.OracleFallbacks.WithLabelValues("explain").Inc()
		r.recordCall(ctx, "explain", "fallback")
		r.logger.Debug("oracle explain failed, using heuristic", map[string]interface{}{
			"projectId": project.ID(),
			"kind":      string(OracleErrorKindOf(err)),
		})
		return ""
	}
	r.recordCall(ctx, "explain", "ok")
	return strings.TrimSpace(explanation)
}
