// internal/ranking/summary.go
package ranking

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"civicmatch-workers/internal/common/metrics"
)

// composeSummary produces the aggregate summary for a ranked set:
// oracle-backed when possible, deterministic heuristic otherwise.
func (r *Ranker) composeSummary(ctx context.Context, interests string, tokens []string, ranked []ScoredProject) string {
	top := ranked
	if len(top) > summaryTopN {
		top = top[:summaryTopN]
	}

	callCtx, cancel := context.WithTimeout(ctx, r.config.OracleTimeout)
	defer cancel()

	if s, err := r.oracle.Summarize(callCtx, interests, top); err == nil {
		r.recordCall(ctx, "summarize", "ok")
		// Collapse newlines and runs of whitespace to single spaces.
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			return truncate(s, maxSummaryLen)
		}
	} else {
		metrics.OracleFallbacks.WithLabelValues("summarize").Inc()
		r.recordCall(ctx, "summarize", "fallback")
		r.logger.Debug("oracle summary failed, using heuristic", map[string]interface{}{
			"kind": string(OracleErrorKindOf(err)),
		})
	}

	return heuristicSummary(tokens, ranked)
}

func heuristicSummary(tokens []string, ranked []ScoredProject) string {
	counts := make(map[string]int, len(tokens))
	for _, sp := range ranked {
		haystack := strings.ToLower(strings.Join([]string{
			sp.Project.Name(),
			sp.Project.Description(),
			sp.Project.City(),
			sp.Project.Location(),
		}, " "))
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				counts[tok]++
			}
		}
	}

	themes := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if counts[tok] > 0 {
			themes = append(themes, tok)
		}
	}
	// Frequency descending; the stable sort keeps first-seen token order
	// for ties.
	sort.SliceStable(themes, func(i, j int) bool {
		return counts[themes[i]] > counts[themes[j]]
	})
	if len(themes) > summaryTopN {
		themes = themes[:summaryTopN]
	}

	names := make([]string, 0, summaryTopNames)
	for _, sp := range ranked {
		if len(names) >= summaryTopNames {
			break
		}
		name := sp.Project.Name()
		if name == "" {
			name = fmt.Sprintf("project_%s", sp.Project.ID())
		}
		names = append(names, name)
	}

	var out string
	if len(themes) > 0 {
		out = fmt.Sprintf("Top themes: %s. Top projects: %s.",
			strings.Join(themes, ", "), strings.Join(names, ", "))
	} else {
		out = fmt.Sprintf("Top projects: %s.", strings.Join(names, ", "))
	}
	return truncate(out, maxSummaryLen)
}
