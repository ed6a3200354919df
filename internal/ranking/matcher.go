// internal/ranking/matcher.go
package ranking

import (
	"fmt"
	"strings"

	"civicmatch-workers/internal/models"
)

// HeuristicExplanation produces a deterministic match explanation without any
// oracle round-trip. Tier order: token matches, then city, then status, then
// a generic line. Never returns an empty string and never exceeds the
// explanation length cap.
func HeuristicExplanation(tokens []string, project models.Project) string {
	haystack := strings.ToLower(strings.Join([]string{
		project.Name(),
		project.Description(),
		project.City(),
		project.Location(),
	}, " "))

	var matches []string
	recorded := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if len(matches) >= maxMatches {
			break
		}
		if recorded[tok] {
			continue
		}
		if strings.Contains(haystack, tok) {
			recorded[tok] = true
			matches = append(matches, tok)
		}
	}

	var out string
	switch {
	case len(matches) > 0:
		out = fmt.Sprintf("Matches interests: mentions %s.", strings.Join(matches, ", "))
	case project.City() != "":
		out = fmt.Sprintf("Relevant to interests and located in %s.", project.City())
	case project.Status() != "":
		out = fmt.Sprintf("Relevant project in status '%s'.", project.Status())
	default:
		out = "Relevant to the requested interests."
	}

	if out == "" {
		name := project.Name()
		desc := project.Description()
		switch {
		case name != "" && desc != "":
			out = name + ": " + truncate(desc, 100)
		case name != "":
			out = name
		default:
			out = "Relevant to the requested interests."
		}
	}

	return truncate(out, maxExplanationLen)
}
