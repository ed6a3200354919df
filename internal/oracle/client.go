// internal/oracle/client.go
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	commonhttp "civicmatch-workers/internal/common/http"
	"civicmatch-workers/internal/common/logger"
	"civicmatch-workers/internal/common/metrics"
	"civicmatch-workers/internal/models"
	"civicmatch-workers/internal/ranking"
)

// Config holds the generative API settings.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

// Client adapts a hosted generative model behind the ranking.Oracle
// interface. Every call is a single attempt: callers own fallback policy,
// so the client never retries on its own.
type Client struct {
	config Config
	http   *commonhttp.Client
	logger logger.Logger
}

// NewClient builds the adapter. A missing API key or base URL is not an
// error: the client starts in a degraded mode where every call fails with
// the unavailable kind and callers fall back to heuristics.
func NewClient(cfg Config, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	return &Client{
		config: cfg,
		// No client-level timeout: the per-call context owns the deadline.
		http:   commonhttp.NewClient(0),
		logger: log.WithFields(map[string]interface{}{"component": "oracle"}),
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.config.APIKey != "" && c.config.BaseURL != ""
}

var errNotConfigured = errors.New("generative API key or base URL not configured")

// --- ranking.Oracle implementation ---

// Score asks the model to rate the project match as a bare integer 1-10.
func (c *Client) Score(ctx context.Context, interests string, project models.Project) (int, error) {
	prompt := buildScorePrompt(interests, project)

	text, err := c.Generate(ctx, prompt, c.config.Temperature)
	if err != nil {
		metrics.OracleCalls.WithLabelValues("score", string(ranking.OracleErrorKindOf(err))).Inc()
		return 0, err
	}

	score, convErr := strconv.Atoi(strings.TrimSpace(text))
	if convErr != nil {
		metrics.OracleCalls.WithLabelValues("score", string(ranking.OracleMalformed)).Inc()
		return 0, ranking.NewOracleError(ranking.OracleMalformed,
			fmt.Errorf("score is not an integer: %q", text))
	}
	if score < 0 || score > ranking.MaxScore {
		metrics.OracleCalls.WithLabelValues("score", string(ranking.OracleMalformed)).Inc()
		return 0, ranking.NewOracleError(ranking.OracleMalformed,
			fmt.Errorf("score %d outside 0-%d", score, ranking.MaxScore))
	}

	metrics.OracleCalls.WithLabelValues("score", "ok").Inc()
	return score, nil
}

// Explain asks the model for a one-sentence justification of the match.
func (c *Client) Explain(ctx context.Context, interests string, project models.Project) (string, error) {
	prompt := buildExplainPrompt(interests, project)

	text, err := c.Generate(ctx, prompt, c.config.Temperature)
	if err != nil {
		metrics.OracleCalls.WithLabelValues("explain", string(ranking.OracleErrorKindOf(err))).Inc()
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		metrics.OracleCalls.WithLabelValues("explain", string(ranking.OracleMalformed)).Inc()
		return "", ranking.NewOracleError(ranking.OracleMalformed, errors.New("empty explanation"))
	}

	metrics.OracleCalls.WithLabelValues("explain", "ok").Inc()
	return text, nil
}

// Summarize asks the model for a short digest of the top ranked projects.
func (c *Client) Summarize(ctx context.Context, interests string, top []ranking.ScoredProject) (string, error) {
	prompt := buildSummaryPrompt(interests, top)

	text, err := c.Generate(ctx, prompt, c.config.Temperature)
	if err != nil {
		metrics.OracleCalls.WithLabelValues("summarize", string(ranking.OracleErrorKindOf(err))).Inc()
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		metrics.OracleCalls.WithLabelValues("summarize", string(ranking.OracleMalformed)).Inc()
		return "", ranking.NewOracleError(ranking.OracleMalformed, errors.New("empty summary"))
	}

	metrics.OracleCalls.WithLabelValues("summarize", "ok").Inc()
	return text, nil
}

// --- raw generation ---

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate performs one generateContent call and returns the raw text of
// the first candidate. All failures come back as *ranking.OracleError.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	if !c.Configured() {
		return "", ranking.NewOracleError(ranking.OracleUnavailable, errNotConfigured)
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		Config:   genConfig{Temperature: temperature},
	})
	if err != nil {
		return "", ranking.NewOracleError(ranking.OracleTransport, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(c.config.BaseURL, "/"), c.config.Model, c.config.APIKey)

	start := time.Now()
	resp, err := c.http.PostJSON(ctx, url, body)
	if err != nil {
		c.logger.Debug("oracle request failed", map[string]interface{}{
			"model":      c.config.Model,
			"durationMs": time.Since(start).Milliseconds(),
			"error":      err.Error(),
		})
		return "", ranking.NewOracleError(ranking.OracleTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ranking.NewOracleError(ranking.OracleUnavailable,
			fmt.Errorf("authentication rejected: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", ranking.NewOracleError(ranking.OracleTransport,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ranking.NewOracleError(ranking.OracleTransport, err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return "", ranking.NewOracleError(ranking.OracleMalformed, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ranking.NewOracleError(ranking.OracleMalformed, errors.New("no candidates in response"))
	}

	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// --- prompts ---

func buildScorePrompt(interests string, project models.Project) string {
	var b strings.Builder
	b.WriteString("Rate how well this civic project matches the user's interests on a scale of 1 to 10.\n")
	b.WriteString("Reply with a single integer and nothing else.\n\n")
	fmt.Fprintf(&b, "User interests: %s\n\n", interests)
	writeProjectBlock(&b, project)
	return b.String()
}

func buildExplainPrompt(interests string, project models.Project) string {
	var b strings.Builder
	b.WriteString("In one short sentence, explain why this civic project is relevant to the user's interests.\n")
	b.WriteString("Reply with the sentence only, no preamble.\n\n")
	fmt.Fprintf(&b, "User interests: %s\n\n", interests)
	writeProjectBlock(&b, project)
	return b.String()
}

func buildSummaryPrompt(interests string, top []ranking.ScoredProject) string {
	var b strings.Builder
	b.WriteString("Write a short summary (at most two sentences) of the best matching civic projects for the user.\n")
	b.WriteString("Mention common themes and the strongest projects. Reply with the summary only.\n\n")
	fmt.Fprintf(&b, "User interests: %s\n\nTop projects:\n", interests)
	for _, sp := range top {
		fmt.Fprintf(&b, "- [%s] %s (score %d)\n", sp.Project.ID(), sp.Project.Name(), sp.Score)
	}
	return b.String()
}

func writeProjectBlock(b *strings.Builder, project models.Project) {
	fmt.Fprintf(b, "Project name: %s\n", project.Name())
	fmt.Fprintf(b, "Description: %s\n", project.Description())
	if city := project.City(); city != "" {
		fmt.Fprintf(b, "City: %s\n", city)
	}
	if status := project.Status(); status != "" {
		fmt.Fprintf(b, "Status: %s\n", status)
	}
}
