// internal/workers/feedback/analyze-project/handler.go
package analyzeproject

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"civicmatch-workers/internal/common/logger"
	"civicmatch-workers/internal/common/metrics"
)

const (
	TaskType = "analyze-project"
)

// TextGenerator is the slice of the generative client this worker needs.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, temperature float64) (string, error)
}

type Handler struct {
	config    *Config
	generator TextGenerator
	logger    logger.Logger
}

func NewHandler(config *Config, generator TextGenerator, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		generator: generator,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	start := time.Now()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "INVALID_INPUT_FORMAT", fmt.Sprintf("parse input: %v", err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output := h.execute(ctx, &input)

	h.completeJob(client, job, output)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return nil
}

// execute never fails: generation or parse errors degrade into an Output
// whose summary carries the error text and whose lists are empty.
func (h *Handler) execute(ctx context.Context, input *Input) *Output {
	prompt := buildAnalysisPrompt(input)

	content, err := h.generator.Generate(ctx, prompt, h.config.Temperature)
	if err != nil {
		h.logger.Warn("analysis generation failed", map[string]interface{}{
			"projectId": input.Project.ID(),
			"error":     err.Error(),
		})
		metrics.OracleFallbacks.WithLabelValues("analyze").Inc()
		return &Output{
			Summary:       fmt.Sprintf("Error: API call failed. %v", err),
			MissingPoints: []string{},
			Suggestions:   []string{},
		}
	}

	content = strings.TrimSpace(content)
	// Models sometimes wrap the JSON in a markdown fence despite the
	// instructions.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var output Output
	if err := json.Unmarshal([]byte(content), &output); err != nil {
		h.logger.Warn("analysis response was not valid JSON", map[string]interface{}{
			"projectId": input.Project.ID(),
		})
		metrics.OracleFallbacks.WithLabelValues("analyze").Inc()
		return &Output{
			Summary:       "Error: Could not parse valid JSON analysis from AI.",
			MissingPoints: []string{},
			Suggestions:   []string{},
		}
	}

	if output.MissingPoints == nil {
		output.MissingPoints = []string{}
	}
	if output.Suggestions == nil {
		output.Suggestions = []string{}
	}

	h.logger.Info("analysis completed", map[string]interface{}{
		"projectId":     input.Project.ID(),
		"missingPoints": len(output.MissingPoints),
		"suggestions":   len(output.Suggestions),
	})

	return &output
}

func buildAnalysisPrompt(input *Input) string {
	projectJSON, _ := json.MarshalIndent(input.Project, "", "  ")

	var b strings.Builder
	b.WriteString("You are an expert project analyst.\n")
	b.WriteString("Analyze the following project data and return a JSON object with:\n")
	b.WriteString("- summary: short description of what the project is about\n")
	b.WriteString("- missing_points: list of key elements the project is missing\n")
	b.WriteString("- suggestions: list of practical improvement ideas\n\n")
	b.WriteString("Project data:\n")
	b.Write(projectJSON)
	return b.String()
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// Execute runs the analysis directly, bypassing the job plumbing.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	return h.execute(ctx, input)
}
