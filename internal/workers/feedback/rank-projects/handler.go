// internal/workers/feedback/rank-projects/handler.go
package rankprojects

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"civicmatch-workers/internal/common/logger"
	"civicmatch-workers/internal/common/metrics"
	"civicmatch-workers/internal/common/validation"
	"civicmatch-workers/internal/ranking"
)

const (
	TaskType = "rank-projects"
)

type Handler struct {
	config *Config
	ranker *ranking.Ranker
	logger logger.Logger
}

// NewHandler wires the ranking engine behind the worker. A nil oracle puts
// the ranker into its heuristic-only degraded mode.
func NewHandler(config *Config, oracle ranking.Oracle, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		ranker: ranking.NewRanker(oracle, ranking.Config{
			OracleTimeout: config.OracleTimeout,
			Concurrency:   config.Concurrency,
			Recorder:      config.Recorder,
		}, log),
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
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

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, "RANKING_FAILED", err.Error())
		return err
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.ranker.Rank(ctx, input.Projects, input.Interests)
	if err != nil {
		return nil, err
	}

	output := &Output{
		RankedProjects: result.Ranked,
		Summary:        result.Summary,
	}

	// One ranked entry per input project, always.
	if len(output.RankedProjects) != len(input.Projects) {
		return nil, fmt.Errorf("ranked %d of %d projects", len(output.RankedProjects), len(input.Projects))
	}

	if err := h.validateOutput(output); err != nil {
		return nil, err
	}

	h.logger.Info("ranking completed", map[string]interface{}{
		"projectCount": len(output.RankedProjects),
		"summaryLen":   len(output.Summary),
	})

	return output, nil
}

func (h *Handler) validateOutput(output *Output) error {
	if err := validation.Require(outputSchema, output); err != nil {
		return fmt.Errorf("output violates contract: %w", err)
	}
	return nil
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

// Execute runs the ranking directly, bypassing the job plumbing.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
