// internal/workers/data-access/query-projects/handler.go
package queryprojects

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"civicmatch-workers/internal/common/logger"
	"civicmatch-workers/internal/common/metrics"
	"civicmatch-workers/internal/models"
	"civicmatch-workers/internal/workers/data-access/query-projects/queries"
)

const (
	TaskType = "query-projects"
)

var (
	ErrQueryExecutionFailed = errors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = errors.New("QUERY_TIMEOUT")
	ErrInvalidQueryType     = errors.New("INVALID_QUERY_TYPE")
)

type Handler struct {
	config *Config
	db     *sql.DB
	cache  *redis.Client
	logger logger.Logger
}

// NewHandler wires the project query worker. cache may be nil: caching is
// an optimization, never a dependency.
func NewHandler(config *Config, db *sql.DB, cache *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		cache:  cache,
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
		errorCode := "QUERY_EXECUTION_FAILED"
		if errors.Is(err, ErrQueryTimeout) {
			errorCode = "QUERY_TIMEOUT"
		} else if errors.Is(err, ErrInvalidQueryType) {
			errorCode = "INVALID_QUERY_TYPE"
		}
		h.failJob(client, job, errorCode, err.Error())
		return err
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("input cannot be nil")
	}

	queryType := models.QueryType(input.QueryType)
	if _, exists := queries.Registry[queryType]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQueryType, input.QueryType)
	}

	// Single-project lookups are hot: the ranking flow fetches details for
	// every candidate, so they go through the cache.
	if queryType == models.QueryTypeProjectDetails {
		if cached, ok := h.cacheGet(ctx, input.ProjectID); ok {
			return &Output{Data: cached, RowCount: 1, CacheHit: true}, nil
		}
	}

	params := make(map[string]interface{})
	if input.ProjectID != "" {
		params["projectId"] = input.ProjectID
	}
	if input.City != "" {
		params["city"] = input.City
	}
	if input.AuthorID != "" {
		params["authorId"] = input.AuthorID
	}
	if input.Status != "" {
		params["status"] = input.Status
	}
	if input.Filters != nil {
		params["filters"] = input.Filters
	}

	data, rowCount, execTime, err := queries.Execute(ctx, h.db, queryType, params)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrQueryTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	if queryType == models.QueryTypeProjectDetails {
		h.cacheSet(ctx, input.ProjectID, data)
	}

	return &Output{
		Data:               data,
		RowCount:           rowCount,
		QueryExecutionTime: execTime,
	}, nil
}

func cacheKey(projectID string) string {
	return "project:details:" + projectID
}

// cacheGet reads through Redis. Any cache failure is logged and treated as
// a miss.
func (h *Handler) cacheGet(ctx context.Context, projectID string) (interface{}, bool) {
	if h.cache == nil || projectID == "" {
		return nil, false
	}

	raw, err := h.cache.Get(ctx, cacheKey(projectID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("cache read failed", map[string]interface{}{
				"projectId": projectID,
				"error":     err.Error(),
			})
		}
		return nil, false
	}

	var data interface{}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		h.logger.Warn("cache entry corrupt, ignoring", map[string]interface{}{
			"projectId": projectID,
		})
		return nil, false
	}
	return data, true
}

func (h *Handler) cacheSet(ctx context.Context, projectID string, data interface{}) {
	if h.cache == nil || projectID == "" {
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, cacheKey(projectID), raw, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("cache write failed", map[string]interface{}{
			"projectId": projectID,
			"error":     err.Error(),
		})
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err.Error(),
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
