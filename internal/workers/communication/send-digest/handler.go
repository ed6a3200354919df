// internal/workers/communication/send-digest/handler.go
package senddigest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"civicmatch-workers/internal/common/aws"
	"civicmatch-workers/internal/common/errors"
	"civicmatch-workers/internal/common/logger"
	"civicmatch-workers/internal/common/metrics"
	"civicmatch-workers/internal/models"
)

const (
	TaskType = "send-digest"
)

// Define interfaces for mocking
type EmailSender interface {
	SendText(ctx context.Context, from, to, subject, body string) (string, error)
}

type SMSSender interface {
	PublishSMS(ctx context.Context, phone, message, senderID string) (string, error)
}

type Handler struct {
	config       *Config
	db           *sql.DB
	logger       logger.Logger
	email        EmailSender
	sms          SMSSender
	errorHandler *errors.ErrorHandler
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger) (*Handler, error) {
	ctx := context.Background()
	sesClient, err := aws.NewSESClient(ctx, config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("init SES client: %w", err)
	}
	snsClient, err := aws.NewSNSClient(ctx, config.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("init SNS client: %w", err)
	}

	return NewHandlerWithClients(config, db, log, sesClient, snsClient), nil
}

// NewHandlerWithClients bypasses AWS config loading so tests can inject fakes.
func NewHandlerWithClients(config *Config, db *sql.DB, log logger.Logger, email EmailSender, sms SMSSender) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		db:           db,
		logger:       scoped,
		email:        email,
		sms:          sms,
		errorHandler: errors.NewErrorHandler(scoped),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		invalid := errors.NewInvalidInputFormatError(fmt.Sprintf("parse input: %v", err))
		h.errorHandler.HandleJobError(ctx, client, job, invalid)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeInvalidInputFormat)).Inc()
		return invalid
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCodeOf(err)).Inc()
		return err
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.RecipientID == "" {
		return nil, errors.NewInvalidInputFormatError("recipientId is required")
	}

	recipient, err := h.getRecipient(ctx, input.RecipientID)
	if err != nil {
		return nil, errors.NewRecipientNotFoundError(input.RecipientID)
	}

	digest := models.Digest{
		ID:          uuid.New().String(),
		RecipientID: recipient.ID,
		Priority:    input.Priority,
		Summary:     input.Summary,
		Status:      StatusDisabled,
		SentAt:      time.Now().UTC().Format(time.RFC3339),
	}

	if h.config.EmailEnabled && recipient.CanReceiveEmail() {
		subject, body := buildEmailContent(input)
		if _, err := h.email.SendText(ctx, h.config.FromEmail, recipient.Email, subject, body); err != nil {
			return nil, errors.NewNotificationSendFailedError(err)
		}
		digest.Channels = append(digest.Channels, "email")
	}

	// SMS is reserved for high-priority digests to keep the channel quiet.
	if h.config.SMSEnabled && recipient.CanReceiveSMS() && input.Priority == PriorityHigh {
		if _, err := h.sms.PublishSMS(ctx, recipient.Phone, buildSMSContent(input), h.config.SMSSenderID); err != nil {
			return nil, errors.NewNotificationSendFailedError(err)
		}
		digest.Channels = append(digest.Channels, "sms")
	}

	if len(digest.Channels) > 0 {
		digest.Status = StatusSent
	} else {
		h.logger.Warn("digest not delivered on any channel", map[string]interface{}{
			"recipientId":  input.RecipientID,
			"emailEnabled": h.config.EmailEnabled,
			"smsEnabled":   h.config.SMSEnabled,
		})
	}

	return &Output{
		DigestID: digest.ID,
		Status:   digest.Status,
		SentAt:   digest.SentAt,
	}, nil
}

func (h *Handler) getRecipient(ctx context.Context, recipientID string) (*models.User, error) {
	user := models.User{ID: recipientID}
	query := `SELECT email, phone FROM users WHERE id = $1`
	if err := h.db.QueryRowContext(ctx, query, recipientID).Scan(&user.Email, &user.Phone); err != nil {
		return nil, err
	}
	return &user, nil
}

// buildEmailContent renders the digest body. The summary leads, then the
// ranked projects in order with their scores.
func buildEmailContent(input *Input) (string, string) {
	subject := "Your civic project matches"

	var b strings.Builder
	b.WriteString(input.Summary)
	if len(input.RankedProjects) > 0 {
		b.WriteString("\n\nTop matches:\n")
		for i, project := range input.RankedProjects {
			fmt.Fprintf(&b, "%d. %s (score %d/10)\n", i+1, project.Name, project.Score)
		}
	}
	return subject, b.String()
}

// buildSMSContent keeps the SMS to the summary alone. The ranked list goes
// to email where there is room for it.
func buildSMSContent(input *Input) string {
	return input.Summary
}

func errorCodeOf(err error) string {
	if stdErr, ok := err.(*errors.StandardError); ok {
		return string(stdErr.Code)
	}
	return "INTERNAL_ERROR"
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
