package senddigest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"civicmatch-workers/internal/common/errors"
	"civicmatch-workers/internal/common/logger"
)

type mockEmailSender struct {
	sendTextFunc func(ctx context.Context, from, to, subject, body string) (string, error)
}

func (m *mockEmailSender) SendText(ctx context.Context, from, to, subject, body string) (string, error) {
	return m.sendTextFunc(ctx, from, to, subject, body)
}

type mockSMSSender struct {
	publishFunc func(ctx context.Context, phone, message, senderID string) (string, error)
}

func (m *mockSMSSender) PublishSMS(ctx context.Context, phone, message, senderID string) (string, error) {
	return m.publishFunc(ctx, phone, message, senderID)
}

func createTestConfig() *Config {
	return &Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "digest@civicmatch.org",
		AWSRegion:    "eu-west-1",
		SMSSenderID:  "CivicMatch",
		Timeout:      30 * time.Second,
	}
}

func createTestInput() *Input {
	return &Input{
		RecipientID: "user-001",
		Priority:    "normal",
		Summary:     "Top themes: garden, cleanup. Top projects: Urban Garden, River Cleanup.",
		RankedProjects: []DigestProject{
			{Name: "Urban Garden", Score: 8},
			{Name: "River Cleanup", Score: 6},
		},
	}
}

func newDigestHandler(t *testing.T, config *Config, db *sql.DB, email EmailSender, sms SMSSender) *Handler {
	t.Helper()
	log := logger.NewZapAdapter(zaptest.NewLogger(t))
	return NewHandlerWithClients(config, db, log, email, sms)
}

func expectRecipient(mock sqlmock.Sqlmock, id, email, phone string) {
	mock.ExpectQuery("SELECT email, phone FROM users").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"email", "phone"}).AddRow(email, phone))
}

func TestExecuteSendsEmailDigest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectRecipient(mock, "user-001", "ana@example.org", "+351912345678")

	var capturedFrom, capturedTo, capturedSubject, capturedBody string
	email := &mockEmailSender{
		sendTextFunc: func(ctx context.Context, from, to, subject, body string) (string, error) {
			capturedFrom, capturedTo, capturedSubject, capturedBody = from, to, subject, body
			return "msg-1", nil
		},
	}
	sms := &mockSMSSender{
		publishFunc: func(ctx context.Context, phone, message, senderID string) (string, error) {
			t.Fatal("SMS must not be sent for normal priority")
			return "", nil
		},
	}

	handler := newDigestHandler(t, createTestConfig(), db, email, sms)
	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	assert.NotEmpty(t, output.SentAt)
	_, parseErr := uuid.Parse(output.DigestID)
	assert.NoError(t, parseErr)

	assert.Equal(t, "digest@civicmatch.org", capturedFrom)
	assert.Equal(t, "ana@example.org", capturedTo)
	assert.Equal(t, "Your civic project matches", capturedSubject)
	assert.Contains(t, capturedBody, "Top themes: garden, cleanup.")
	assert.Contains(t, capturedBody, "1. Urban Garden (score 8/10)")
	assert.Contains(t, capturedBody, "2. River Cleanup (score 6/10)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteHighPriorityAddsSMS(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectRecipient(mock, "user-001", "ana@example.org", "+351912345678")

	email := &mockEmailSender{
		sendTextFunc: func(ctx context.Context, from, to, subject, body string) (string, error) {
			return "msg-1", nil
		},
	}
	var capturedPhone, capturedMessage, capturedSenderID string
	sms := &mockSMSSender{
		publishFunc: func(ctx context.Context, phone, message, senderID string) (string, error) {
			capturedPhone, capturedMessage, capturedSenderID = phone, message, senderID
			return "sms-1", nil
		},
	}

	input := createTestInput()
	input.Priority = PriorityHigh

	handler := newDigestHandler(t, createTestConfig(), db, email, sms)
	output, err := handler.Execute(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, StatusSent, output.Status)
	assert.Equal(t, "+351912345678", capturedPhone)
	assert.Equal(t, input.Summary, capturedMessage)
	assert.Equal(t, "CivicMatch", capturedSenderID)
}

func TestExecuteRecipientNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectQuery("SELECT email, phone FROM users").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	handler := newDigestHandler(t, createTestConfig(), db, &mockEmailSender{}, &mockSMSSender{})

	input := createTestInput()
	input.RecipientID = "ghost"
	_, err = handler.Execute(context.Background(), input)

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeRecipientNotFound, stdErr.Code)
	assert.False(t, stdErr.Retryable)
}

func TestExecuteEmailFailureIsRetryable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectRecipient(mock, "user-001", "ana@example.org", "")

	email := &mockEmailSender{
		sendTextFunc: func(ctx context.Context, from, to, subject, body string) (string, error) {
			return "", fmt.Errorf("ses throttled")
		},
	}

	handler := newDigestHandler(t, createTestConfig(), db, email, &mockSMSSender{})
	_, err = handler.Execute(context.Background(), createTestInput())

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Greater(t, errors.GetRetryCount(stdErr.Code), 0)
}

func TestExecuteAllChannelsDisabled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	expectRecipient(mock, "user-001", "ana@example.org", "+351912345678")

	config := createTestConfig()
	config.EmailEnabled = false
	config.SMSEnabled = false

	handler := newDigestHandler(t, config, db, &mockEmailSender{}, &mockSMSSender{})
	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, output.Status)
}

func TestExecuteMissingRecipientID(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	handler := newDigestHandler(t, createTestConfig(), db, &mockEmailSender{}, &mockSMSSender{})

	input := createTestInput()
	input.RecipientID = ""
	_, err = handler.Execute(context.Background(), input)

	require.Error(t, err)
	stdErr, ok := err.(*errors.StandardError)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidInputFormat, stdErr.Code)
}

func TestBuildEmailContentWithoutProjects(t *testing.T) {
	input := &Input{Summary: "Top projects: ."}
	subject, body := buildEmailContent(input)

	assert.Equal(t, "Your civic project matches", subject)
	assert.Equal(t, "Top projects: .", body)
}
