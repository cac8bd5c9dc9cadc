package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocaflow/internal/logger"
)

func TestEmailServiceDisabledWithoutSender(t *testing.T) {
	svc, err := NewEmailService(context.Background(), "us-east-1", "", "VocaFlow", "http://localhost:8000", false, logger.Discard())
	require.NoError(t, err)
	assert.False(t, svc.IsEnabled())
	assert.NoError(t, svc.SendWelcomeEmail(context.Background(), "a@example.com", "Ana"))

	var nilSvc *EmailService
	assert.False(t, nilSvc.IsEnabled())
}

func TestSendWelcomeEmail(t *testing.T) {
	ses := &fakeSES{}
	svc := newEmailService(ses, "noreply@vocaflow.test", "VocaFlow", "https://vocaflow.test", logger.Discard())

	require.NoError(t, svc.SendWelcomeEmail(context.Background(), "maestra@example.com", "<Profesora>"))

	sent := ses.messages()
	require.Len(t, sent, 1)
	msg := sent[0]
	assert.Equal(t, "VocaFlow <noreply@vocaflow.test>", *msg.FromEmailAddress)
	assert.Equal(t, "Welcome to VocaFlow!", *msg.Content.Simple.Subject.Data)

	html := *msg.Content.Simple.Body.Html.Data
	assert.Contains(t, html, "&lt;Profesora&gt;", "names are escaped in HTML")
	assert.Contains(t, html, "https://vocaflow.test/login")
	assert.True(t, strings.HasPrefix(*msg.Content.Simple.Body.Text.Data, "Hi <Profesora>,"))
}

func TestSendEmailWrapsClientError(t *testing.T) {
	ses := &fakeSES{err: errors.New("MessageRejected")}
	svc := newEmailService(ses, "noreply@vocaflow.test", "", "https://vocaflow.test", logger.Discard())

	err := svc.SendSubmissionNotification(context.Background(), "t@example.com", "T", "Ana", "La familia", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t@example.com")
	assert.ErrorIs(t, err, ses.err)
}
