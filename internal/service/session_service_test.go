package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocaflow/internal/models"
	"vocaflow/internal/validation"
)

func TestStartSessionRequiresEnrollment(t *testing.T) {
	f := newFixture(t)
	_, _, assignment, student := f.enrolled(t)
	outsider := f.student(t, "otro@example.com")

	first, err := f.sessions.Start(student.ID, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, first.AttemptNumber)
	assert.False(t, first.Completed)

	second, err := f.sessions.Start(student.ID, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNumber)

	_, err = f.sessions.Start(outsider.ID, assignment.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSaveTranscript(t *testing.T) {
	f := newFixture(t)
	teacher, _, assignment, student := f.enrolled(t)
	fixed := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	f.sessions.now = func() time.Time { return fixed }

	session, err := f.sessions.Start(student.ID, assignment.ID)
	require.NoError(t, err)

	sent := fixed.Add(-2 * time.Minute)
	saved, err := f.sessions.SaveTranscript(student.ID, session.ID, Transcript{
		Messages: []TranscriptMessage{
			{Sender: "bot", Content: "¡Hola! ¿Qué quieres comprar hoy?", Timestamp: &sent},
			{Sender: "USER", Content: "Quiero manzanas."},
			{Sender: "user", Content: "   "},
		},
		TranscriptUsed: true,
	})
	require.NoError(t, err)
	assert.True(t, saved.Completed, "completed defaults to true")
	assert.Equal(t, 2, saved.MessageCount, "blank lines are dropped")
	assert.True(t, saved.TranscriptUsed)
	assert.False(t, saved.VoiceUsed)
	require.NotNil(t, saved.EndTime)
	assert.True(t, saved.EndTime.Equal(fixed))

	logs, err := f.sessions.Logs(teacherActor(teacher.ID), session.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, models.SenderBot, logs[0].MessageType)
	assert.True(t, logs[0].Timestamp.Equal(sent))
	assert.Equal(t, models.SenderUser, logs[1].MessageType)

	notDone := false
	saved, err = f.sessions.SaveTranscript(student.ID, session.ID, Transcript{
		Messages:  []TranscriptMessage{{Sender: "bot", Content: "¡Adiós!"}},
		VoiceUsed: true,
		Completed: &notDone,
	})
	require.NoError(t, err)
	assert.False(t, saved.Completed)
	assert.Equal(t, 3, saved.MessageCount, "count covers the whole log")
	assert.True(t, saved.VoiceUsed)
	assert.True(t, saved.TranscriptUsed, "flags are never cleared")
}

func TestSaveTranscriptRejectsUnknownSender(t *testing.T) {
	f := newFixture(t)
	_, _, assignment, student := f.enrolled(t)
	session, err := f.sessions.Start(student.ID, assignment.ID)
	require.NoError(t, err)

	_, err = f.sessions.SaveTranscript(student.ID, session.ID, Transcript{
		Messages: []TranscriptMessage{{Sender: "system", Content: "hola"}},
	})
	var verr validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "sender", verr.Field)

	logs, err := f.sessions.Logs(studentActor(student.ID), session.ID)
	require.NoError(t, err)
	assert.Empty(t, logs, "nothing is written on rejection")
}

func TestSessionAccess(t *testing.T) {
	f := newFixture(t)
	teacher, _, assignment, student := f.enrolled(t)
	classmate := f.student(t, "luis@example.com")
	otherTeacher := f.teacher(t, "otra@example.com")

	session, err := f.sessions.Start(student.ID, assignment.ID)
	require.NoError(t, err)

	tests := []struct {
		name    string
		actor   Actor
		wantErr error
	}{
		{name: "owner", actor: studentActor(student.ID)},
		{name: "classroom teacher", actor: teacherActor(teacher.ID)},
		{name: "another student", actor: studentActor(classmate.ID), wantErr: ErrForbidden},
		{name: "another teacher", actor: teacherActor(otherTeacher.ID), wantErr: ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.sessions.Get(tt.actor, session.ID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	count := 4
	_, err = f.sessions.Update(classmate.ID, session.ID, models.SessionUpdate{MessageCount: &count})
	assert.ErrorIs(t, err, ErrForbidden)

	negative := -1
	_, err = f.sessions.Update(student.ID, session.ID, models.SessionUpdate{MessageCount: &negative})
	assert.Error(t, err)

	updated, err := f.sessions.Update(student.ID, session.ID, models.SessionUpdate{MessageCount: &count})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.MessageCount)
}

func TestSubmitSession(t *testing.T) {
	f := newFixture(t)
	teacher, _, assignment, student := f.enrolled(t)
	ctx := context.Background()

	first, err := f.sessions.Start(student.ID, assignment.ID)
	require.NoError(t, err)
	second, err := f.sessions.Start(student.ID, assignment.ID)
	require.NoError(t, err)

	_, err = f.sessions.Submit(ctx, student.ID, first.ID)
	require.NoError(t, err)
	submitted, err := f.sessions.Submit(ctx, student.ID, second.ID)
	require.NoError(t, err)
	assert.True(t, submitted.SubmittedForGrading)

	subs, err := f.assignments.Submissions(teacher.ID, assignment.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1, "one submitted attempt per student")
	assert.Equal(t, second.ID, subs[0].ID)

	// welcome email plus one notification per submission
	sent := f.ses.messages()
	require.Len(t, sent, 3)
	last := sent[2]
	assert.Equal(t, []string{teacher.Email}, last.Destination.ToAddresses)
	assert.Contains(t, *last.Content.Simple.Subject.Data, assignment.Title)
	assert.Contains(t, *last.Content.Simple.Body.Text.Data, "/sessions/"+second.ID)
}

func TestSubmitSurvivesEmailFailure(t *testing.T) {
	f := newFixture(t)
	_, _, assignment, student := f.enrolled(t)
	f.ses.err = errors.New("throttled")

	session, err := f.sessions.Start(student.ID, assignment.ID)
	require.NoError(t, err)

	submitted, err := f.sessions.Submit(context.Background(), student.ID, session.ID)
	require.NoError(t, err)
	assert.True(t, submitted.SubmittedForGrading)
}
