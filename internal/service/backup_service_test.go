package service

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRoundTrip(t *testing.T) {
	src := newFixture(t)
	teacher, classroom, assignment, student := src.enrolled(t)
	session, err := src.sessions.Start(student.ID, assignment.ID)
	require.NoError(t, err)
	_, err = src.sessions.SaveTranscript(student.ID, session.ID, Transcript{
		Messages: []TranscriptMessage{{Sender: "bot", Content: "¡Hola!"}, {Sender: "user", Content: "Buenas tardes"}},
	})
	require.NoError(t, err)
	_, err = src.sessions.Submit(context.Background(), student.ID, session.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.backup.Export(&buf))

	var decoded BackupData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, backupVersion, decoded.Version)
	assert.Len(t, decoded.Teachers, 1)
	assert.NotEmpty(t, decoded.Teachers[0].PasswordHash, "hashes survive so accounts can sign in")
	assert.Len(t, decoded.Logs, 2)

	dst := newFixture(t)
	require.NoError(t, dst.backup.ImportFromReader(bytes.NewReader(buf.Bytes()), false))

	_, err = dst.auth.LoginStudent(student.Email, "contraseña1")
	require.NoError(t, err)

	got, err := dst.classrooms.Owned(teacher.ID, classroom.ID)
	require.NoError(t, err)
	assert.Equal(t, classroom.JoinCode, got.JoinCode)

	restored, err := dst.assignments.Get(studentActor(student.ID), assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, assignment.Vocab, restored.Vocab)

	subs, err := dst.assignments.Submissions(teacher.ID, assignment.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, 2, subs[0].MessageCount)

	logs, err := dst.sessions.Logs(teacherActor(teacher.ID), session.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Buenas tardes", logs[1].Content)
}

func TestImportRefusesNonEmptyDatabase(t *testing.T) {
	src := newFixture(t)
	src.enrolled(t)
	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, src.backup.ExportToFile(path))

	dst := newFixture(t)
	dst.teacher(t, "existente@example.com")

	err := dst.backup.Import(path, false)
	assert.ErrorIs(t, err, ErrDatabaseNotEmpty)

	require.NoError(t, dst.backup.Import(path, true))
	_, err = dst.auth.LoginTeacher("existente@example.com", "contraseña1")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "forced import replaces existing accounts")
	_, err = dst.auth.LoginTeacher("maestra@example.com", "contraseña1")
	assert.NoError(t, err)
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	f := newFixture(t)
	err := f.backup.ImportFromReader(bytes.NewReader([]byte(`{"version":"9.9"}`)), false)
	assert.ErrorContains(t, err, "unsupported backup version")
}
