package repository

import (
	"fmt"
	"time"

	"vocaflow/internal/database"
	"vocaflow/internal/models"
)

// ConversationLogRepository handles the append-only conversation log
type ConversationLogRepository struct {
	db *database.DB
}

// NewConversationLogRepository creates a new conversation log repository
func NewConversationLogRepository(db *database.DB) *ConversationLogRepository {
	return &ConversationLogRepository{db: db}
}

// Append adds one message to a session's log
func (r *ConversationLogRepository) Append(sessionID, messageType, content string, timestamp time.Time) (*models.ConversationLog, error) {
	return appendLog(r.db, sessionID, messageType, content, timestamp)
}

// AppendAll adds messages to a session's log in one transaction, keeping their order
func (r *ConversationLogRepository) AppendAll(sessionID string, entries []models.ConversationLog) ([]models.ConversationLog, error) {
	saved := make([]models.ConversationLog, 0, len(entries))
	err := r.db.WithTx(func(tx *database.Tx) error {
		for _, entry := range entries {
			log, err := appendLog(tx, sessionID, entry.MessageType, entry.Content, entry.Timestamp)
			if err != nil {
				return err
			}
			saved = append(saved, *log)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func appendLog(q database.DBTX, sessionID, messageType, content string, timestamp time.Time) (*models.ConversationLog, error) {
	now := time.Now().UTC()
	if timestamp.IsZero() {
		timestamp = now
	}

	id, err := q.ExecReturningID(`
		INSERT INTO conversation_logs (session_id, message_type, content, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, messageType, content, timestamp.UTC(), now)
	if err != nil {
		return nil, fmt.Errorf("failed to append conversation log: %w", err)
	}

	return &models.ConversationLog{
		ID:          id,
		SessionID:   sessionID,
		MessageType: messageType,
		Content:     content,
		Timestamp:   timestamp.UTC(),
		CreatedAt:   now,
	}, nil
}

// ListBySession retrieves a session's log in conversation order
func (r *ConversationLogRepository) ListBySession(sessionID string) ([]models.ConversationLog, error) {
	query := `
		SELECT id, session_id, message_type, content, timestamp, created_at
		FROM conversation_logs
		WHERE session_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation logs: %w", err)
	}
	defer rows.Close()

	logs := []models.ConversationLog{}
	for rows.Next() {
		var log models.ConversationLog
		if err := rows.Scan(
			&log.ID,
			&log.SessionID,
			&log.MessageType,
			&log.Content,
			&log.Timestamp,
			&log.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversation logs: %w", err)
	}

	return logs, nil
}
