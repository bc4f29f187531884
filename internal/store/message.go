package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertMessage inserts or updates a message (idempotent on id).
func (db *DB) UpsertMessage(m *Message) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = conn.Exec(`
		INSERT INTO messages (id, chat_id, sender_id, text, image_ref, audio_ref, status, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			image_ref = excluded.image_ref,
			audio_ref = excluded.audio_ref,
			status = excluded.status`,
		m.ID, m.ChatID, m.SenderID, m.Text, m.ImageRef, m.AudioRef, m.Status, m.Timestamp, now)
	return err
}

// GetMessage returns a single message by id, or nil if absent.
func (db *DB) GetMessage(id string) (*Message, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	var m Message
	err = conn.QueryRow(`
		SELECT id, chat_id, sender_id, text, image_ref, audio_ref, status, timestamp
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.ImageRef, &m.AudioRef, &m.Status, &m.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns messages for a chat using keyset pagination by timestamp,
// newest first.
func (db *DB) ListMessages(chatID string, beforeTs int64, limit int) ([]Message, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	if beforeTs <= 0 {
		beforeTs = time.Now().UnixMilli() + 1
	}
	rows, err := conn.Query(`
		SELECT id, chat_id, sender_id, text, image_ref, audio_ref, status, timestamp
		FROM messages
		WHERE chat_id = ? AND timestamp < ?
		ORDER BY timestamp DESC
		LIMIT ?`, chatID, beforeTs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.ImageRef, &m.AudioRef, &m.Status, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// SetMessageStatus updates only the status of a message.
func (db *DB) SetMessageStatus(id, status string) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`UPDATE messages SET status = ? WHERE id = ?`, status, id)
	return err
}

// ReplaceMessageID migrates a message from its temporary local id to the
// canonical remote id, updating every row that references the old id in one
// transaction. It also applies the given status. Safe to re-run: once the old
// id is gone the statement set matches nothing.
func (db *DB) ReplaceMessageID(oldID, newID, status string) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE messages SET id = ?, status = ? WHERE id = ?`, newID, status, oldID); err != nil {
		return fmt.Errorf("migrate message id: %w", err)
	}
	if _, err := tx.Exec(`UPDATE reactions SET message_id = ? WHERE message_id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("migrate reaction refs: %w", err)
	}
	if _, err := tx.Exec(`UPDATE pending_reactions SET message_id = ? WHERE message_id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("migrate pending reaction refs: %w", err)
	}
	if _, err := tx.Exec(`UPDATE pending_read_receipts SET entity_id = ? WHERE entity_id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("migrate pending receipt refs: %w", err)
	}
	if _, err := tx.Exec(`UPDATE user_read_status SET last_read_entity_id = ? WHERE last_read_entity_id = ?`, newID, oldID); err != nil {
		return fmt.Errorf("migrate read status refs: %w", err)
	}

	return tx.Commit()
}
