package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertChat inserts or updates a chat record. Last-message fields only move
// forward: an older preview never overwrites a newer one. Sparse writers that
// only touch the preview never clear the stored name or group flag.
func (db *DB) UpsertChat(c *Chat) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = conn.Exec(`
		INSERT INTO chats (id, name, is_group, unread_count, last_message_at, last_message_preview, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE chats.name END,
			is_group = CASE WHEN excluded.is_group THEN 1 ELSE chats.is_group END,
			last_message_at = MAX(chats.last_message_at, excluded.last_message_at),
			last_message_preview = CASE WHEN excluded.last_message_at > chats.last_message_at THEN excluded.last_message_preview ELSE chats.last_message_preview END,
			updated_at = excluded.updated_at`,
		c.ID, c.Name, c.IsGroup, c.UnreadCount, c.LastMessageAt, c.LastMessagePreview, now)
	return err
}

// ListChats returns chats sorted by last message timestamp descending.
func (db *DB) ListChats(limit, offset int) ([]Chat, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := conn.Query(`
		SELECT id, name, is_group, unread_count, last_message_at, last_message_preview
		FROM chats
		ORDER BY last_message_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Name, &c.IsGroup, &c.UnreadCount, &c.LastMessageAt, &c.LastMessagePreview); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// GetChat returns a single chat by id, or nil if absent.
func (db *DB) GetChat(id string) (*Chat, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	var c Chat
	err = conn.QueryRow(`
		SELECT id, name, is_group, unread_count, last_message_at, last_message_preview
		FROM chats WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.IsGroup, &c.UnreadCount, &c.LastMessageAt, &c.LastMessagePreview)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// IncrementUnread bumps the unread counter for a chat.
func (db *DB) IncrementUnread(chatID string) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`UPDATE chats SET unread_count = unread_count + 1 WHERE id = ?`, chatID)
	return err
}

// ResetUnread clears the unread counter for a chat.
func (db *DB) ResetUnread(chatID string) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`UPDATE chats SET unread_count = 0 WHERE id = ?`, chatID)
	return err
}

// DeleteChat removes a chat and everything hanging off it: messages,
// reactions, read registers and any pending operations targeting it.
func (db *DB) DeleteChat(chatID string) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	tx, err := conn.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`DELETE FROM pending_outbound_messages WHERE chat_id = ?`,
		`DELETE FROM pending_reactions WHERE chat_id = ?`,
		`DELETE FROM pending_read_receipts WHERE chat_id = ?`,
		`DELETE FROM reactions WHERE chat_id = ?`,
		`DELETE FROM user_read_status WHERE chat_id = ?`,
		`DELETE FROM messages WHERE chat_id = ?`,
		`DELETE FROM chats WHERE id = ?`,
	}
	for _, s := range stmts {
		if _, err := tx.Exec(s, chatID); err != nil {
			return fmt.Errorf("delete chat: %w", err)
		}
	}
	return tx.Commit()
}
