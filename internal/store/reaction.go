package store

import "fmt"

// ReplaceReaction installs a user's reaction on a message as remove-then-add
// inside one transaction, so two reactions from the same user are never
// visible together, even to a concurrent reader. An incoming reaction older
// than the stored one for the same (message, user) pair is dropped.
// Returns whether the reaction was applied.
func (db *DB) ReplaceReaction(r *Reaction) (bool, error) {
	conn, err := db.conn()
	if err != nil {
		return false, err
	}
	tx, err := conn.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stored int64
	err = tx.QueryRow(`
		SELECT timestamp FROM reactions WHERE message_id = ? AND user_id = ?`,
		r.MessageID, r.UserID).Scan(&stored)
	if err == nil && stored > r.Timestamp {
		// A newer reaction already won.
		return false, tx.Commit()
	}

	if _, err := tx.Exec(`DELETE FROM reactions WHERE message_id = ? AND user_id = ?`,
		r.MessageID, r.UserID); err != nil {
		return false, fmt.Errorf("remove prior reaction: %w", err)
	}
	if _, err := tx.Exec(`
		INSERT INTO reactions (chat_id, message_id, user_id, emoji, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		r.ChatID, r.MessageID, r.UserID, r.Emoji, r.Timestamp); err != nil {
		return false, fmt.Errorf("add reaction: %w", err)
	}
	return true, tx.Commit()
}

// RemoveReactionBefore deletes a user's reaction on a message only if the
// stored reaction is not newer than ts. A removal older than the live
// reaction lost the (message, user) register and must not win. Returns
// whether a row was deleted.
func (db *DB) RemoveReactionBefore(messageID, userID string, ts int64) (bool, error) {
	conn, err := db.conn()
	if err != nil {
		return false, err
	}
	res, err := conn.Exec(`
		DELETE FROM reactions WHERE message_id = ? AND user_id = ? AND timestamp <= ?`,
		messageID, userID, ts)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveReaction deletes a user's reaction on a message. Removing a
// non-existent reaction is a success.
func (db *DB) RemoveReaction(messageID, userID string) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`DELETE FROM reactions WHERE message_id = ? AND user_id = ?`,
		messageID, userID)
	return err
}

// ListReactions returns all live reactions on a message.
func (db *DB) ListReactions(messageID string) ([]Reaction, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`
		SELECT chat_id, message_id, user_id, emoji, timestamp
		FROM reactions WHERE message_id = ?`, messageID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reactions []Reaction
	for rows.Next() {
		var r Reaction
		if err := rows.Scan(&r.ChatID, &r.MessageID, &r.UserID, &r.Emoji, &r.Timestamp); err != nil {
			return nil, err
		}
		reactions = append(reactions, r)
	}
	return reactions, rows.Err()
}
