package store

import "database/sql"

// GetReadStatus returns the read register for (chat, user), or nil if none.
func (db *DB) GetReadStatus(chatID, userID string) (*UserReadStatus, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	var rs UserReadStatus
	err = conn.QueryRow(`
		SELECT chat_id, user_id, last_read_entity_id, last_read_at
		FROM user_read_status WHERE chat_id = ? AND user_id = ?`, chatID, userID).
		Scan(&rs.ChatID, &rs.UserID, &rs.LastReadEntityID, &rs.LastReadAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rs, nil
}

// AdvanceReadStatus applies a read-position update only if it is strictly
// newer than the stored register. Returns whether the update was applied;
// a stale update is a silent no-op, not an error.
func (db *DB) AdvanceReadStatus(chatID, userID, entityID string, at int64) (bool, error) {
	conn, err := db.conn()
	if err != nil {
		return false, err
	}
	res, err := conn.Exec(`
		INSERT INTO user_read_status (chat_id, user_id, last_read_entity_id, last_read_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
			last_read_entity_id = excluded.last_read_entity_id,
			last_read_at = excluded.last_read_at
		WHERE excluded.last_read_at > user_read_status.last_read_at`,
		chatID, userID, entityID, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListReadStatuses returns every read register for a chat.
func (db *DB) ListReadStatuses(chatID string) ([]UserReadStatus, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`
		SELECT chat_id, user_id, last_read_entity_id, last_read_at
		FROM user_read_status WHERE chat_id = ?`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var statuses []UserReadStatus
	for rows.Next() {
		var rs UserReadStatus
		if err := rows.Scan(&rs.ChatID, &rs.UserID, &rs.LastReadEntityID, &rs.LastReadAt); err != nil {
			return nil, err
		}
		statuses = append(statuses, rs)
	}
	return statuses, rows.Err()
}
