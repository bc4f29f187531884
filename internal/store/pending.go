package store

// The three pending-operation queues. Entries are listed FIFO per chat
// (created_at, then insertion order) and removed only after the remote store
// confirms them or the sync engine declares them terminally failed.

// EnqueueOutboundMessage queues a message-send operation.
func (db *DB) EnqueueOutboundMessage(op *PendingMessage) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`
		INSERT INTO pending_outbound_messages (id, chat_id, message_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		op.ID, op.ChatID, op.MessageID, op.CreatedAt)
	return err
}

// PendingOutboundMessages returns all queued message-send operations in
// per-chat creation order.
func (db *DB) PendingOutboundMessages() ([]PendingMessage, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`
		SELECT id, chat_id, message_id, created_at
		FROM pending_outbound_messages
		ORDER BY chat_id, created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ops []PendingMessage
	for rows.Next() {
		var op PendingMessage
		if err := rows.Scan(&op.ID, &op.ChatID, &op.MessageID, &op.CreatedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// RemoveOutboundMessage deletes a confirmed or terminally failed send op.
func (db *DB) RemoveOutboundMessage(opID string) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`DELETE FROM pending_outbound_messages WHERE id = ?`, opID)
	return err
}

// EnqueueReaction queues a reaction mutation. Empty emoji means remove.
func (db *DB) EnqueueReaction(op *PendingReaction) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`
		INSERT INTO pending_reactions (id, chat_id, message_id, user_id, emoji, timestamp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		op.ID, op.ChatID, op.MessageID, op.UserID, op.Emoji, op.Timestamp, op.CreatedAt)
	return err
}

// PendingReactions returns all queued reaction mutations in per-chat creation order.
func (db *DB) PendingReactions() ([]PendingReaction, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`
		SELECT id, chat_id, message_id, user_id, emoji, timestamp, created_at
		FROM pending_reactions
		ORDER BY chat_id, created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ops []PendingReaction
	for rows.Next() {
		var op PendingReaction
		if err := rows.Scan(&op.ID, &op.ChatID, &op.MessageID, &op.UserID, &op.Emoji, &op.Timestamp, &op.CreatedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// RemoveReactionOp deletes a confirmed reaction operation.
func (db *DB) RemoveReactionOp(opID string) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`DELETE FROM pending_reactions WHERE id = ?`, opID)
	return err
}

// EnqueueReadReceipt queues a read-position advance.
func (db *DB) EnqueueReadReceipt(op *PendingReadReceipt) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`
		INSERT INTO pending_read_receipts (id, chat_id, user_id, entity_id, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		op.ID, op.ChatID, op.UserID, op.EntityID, op.ReadAt, op.CreatedAt)
	return err
}

// PendingReadReceipts returns all queued read receipts in per-chat creation order.
func (db *DB) PendingReadReceipts() ([]PendingReadReceipt, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(`
		SELECT id, chat_id, user_id, entity_id, read_at, created_at
		FROM pending_read_receipts
		ORDER BY chat_id, created_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ops []PendingReadReceipt
	for rows.Next() {
		var op PendingReadReceipt
		if err := rows.Scan(&op.ID, &op.ChatID, &op.UserID, &op.EntityID, &op.ReadAt, &op.CreatedAt); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// RemoveReadReceiptOp deletes a confirmed read-receipt operation.
func (db *DB) RemoveReadReceiptOp(opID string) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	_, err = conn.Exec(`DELETE FROM pending_read_receipts WHERE id = ?`, opID)
	return err
}
