package store

import (
	"database/sql"
	"time"
)

// UpsertUser inserts or updates a user record.
func (db *DB) UpsertUser(u *User) error {
	conn, err := db.conn()
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	_, err = conn.Exec(`
		INSERT INTO users (id, name, avatar_url, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at`,
		u.ID, u.Name, u.AvatarURL, now)
	return err
}

// GetUser returns a single user by id, or nil if absent.
func (db *DB) GetUser(id string) (*User, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, err
	}
	var u User
	err = conn.QueryRow(`SELECT id, name, avatar_url FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.AvatarURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
