// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrProfileExists is returned when creating a profile for a known user.
var ErrProfileExists = errors.New("profile already exists")

// Profile is a stored user profile.
type Profile struct {
	UserID    string
	Name      string
	Age       string
	CreatedAt time.Time
}

// ProfileStore persists user profiles.
type ProfileStore interface {
	// GetProfile returns nil, nil when the user is unknown.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// CreateProfile returns ErrProfileExists if the user already has one.
	CreateProfile(ctx context.Context, p Profile) error

	Ping(ctx context.Context) error
	Close() error
}

// SQLiteStore implements ProfileStore on an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the profile database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const query = `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		age        TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// GetProfile looks up a profile by user ID.
func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, name, age, created_at FROM profiles WHERE user_id = ?`, userID)

	var p Profile
	var createdAt int64
	err := row.Scan(&p.UserID, &p.Name, &p.Age, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile row: %w", err)
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return &p, nil
}

// CreateProfile inserts p. Existing rows are never overwritten.
func (s *SQLiteStore) CreateProfile(ctx context.Context, p Profile) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO profiles (user_id, name, age, created_at) VALUES (?, ?, ?, ?)`,
		p.UserID, p.Name, p.Age, p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	if n == 0 {
		return ErrProfileExists
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
