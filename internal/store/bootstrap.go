package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id         SERIAL PRIMARY KEY,
	username   VARCHAR(100) UNIQUE NOT NULL,
	password   VARCHAR(255) NOT NULL,
	role       VARCHAR(20) NOT NULL CHECK (role IN ('teacher', 'admin')),
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS students (
	id          SERIAL PRIMARY KEY,
	name        VARCHAR(100) NOT NULL,
	roll_number VARCHAR(50) UNIQUE NOT NULL,
	class       VARCHAR(50) NOT NULL,
	created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS attendance (
	id         SERIAL PRIMARY KEY,
	student_id INTEGER REFERENCES students(id) ON DELETE CASCADE,
	date       DATE NOT NULL,
	status     VARCHAR(10) NOT NULL CHECK (status IN ('present', 'absent')),
	marked_by  INTEGER REFERENCES users(id) ON DELETE SET NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (student_id, date)
);

CREATE TABLE IF NOT EXISTS settings (
	id                     SERIAL PRIMARY KEY,
	min_attendance_percent INTEGER DEFAULT 75,
	max_absences           INTEGER DEFAULT 10
);

CREATE INDEX IF NOT EXISTS idx_students_class ON students(class);
CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date);
`

// Seed carries the rows every fresh database starts with.
type Seed struct {
	AdminUsername     string
	AdminPasswordHash string
}

// EnsureDatabase creates the named database through the maintenance
// connection when it does not exist yet.
func EnsureDatabase(ctx context.Context, adminDSN, name string) error {
	conn, err := pgx.Connect(ctx, adminDSN)
	if err != nil {
		return fmt.Errorf("connect maintenance db: %w", err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists); err != nil {
		return fmt.Errorf("lookup database: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	slog.Info("created database", "name", name)
	return nil
}

// Bootstrap creates the schema and inserts the default admin and the
// settings singleton. Every statement is idempotent.
func Bootstrap(ctx context.Context, db *DB, seed Seed) error {
	if _, err := db.Client.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Client.ExecContext(ctx, `
		INSERT INTO users (username, password, role)
		VALUES ($1, $2, 'admin')
		ON CONFLICT (username) DO NOTHING
	`, seed.AdminUsername, seed.AdminPasswordHash); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if _, err := db.Client.ExecContext(ctx, `
		INSERT INTO settings (id, min_attendance_percent, max_absences)
		VALUES (1, 75, 10)
		ON CONFLICT (id) DO NOTHING
	`); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}
