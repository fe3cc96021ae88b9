// Package storetest opens a bootstrapped Postgres database for repository
// tests. Tests are skipped when TEST_DATABASE_URL is not set.
package storetest

import (
	"context"
	"os"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"schoolattendance/internal/store"
)

const lockKey = 724001

// AdminPassword is the password of the seeded admin account.
const AdminPassword = "admin123"

// Open connects to TEST_DATABASE_URL, bootstraps the schema and empties
// every table except the seeded admin and settings rows.
func Open(t *testing.T) *store.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
		return nil
	}
	ctx := context.Background()
	db, err := store.NewDB(ctx, url, 4)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	t.Cleanup(func() { _ = db.Close() })

	// Packages run in parallel against the same database; hold a session
	// lock so one package's reset cannot wipe another's fixtures.
	conn, err := db.Client.Conn(ctx)
	if err != nil {
		t.Fatalf("reserve connection: %v", err)
	}
	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockKey); err != nil {
		t.Fatalf("advisory lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", lockKey)
		_ = conn.Close()
	})

	hash, err := bcrypt.GenerateFromPassword([]byte(AdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash seed password: %v", err)
	}
	if err := store.Bootstrap(ctx, db, store.Seed{AdminUsername: "admin", AdminPasswordHash: string(hash)}); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if _, err := db.Client.ExecContext(ctx, `
		TRUNCATE attendance, students RESTART IDENTITY CASCADE;
		DELETE FROM users WHERE username <> 'admin';
		UPDATE settings SET min_attendance_percent = 75, max_absences = 10 WHERE id = 1;
	`); err != nil {
		t.Fatalf("reset tables: %v", err)
	}
	return db
}
