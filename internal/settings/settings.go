// Package settings stores the two school-wide attendance thresholds. The
// server only persists them; clients decide how to flag students.
package settings

import (
	"context"
	"database/sql"
	"errors"
)

// Defaults apply when the singleton row is missing.
var Defaults = Settings{MinAttendancePercent: 75, MaxAbsences: 10}

// Settings is the singleton thresholds row.
type Settings struct {
	MinAttendancePercent int `json:"min_attendance_percent"`
	MaxAbsences          int `json:"max_absences"`
}

// Service reads and writes the settings row with id 1.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Get returns the stored thresholds, or Defaults if the row is absent.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	var minPct, maxAbs sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT min_attendance_percent, max_absences FROM settings WHERE id = 1
	`).Scan(&minPct, &maxAbs)
	if errors.Is(err, sql.ErrNoRows) {
		return Defaults, nil
	}
	if err != nil {
		return Settings{}, err
	}
	out := Defaults
	if minPct.Valid {
		out.MinAttendancePercent = int(minPct.Int64)
	}
	if maxAbs.Valid {
		out.MaxAbsences = int(maxAbs.Int64)
	}
	return out, nil
}

// Update overwrites the thresholds in place. Values are not range checked.
func (s *Service) Update(ctx context.Context, in Settings) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE settings SET min_attendance_percent = $1, max_absences = $2 WHERE id = 1
	`, in.MinAttendancePercent, in.MaxAbsences)
	return err
}
