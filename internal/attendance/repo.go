package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertBatch writes one row per mark for the given day inside a single
// transaction. An existing (student, date) row has its status and marker
// overwritten.
func (r *Repository) UpsertBatch(ctx context.Context, day time.Time, marks []Mark, markedBy int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance (student_id, date, status, marked_by)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, date)
		DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by
	`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range marks {
		if _, err := stmt.ExecContext(ctx, m.StudentID, day, m.Status, markedBy); err != nil {
			return fmt.Errorf("upsert student %d: %w", m.StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List returns attendance rows joined with student identity fields.
func (r *Repository) List(ctx context.Context, f Filter, day time.Time) ([]Record, error) {
	query := `
		SELECT a.id, a.student_id, to_char(a.date, 'YYYY-MM-DD'), a.status, a.marked_by, a.created_at,
		       s.name, s.roll_number, s.class
		FROM attendance a
		JOIN students s ON a.student_id = s.id`
	args := []any{}
	clauses := []string{}
	if f.Date != "" {
		args = append(args, day)
		clauses = append(clauses, "a.date = $"+strconv.Itoa(len(args)))
	}
	if f.Class != "" {
		args = append(args, f.Class)
		clauses = append(clauses, "s.class = $"+strconv.Itoa(len(args)))
	}
	if f.StudentID != 0 {
		args = append(args, f.StudentID)
		clauses = append(clauses, "a.student_id = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY s.class, s.roll_number, a.date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []Record{}
	for rows.Next() {
		var rec Record
		var markedBy sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Date, &rec.Status, &markedBy, &rec.CreatedAt,
			&rec.Name, &rec.RollNumber, &rec.Class); err != nil {
			return nil, err
		}
		if markedBy.Valid {
			v := markedBy.Int64
			rec.MarkedBy = &v
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Counts returns per-student attendance counts. Students without any
// rows are included with zero counts.
func (r *Repository) Counts(ctx context.Context, class string) ([]StudentStat, error) {
	query := `
		SELECT s.id, s.name, s.roll_number, s.class,
		       COUNT(a.id),
		       COALESCE(SUM(CASE WHEN a.status = 'present' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN a.status = 'absent' THEN 1 ELSE 0 END), 0)
		FROM students s
		LEFT JOIN attendance a ON s.id = a.student_id`
	args := []any{}
	if class != "" {
		query += ` WHERE s.class = $1`
		args = append(args, class)
	}
	query += ` GROUP BY s.id, s.name, s.roll_number, s.class ORDER BY s.class, s.roll_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := []StudentStat{}
	for rows.Next() {
		var st StudentStat
		if err := rows.Scan(&st.ID, &st.Name, &st.RollNumber, &st.Class, &st.TotalDays, &st.PresentDays, &st.AbsentDays); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Dashboard computes the admin overview counters in one round trip.
func (r *Repository) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM students),
			(SELECT COUNT(*) FROM users WHERE role = 'teacher'),
			(SELECT COUNT(DISTINCT class) FROM students),
			(SELECT COUNT(*) FROM attendance WHERE date = CURRENT_DATE AND status = 'present')
	`).Scan(&d.TotalStudents, &d.TotalTeachers, &d.TotalClasses, &d.TodayPresent)
	return d, err
}
