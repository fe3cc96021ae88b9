package directory

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"schoolattendance/internal/auth"
)

// Student is an enrolled pupil.
type Student struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number"`
	Class      string    `json:"class"`
	CreatedAt  time.Time `json:"created_at"`
}

// User is a staff account without its password hash.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists students and users in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ListStudents returns students ordered by class then roll number,
// optionally restricted to one class.
func (r *Repository) ListStudents(ctx context.Context, class string) ([]Student, error) {
	query := `SELECT id, name, roll_number, class, created_at FROM students`
	args := []any{}
	if class != "" {
		query += ` WHERE class = $1`
		args = append(args, class)
	}
	query += ` ORDER BY class, roll_number`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	students := []Student{}
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.Name, &s.RollNumber, &s.Class, &s.CreatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// ListClasses returns the distinct class labels currently in use.
func (r *Repository) ListClasses(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT class FROM students ORDER BY class`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	classes := []string{}
	for rows.Next() {
		var class string
		if err := rows.Scan(&class); err != nil {
			return nil, err
		}
		classes = append(classes, class)
	}
	return classes, rows.Err()
}

// InsertStudent writes a new student.
func (r *Repository) InsertStudent(ctx context.Context, name, rollNumber, class string) (Student, error) {
	s := Student{Name: name, RollNumber: rollNumber, Class: class}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (name, roll_number, class)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, name, rollNumber, class)
	if err := row.Scan(&s.ID, &s.CreatedAt); err != nil {
		return Student{}, err
	}
	return s, nil
}

// DeleteStudent removes a student; attendance rows go with it.
func (r *Repository) DeleteStudent(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	return err
}

// ListUsers returns accounts ordered by role then username.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, username, role, created_at FROM users ORDER BY role, username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// InsertUser writes a new account with an already hashed password.
func (r *Repository) InsertUser(ctx context.Context, username, passwordHash, role string) (User, error) {
	u := User{Username: username, Role: role}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (username, password, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, username, passwordHash, role)
	if err := row.Scan(&u.ID, &u.CreatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

// DeleteUser removes an account.
func (r *Repository) DeleteUser(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

// CredentialsByUsername implements auth.CredentialStore.
func (r *Repository) CredentialsByUsername(ctx context.Context, username string) (*auth.Credentials, error) {
	var c auth.Credentials
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, role, password FROM users WHERE username = $1
	`, username).Scan(&c.ID, &c.Username, &c.Role, &c.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UserRole implements auth.RoleLookup.
func (r *Repository) UserRole(ctx context.Context, id int64) (string, bool, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}
