package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"schoolattendance/internal/auth"
	"schoolattendance/internal/store"
)

var (
	ErrRollNumberExists = errors.New("roll number already exists")
	ErrUsernameExists   = errors.New("username already exists")
	ErrInvalidRole      = errors.New("role must be teacher or admin")
	ErrMissingField     = errors.New("missing required field")
)

// NewStudent is the input of CreateStudent.
type NewStudent struct {
	Name       string
	RollNumber string
	Class      string
}

// NewUser is the input of CreateUser.
type NewUser struct {
	Username string
	Password string
	Role     string
}

// Service manages students, the derived class list and staff accounts.
type Service struct {
	repo *Repository
}

// NewService creates a service backed by a repository.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListStudents(ctx context.Context, class string) ([]Student, error) {
	return s.repo.ListStudents(ctx, class)
}

func (s *Service) ListClasses(ctx context.Context) ([]string, error) {
	return s.repo.ListClasses(ctx)
}

// CreateStudent adds a student as submitted. Roll numbers are unique
// across the school.
func (s *Service) CreateStudent(ctx context.Context, in NewStudent) (Student, error) {
	if blank(in.Name) || blank(in.RollNumber) || blank(in.Class) {
		return Student{}, fmt.Errorf("%w: name, roll_number and class are required", ErrMissingField)
	}
	st, err := s.repo.InsertStudent(ctx, in.Name, in.RollNumber, in.Class)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Student{}, ErrRollNumberExists
		}
		return Student{}, err
	}
	return st, nil
}

// DeleteStudent removes a student and its attendance. Unknown ids are ignored.
func (s *Service) DeleteStudent(ctx context.Context, id int64) error {
	return s.repo.DeleteStudent(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// CreateUser hashes the password and stores a new account.
func (s *Service) CreateUser(ctx context.Context, in NewUser) (User, error) {
	if blank(in.Username) || in.Password == "" {
		return User{}, fmt.Errorf("%w: username and password are required", ErrMissingField)
	}
	if in.Role != auth.RoleTeacher && in.Role != auth.RoleAdmin {
		return User{}, ErrInvalidRole
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	u, err := s.repo.InsertUser(ctx, in.Username, hash, in.Role)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return User{}, ErrUsernameExists
		}
		return User{}, err
	}
	return u, nil
}

// DeleteUser removes an account. Unknown ids are ignored.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	return s.repo.DeleteUser(ctx, id)
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
