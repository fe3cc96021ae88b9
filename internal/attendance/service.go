package attendance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"schoolattendance/internal/store"
)

// Attendance statuses.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

const dateLayout = "2006-01-02"

var (
	ErrInvalidDate    = errors.New("date must be formatted YYYY-MM-DD")
	ErrInvalidStatus  = errors.New("status must be present or absent")
	ErrUnknownStudent = errors.New("unknown student")
)

// Mark is one student's status in a submitted roster.
type Mark struct {
	StudentID int64  `json:"student_id"`
	Status    string `json:"status"`
}

// Record is a stored attendance row with the student's identity fields.
type Record struct {
	ID         int64     `json:"id"`
	StudentID  int64     `json:"student_id"`
	Date       string    `json:"date"`
	Status     string    `json:"status"`
	MarkedBy   *int64    `json:"marked_by"`
	CreatedAt  time.Time `json:"created_at"`
	Name       string    `json:"name"`
	RollNumber string    `json:"roll_number"`
	Class      string    `json:"class"`
}

// Filter narrows List. Zero values mean "any".
type Filter struct {
	Date      string
	Class     string
	StudentID int64
}

// StudentStat summarizes one student's attendance.
type StudentStat struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	RollNumber           string `json:"roll_number"`
	Class                string `json:"class"`
	TotalDays            int64  `json:"total_days"`
	PresentDays          int64  `json:"present_days"`
	AbsentDays           int64  `json:"absent_days"`
	AttendancePercentage int    `json:"attendance_percentage"`
}

// Dashboard holds the admin overview counters.
type Dashboard struct {
	TotalStudents int64 `json:"total_students"`
	TotalTeachers int64 `json:"total_teachers"`
	TotalClasses  int64 `json:"total_classes"`
	TodayPresent  int64 `json:"today_present"`
}

// MarkObserver is told how many rows of each status a successful Mark wrote.
type MarkObserver interface {
	ObserveMarked(status string, count int)
}

// Service coordinates attendance marking and reporting.
type Service struct {
	repo     *Repository
	observer MarkObserver
}

// NewService creates a service backed by a repository. observer may be nil.
func NewService(repo *Repository, observer MarkObserver) *Service {
	return &Service{repo: repo, observer: observer}
}

// Mark records the roster for one day. The batch is all-or-nothing and
// re-submitting it converges to the same state.
func (s *Service) Mark(ctx context.Context, date string, marks []Mark, markedBy int64) error {
	day, err := parseDate(date)
	if err != nil {
		return err
	}
	counts := map[string]int{}
	for _, m := range marks {
		if m.Status != StatusPresent && m.Status != StatusAbsent {
			return fmt.Errorf("%w: %q", ErrInvalidStatus, m.Status)
		}
		if m.StudentID <= 0 {
			return fmt.Errorf("%w: %d", ErrUnknownStudent, m.StudentID)
		}
		counts[m.Status]++
	}
	if len(marks) == 0 {
		return nil
	}
	if err := s.repo.UpsertBatch(ctx, day, marks, markedBy); err != nil {
		if store.IsForeignKeyViolation(err) {
			return ErrUnknownStudent
		}
		return err
	}
	if s.observer != nil {
		for status, n := range counts {
			s.observer.ObserveMarked(status, n)
		}
	}
	return nil
}

// List returns attendance rows matching every non-zero filter field,
// ordered by class, roll number and then newest date first.
func (s *Service) List(ctx context.Context, f Filter) ([]Record, error) {
	var day time.Time
	if f.Date != "" {
		var err error
		if day, err = parseDate(f.Date); err != nil {
			return nil, err
		}
	}
	return s.repo.List(ctx, f, day)
}

// Stats returns per-student totals and percentages, optionally for one class.
func (s *Service) Stats(ctx context.Context, class string) ([]StudentStat, error) {
	stats, err := s.repo.Counts(ctx, class)
	if err != nil {
		return nil, err
	}
	for i := range stats {
		stats[i].AttendancePercentage = Percentage(stats[i].PresentDays, stats[i].TotalDays)
	}
	return stats, nil
}

// Dashboard returns school-wide counters for today.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	return s.repo.Dashboard(ctx)
}

// Percentage is present/total*100 rounded half up, and 0 when total is 0.
func Percentage(present, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Floor(float64(present)/float64(total)*100 + 0.5))
}

func parseDate(s string) (time.Time, error) {
	day, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return day, nil
}
