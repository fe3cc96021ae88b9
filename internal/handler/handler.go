package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"schoolattendance/internal/attendance"
	"schoolattendance/internal/auth"
	"schoolattendance/internal/directory"
	"schoolattendance/internal/settings"
)

// Authenticator verifies credentials and issues sessions.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (auth.Session, error)
}

// Directory manages students, classes and users.
type Directory interface {
	ListStudents(ctx context.Context, class string) ([]directory.Student, error)
	ListClasses(ctx context.Context) ([]string, error)
	CreateStudent(ctx context.Context, in directory.NewStudent) (directory.Student, error)
	DeleteStudent(ctx context.Context, id int64) error
	ListUsers(ctx context.Context) ([]directory.User, error)
	CreateUser(ctx context.Context, in directory.NewUser) (directory.User, error)
	DeleteUser(ctx context.Context, id int64) error
}

// Attendance marks and reports attendance.
type Attendance interface {
	Mark(ctx context.Context, date string, marks []attendance.Mark, markedBy int64) error
	List(ctx context.Context, f attendance.Filter) ([]attendance.Record, error)
	Stats(ctx context.Context, class string) ([]attendance.StudentStat, error)
	Dashboard(ctx context.Context) (attendance.Dashboard, error)
}

// Settings stores the global thresholds.
type Settings interface {
	Get(ctx context.Context) (settings.Settings, error)
	Update(ctx context.Context, in settings.Settings) error
}

// LoginObserver counts login outcomes.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

// Probe reports whether a backing service answers.
type Probe func(ctx context.Context) bool

// Handler serves the JSON API.
type Handler struct {
	auth       Authenticator
	directory  Directory
	attendance Attendance
	settings   Settings
	logins     LoginObserver
	probes     map[string]Probe
	now        func() time.Time
}

// New creates a handler. logins and probes may be nil.
func New(a Authenticator, d Directory, att Attendance, s Settings, logins LoginObserver, probes map[string]Probe) *Handler {
	return &Handler{
		auth:       a,
		directory:  d,
		attendance: att,
		settings:   s,
		logins:     logins,
		probes:     probes,
		now:        time.Now,
	}
}

// ---------- Health ----------

func (h *Handler) Health(c *gin.Context) {
	body := gin.H{"status": "ok", "timestamp": h.now().UTC().Format(time.RFC3339Nano)}
	code := http.StatusOK
	for name, probe := range h.probes {
		healthy := probe(c.Request.Context())
		body[name] = healthy
		if !healthy {
			body["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	c.JSON(code, body)
}

// ---------- Auth ----------

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	h.observeLogin(err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": session.Token, "user": session.User})
}

func (h *Handler) observeLogin(err error) {
	if h.logins == nil {
		return
	}
	switch {
	case err == nil:
		h.logins.ObserveLogin("success")
	case isInvalidCredentials(err):
		h.logins.ObserveLogin("rejected")
	default:
		h.logins.ObserveLogin("error")
	}
}

// ---------- Students & classes ----------

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.directory.ListStudents(c.Request.Context(), c.Query("class"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.directory.ListClasses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, classes)
}

type createStudentRequest struct {
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	Class      string `json:"class"`
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	st, err := h.directory.CreateStudent(c.Request.Context(), directory.NewStudent{
		Name:       req.Name,
		RollNumber: req.RollNumber,
		Class:      req.Class,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.directory.DeleteStudent(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Student deleted"})
}

// ---------- Attendance ----------

type markRequest struct {
	Date       string            `json:"date"`
	Attendance []attendance.Mark `json:"attendance"`
}

func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, _ := auth.IdentityFrom(c)
	if err := h.attendance.Mark(c.Request.Context(), req.Date, req.Attendance, id.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance marked successfully"})
}

func (h *Handler) ListAttendance(c *gin.Context) {
	f := attendance.Filter{Date: c.Query("date"), Class: c.Query("class")}
	if raw := c.Query("student_id"); raw != "" {
		sid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student_id"})
			return
		}
		f.StudentID = sid
	}
	records, err := h.attendance.List(c.Request.Context(), f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) AttendanceStats(c *gin.Context) {
	stats, err := h.attendance.Stats(c.Request.Context(), c.Query("class"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) DashboardStats(c *gin.Context) {
	d, err := h.attendance.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// ---------- Users ----------

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.directory.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.directory.CreateUser(c.Request.Context(), directory.NewUser{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "username": u.Username, "role": u.Role})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.directory.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// ---------- Settings ----------

func (h *Handler) GetSettings(c *gin.Context) {
	s, err := h.settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type updateSettingsRequest struct {
	MinAttendancePercent *int `json:"min_attendance_percent" binding:"required"`
	MaxAbsences          *int `json:"max_absences" binding:"required"`
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err := h.settings.Update(c.Request.Context(), settings.Settings{
		MinAttendancePercent: *req.MinAttendancePercent,
		MaxAbsences:          *req.MaxAbsences,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
