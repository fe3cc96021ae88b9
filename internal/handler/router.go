package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"schoolattendance/internal/auth"
	"schoolattendance/internal/httpmiddleware"
)

// RouterConfig carries the pieces the route table needs besides the handler.
type RouterConfig struct {
	Tokens       *auth.JWTManager
	Roles        auth.RoleLookup
	LoginLimiter httpmiddleware.Limiter
	Requests     httpmiddleware.RequestObserver
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// FrontendURL is the allowed CORS origin; "*" allows any origin.
	FrontendURL string
	// StaticDir is served for unmatched non-API paths when set.
	StaticDir string
}

// NewRouter builds the gin engine with middleware and the API route table.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.AccessLog(cfg.Requests, "/health", "/metrics"))
	r.Use(cors.New(corsConfig(cfg.FrontendURL)))
	r.Use(httpmiddleware.SecurityHeaders())

	r.GET("/health", h.Health)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := r.Group("/api")
	if cfg.LoginLimiter != nil {
		api.POST("/login", httpmiddleware.RateLimit(cfg.LoginLimiter), h.Login)
	} else {
		api.POST("/login", h.Login)
	}

	authed := api.Group("", auth.Authenticate(cfg.Tokens))
	authed.GET("/students", h.ListStudents)
	authed.GET("/classes", h.ListClasses)
	authed.POST("/students", h.CreateStudent)
	authed.POST("/attendance", h.MarkAttendance)
	authed.GET("/attendance", h.ListAttendance)
	authed.GET("/attendance/stats", h.AttendanceStats)
	authed.GET("/settings", h.GetSettings)

	admin := authed.Group("", auth.RequireRole(auth.RoleAdmin, cfg.Roles))
	admin.DELETE("/students/:id", h.DeleteStudent)
	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.DELETE("/users/:id", h.DeleteUser)
	admin.PUT("/settings", h.UpdateSettings)
	admin.GET("/dashboard/stats", h.DashboardStats)

	r.NoRoute(notFound(cfg.StaticDir))
	return r
}

func corsConfig(origin string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        24 * time.Hour,
	}
	if origin == "" || origin == "*" {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = []string{strings.TrimRight(origin, "/")}
	c.AllowCredentials = true
	return c
}

func notFound(staticDir string) gin.HandlerFunc {
	var files http.FileSystem
	if staticDir != "" {
		files = gin.Dir(staticDir, false)
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if files == nil || path == "/api" || strings.HasPrefix(path, "/api/") || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		c.FileFromFS(path, files)
	}
}
