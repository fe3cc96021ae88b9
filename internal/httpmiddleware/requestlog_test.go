package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type recordedRequest struct {
	method, route string
	code          int
}

type recordingObserver struct{ seen []recordedRequest }

func (r *recordingObserver) ObserveRequest(method, route string, code int, _ time.Duration) {
	r.seen = append(r.seen, recordedRequest{method, route, code})
}

func TestRequestIDAndAccessLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	obs := &recordingObserver{}
	r := gin.New()
	r.Use(RequestID(), AccessLog(obs, "/health"), SecurityHeaders())
	r.GET("/api/students/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/students/4", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected security headers")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected a generated request id")
	}

	if len(obs.seen) != 2 {
		t.Fatalf("expected skipped paths to still be measured, got %v", obs.seen)
	}
	if obs.seen[0] != (recordedRequest{http.MethodGet, "/api/students/:id", http.StatusOK}) {
		t.Fatalf("expected route template label, got %+v", obs.seen[0])
	}
}
