package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveMarked("present", 3)
	m.ObserveMarked("present", 2)
	m.ObserveMarked("absent", 1)
	m.ObserveLogin("rejected")
	m.ObserveRequest(http.MethodGet, "/api/students", http.StatusOK, 5*time.Millisecond)
	m.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	if got := testutil.ToFloat64(m.marked.WithLabelValues("present")); got != 5 {
		t.Fatalf("expected 5 present marks, got %v", got)
	}
	if got := testutil.ToFloat64(m.marked.WithLabelValues("absent")); got != 1 {
		t.Fatalf("expected 1 absent mark, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "unmatched", "404")); got != 1 {
		t.Fatalf("expected unmatched route to be counted, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "attendance_records_marked_total") {
		t.Fatalf("expected exposition to include attendance counter")
	}
}
