package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddlewareCountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New()

	router := gin.New()
	router.Use(m.Middleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	for i := 0; i < 2; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/health", "200")); got != 2 {
		t.Fatalf("expected 2 health requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "unmatched", "404")); got != 1 {
		t.Fatalf("expected 1 unmatched request, got %v", got)
	}
	if got := testutil.ToFloat64(m.httpInFlight); got != 0 {
		t.Fatalf("expected no in-flight requests, got %v", got)
	}
}

func TestRecordClassificationByOutcome(t *testing.T) {
	m := New()
	m.RecordClassification("success", 20*time.Millisecond, 2048)
	m.RecordClassification("upstream_status", time.Millisecond, 0)
	m.RecordClassification("", time.Millisecond, 0)

	if got := testutil.ToFloat64(m.classifications.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.classifications.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty outcome to be recorded as unknown, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `animal_classify_upstream_classifications_total{outcome="upstream_status"} 1`) {
		t.Fatalf("exposition missing upstream_status counter:\n%s", rec.Body.String())
	}
}

func TestRecordClassificationNilSafe(t *testing.T) {
	var m *Metrics
	m.RecordClassification("success", time.Millisecond, 10)
}
