package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_CountsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/v1/doses/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/doses/:id", "200"))
	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/doses/"+id, nil))
	}
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/doses/:id", "200"))

	if after-before != 3 {
		t.Errorf("expected 3 requests counted under the route template, got %v", after-before)
	}
}

func TestRecordDoseTransition_SkipsNoop(t *testing.T) {
	before := testutil.ToFloat64(doseTransitions.WithLabelValues("PENDING", "PENDING"))
	RecordDoseTransition("PENDING", "PENDING")
	if got := testutil.ToFloat64(doseTransitions.WithLabelValues("PENDING", "PENDING")); got != before {
		t.Errorf("expected no-op transition to be skipped")
	}

	before = testutil.ToFloat64(doseTransitions.WithLabelValues("NEW", "APPLIED"))
	RecordDoseTransition("", "APPLIED")
	if got := testutil.ToFloat64(doseTransitions.WithLabelValues("NEW", "APPLIED")); got != before+1 {
		t.Errorf("expected creation to be recorded as NEW -> APPLIED")
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordDispense()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "inventory_dispenses_total") {
		t.Error("expected inventory_dispenses_total in exposition")
	}
}
