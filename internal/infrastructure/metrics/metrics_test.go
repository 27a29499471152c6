package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/doloop/core/internal/domain/entities"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestLifecycleCounter(t *testing.T) {
	m := New()
	ctx := context.Background()
	m.Publish(ctx, entities.Event{Type: entities.EventLoopCreated})
	m.Publish(ctx, entities.Event{Type: entities.EventLoopCreated})
	m.Publish(ctx, entities.Event{Type: entities.EventTaskCompleted})

	body := scrape(t, m)
	for _, want := range []string{
		`doloop_lifecycle_events_total{type="loop.created"} 2`,
		`doloop_lifecycle_events_total{type="task.completed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestJobCounter(t *testing.T) {
	m := New()
	m.ObserveJob("purge_expired", nil)
	m.ObserveJob("purge_expired", errors.New("boom"))

	body := scrape(t, m)
	for _, want := range []string{
		`doloop_scheduler_runs_total{job="purge_expired",outcome="success"} 1`,
		`doloop_scheduler_runs_total{job="purge_expired",outcome="error"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/loops/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/loops/abc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := scrape(t, m)
	want := `http_requests_total{method="GET",path="/api/loops/:id",status="200"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("metrics missing %q", want)
	}
}
