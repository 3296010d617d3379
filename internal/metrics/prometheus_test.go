package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusHandler(t *testing.T) {
	m := New()
	m.Inc(EventParticipantJoined)
	m.Inc(EventParticipantJoined)
	m.Inc(EventSignalRelayed)

	rec := httptest.NewRecorder()
	PrometheusHandler(m).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status: got %d want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `mesh_signaling_events_total{event="participant_joined"} 2`) {
		t.Fatalf("missing joined counter, body:\n%s", body)
	}
	if !strings.Contains(body, `mesh_signaling_events_total{event="signal_relayed"} 1`) {
		t.Fatalf("missing relayed counter, body:\n%s", body)
	}
	if !strings.Contains(body, "# TYPE mesh_signaling_events_total counter") {
		t.Fatalf("missing TYPE line, body:\n%s", body)
	}
}

func TestPrometheusHandlerNil(t *testing.T) {
	rec := httptest.NewRecorder()
	PrometheusHandler(nil).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 500 {
		t.Fatalf("status: got %d want 500", rec.Code)
	}
}
