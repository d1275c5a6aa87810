package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounter(t *testing.T) {
	r := New()
	c := r.Counter("chunks_ingested_total", "Chunks stored")
	c.Inc()
	c.Add(4)
	if c.Value() != 5 {
		t.Fatalf("counter = %d, want 5", c.Value())
	}
	// Same name returns the same counter.
	if r.Counter("chunks_ingested_total", "") != c {
		t.Fatal("expected identical counter instance")
	}
}

func TestGauge(t *testing.T) {
	r := New()
	g := r.Gauge("jobs_in_flight", "")
	g.Set(3)
	g.Inc()
	g.Dec()
	if g.Value() != 3 {
		t.Fatalf("gauge = %d, want 3", g.Value())
	}
}

func TestRender_CounterWithLabels(t *testing.T) {
	r := New()
	r.Counter(WithLabels("searches_total", "outcome", "hit"), "Search calls").Add(2)
	r.Counter(WithLabels("searches_total", "outcome", "fallback"), "").Inc()

	out := r.Render()
	for _, want := range []string{
		"# HELP searches_total Search calls",
		"# TYPE searches_total counter",
		`searches_total{outcome="fallback"} 1`,
		`searches_total{outcome="hit"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Histogram(t *testing.T) {
	r := New()
	h := r.Histogram("embed_seconds", "Embedding latency", []float64{0.1, 1, 10})
	h.Observe(0.05)
	h.Observe(0.5)
	h.Observe(0.7)
	h.Observe(100)

	out := r.Render()
	for _, want := range []string{
		"# TYPE embed_seconds histogram",
		`embed_seconds_bucket{le="0.1"} 1`,
		`embed_seconds_bucket{le="1"} 3`,
		`embed_seconds_bucket{le="10"} 3`,
		`embed_seconds_bucket{le="+Inf"} 4`,
		"embed_seconds_count 4",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}
}

func TestWithLabels(t *testing.T) {
	if got := WithLabels("m", "a", "1", "b", "2"); got != `m{a="1",b="2"}` {
		t.Fatalf("got %q", got)
	}
	if got := WithLabels("m", "odd"); got != "m" {
		t.Fatalf("odd label pairs should be ignored, got %q", got)
	}
	if got := WithLabels("m"); got != "m" {
		t.Fatalf("no labels should return the name, got %q", got)
	}
}

func TestHandler(t *testing.T) {
	r := New()
	r.Counter("requests_total", "").Inc()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("wrong content type: %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "requests_total 1") {
		t.Fatalf("body missing metric:\n%s", rec.Body.String())
	}
}
