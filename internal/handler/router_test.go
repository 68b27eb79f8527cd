package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/horobot/horobot/internal/metrics"
)

func newTestRouter(t *testing.T, gatherer prometheus.Gatherer) http.Handler {
	t.Helper()
	var buf bytes.Buffer
	return NewRouter(&RouterDeps{
		Logger:   slog.New(slog.NewJSONHandler(&buf, nil)),
		Gatherer: gatherer,
	})
}

func TestRouter_Root(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("GET / status = %d, want 200", w.Code)
	}
	body, _ := io.ReadAll(w.Result().Body)
	if string(body) != DefaultGreeting {
		t.Errorf("GET / body = %q, want %q", body, DefaultGreeting)
	}
}

func TestRouter_CustomGreeting(t *testing.T) {
	var buf bytes.Buffer
	router := NewRouter(&RouterDeps{
		Logger:   slog.New(slog.NewJSONHandler(&buf, nil)),
		Greeting: "Intake bot is running!",
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Body.String() != "Intake bot is running!" {
		t.Errorf("GET / body = %q", w.Body.String())
	}
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /health status = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	collector.RecordCacheHit("meme")
	router := newTestRouter(t, reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `horobot_cache_hits_total{mode="meme"} 1`) {
		t.Errorf("メトリクスが出力されていない:\n%s", w.Body.String())
	}
}

func TestRouter_MetricsDisabled(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("GET /metrics status = %d, want 404", w.Code)
	}
}

func TestRouter_UnknownPath(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /health status = %d, want 405", w.Code)
	}
}
