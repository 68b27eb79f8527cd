// Package handler はホスティング環境の死活監視とメトリクス取得用のHTTPルーターを提供する。
// ボットのプロトコルとは無関係で、認証は行わない。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/horobot/horobot/internal/metrics"
	"github.com/horobot/horobot/internal/middleware"
)

// DefaultGreeting はルートパスで返す固定文字列。
const DefaultGreeting = "Horoscope bot is running!"

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger   *slog.Logger
	Gatherer prometheus.Gatherer
	// Greeting はGET /の本文。空ならDefaultGreeting。
	Greeting string
}

// NewRouter はヘルスチェックとメトリクスのルーティングを構成したchi.Routerを返す。
//
//	GET /        固定文字列（ホスティングの死活監視用）
//	GET /health  {"status":"ok"}
//	GET /metrics Prometheus形式のメトリクス（Gathererがある場合のみ）
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, "/", "/health", "/metrics"))

	greeting := deps.Greeting
	if greeting == "" {
		greeting = DefaultGreeting
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(greeting))
	})
	r.Get("/health", healthHandler)

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
