package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// LogPanic はrecoverした値をスタックトレース付きでErrorログに残す。
// HTTPハンドラーとボットの更新処理で共通に使う。
func LogPanic(logger *slog.Logger, rec any, attrs ...slog.Attr) {
	args := make([]any, 0, len(attrs)+2)
	args = append(args, slog.Any("panic", rec))
	for _, a := range attrs {
		args = append(args, a)
	}
	args = append(args, slog.String("stack", string(debug.Stack())))
	logger.Error("panic recovered", args...)
}

// NewRecoveryMiddleware はpanicをログに残し、/healthと同じ形式のJSONで500を返すミドルウェアを生成する。
func NewRecoveryMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// ハンドラーが自ら中断した場合はそのまま伝える
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				LogPanic(logger, rec,
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(map[string]string{"status": "error"})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
