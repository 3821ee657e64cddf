package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はハンドラ内のpanicを捕捉し、スタックトレースを
// ログに残した上でAPI共通形式の500レスポンスを返すミドルウェアを生成する。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer recoverAndRespond(w, r)
			next.ServeHTTP(w, r)
		})
	}
}

func recoverAndRespond(w http.ResponseWriter, r *http.Request) {
	rec := recover()
	if rec == nil {
		return
	}
	slog.Error("ハンドラーでpanicが発生しました",
		slog.String("panic", fmt.Sprint(rec)),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)
	WriteInternalServerError(w)
}
