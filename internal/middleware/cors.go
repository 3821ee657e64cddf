package middleware

import "net/http"

// corsAllowedHeaders はフロントエンドが送信するリクエストヘッダーの許可リスト。
// CSRFトークンヘッダーを含む。
const corsAllowedHeaders = "Content-Type, X-CSRF-Token"

// NewCORSMiddleware は単一フロントエンドオリジン向けのCORSミドルウェアを返す。
// Cookie送信（credentials）と共存させるため、ワイルドカード(*)は使用しない。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "86400")

			// プリフライトはここで完結させる
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
