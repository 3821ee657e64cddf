package middleware

import "net/http"

// NewSecurityHeadersMiddleware はセキュリティ関連のレスポンスヘッダーを付与する
// ミドルウェアを返す。JSON APIと/avatars/配下の静的配信の両方に適用される。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			// アバター画像をHTMLとして解釈させない
			h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'")
			next.ServeHTTP(w, r)
		})
	}
}
