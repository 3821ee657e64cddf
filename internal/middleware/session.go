// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/mediashelf/internal/model"
)

const sessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// userIDContextKey はリクエストコンテキストにユーザーIDを格納するためのキー。
var userIDContextKey = contextKey("user_id")

// userIDHolder は内側のミドルウェアが解決したユーザーIDを、
// 派生コンテキストが届かない外側のミドルウェアへ伝えるための入れ物。
// ロギングミドルウェアが設置し、ContextWithUserIDが書き込む。
type userIDHolder struct {
	id string
}

var userIDHolderKey = contextKey("user_id_holder")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はHTTP Only CookieのセッションIDを検証し、
// 認証済みユーザーIDをリクエストコンテキストに注入するミドルウェアを返す。
// Cookieなし、無効、期限切れのいずれも401 Unauthorizedを返す。
func NewSessionMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := resolveUserID(r, sessionFinder)
			if !ok {
				writeUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// resolveUserID はCookieのセッションIDからユーザーIDを引く。
// リポジトリは期限切れセッションを返さない想定だが、クロックずれに備えて
// ExpiresAtもここで確認する。
func resolveUserID(r *http.Request, finder SessionFinder) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	session, err := finder.FindByID(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to find session", slog.String("error", err.Error()))
		return "", false
	}
	if session == nil || session.ExpiresAt.Before(time.Now()) {
		return "", false
	}
	return session.UserID, true
}

func writeUnauthorized(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "ログインが必要です。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	})
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやワーカーなど、ミドルウェア外でのコンテキスト生成でも使用する。
// 外側にロギングミドルウェアの入れ物がある場合はそちらにも書き込む。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if holder, ok := ctx.Value(userIDHolderKey).(*userIDHolder); ok {
		holder.id = userID
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}
