package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/mediashelf/internal/model"
)

type mockSessionRepository struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

// serveWithSession はセッションミドルウェア越しにGETリクエストを実行するヘルパー。
func serveWithSession(t *testing.T, repo *mockSessionRepository, sessionCookie *http.Cookie, next http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	handler := NewSessionMiddleware(repo)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
	if sessionCookie != nil {
		req.AddCookie(sessionCookie)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestSessionMiddleware_ValidSession_InjectsUserID(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id != "valid-session-id" {
				return nil, nil
			}
			return &model.Session{
				ID:        "valid-session-id",
				UserID:    "user-123",
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	var capturedUserID string
	w := serveWithSession(t, repo,
		&http.Cookie{Name: "session_id", Value: "valid-session-id"},
		func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				t.Errorf("コンテキストからユーザーIDを取得できない: %v", err)
			}
			capturedUserID = userID
			w.WriteHeader(http.StatusOK)
		})

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if capturedUserID != "user-123" {
		t.Errorf("userID = %q, want %q", capturedUserID, "user-123")
	}
}

func TestSessionMiddleware_Returns401(t *testing.T) {
	tests := []struct {
		name   string
		repo   *mockSessionRepository
		cookie *http.Cookie
	}{
		{
			name:   "Cookieなし",
			repo:   &mockSessionRepository{},
			cookie: nil,
		},
		{
			name:   "空のCookie",
			repo:   &mockSessionRepository{},
			cookie: &http.Cookie{Name: "session_id", Value: ""},
		},
		{
			name: "期限切れセッション",
			repo: &mockSessionRepository{
				findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
					// リポジトリは期限切れセッションをnilとして返す
					return nil, nil
				},
			},
			cookie: &http.Cookie{Name: "session_id", Value: "expired-session"},
		},
		{
			name: "期限切れセッションがそのまま返ってきた場合",
			repo: &mockSessionRepository{
				findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
					return &model.Session{
						ID:        id,
						UserID:    "user-123",
						ExpiresAt: time.Now().Add(-1 * time.Minute),
					}, nil
				},
			},
			cookie: &http.Cookie{Name: "session_id", Value: "stale-session"},
		},
		{
			name: "リポジトリエラー",
			repo: &mockSessionRepository{
				findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
					return nil, context.DeadlineExceeded
				},
			},
			cookie: &http.Cookie{Name: "session_id", Value: "some-session"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveWithSession(t, tt.repo, tt.cookie, func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			})

			if w.Result().StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
			}
		})
	}
}

func TestSessionMiddleware_401BodyIsAPIError(t *testing.T) {
	w := serveWithSession(t, &mockSessionRepository{}, nil, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("401レスポンスのJSONパースに失敗: %v\nraw: %s", err, w.Body.String())
	}
	if body.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want %q", body.Code, "UNAUTHORIZED")
	}
}

func TestUserIDFromContext_NoValue_ReturnsError(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for missing user ID in context")
	}
}

func TestUserIDFromContext_ValidValue_ReturnsUserID(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-456")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if userID != "user-456" {
		t.Errorf("userID = %q, want %q", userID, "user-456")
	}
}
