package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/mediashelf/internal/model"
)

func TestSetupAuthRoutes(t *testing.T) {
	svc := &mockAuthService{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
		handleCallbackFn: func(ctx context.Context, code string) (*model.Session, error) {
			return &model.Session{
				ID:        "session-123",
				UserID:    "user-123",
				ExpiresAt: time.Now().Add(24 * time.Hour),
			}, nil
		},
		getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
			return &model.User{ID: "user-me", Email: "me@example.com", DisplayName: "Me"}, nil
		},
	}
	router := SetupAuthRoutes(svc, AuthHandlerConfig{
		BaseURL:       "http://localhost:3000",
		SessionMaxAge: 86400,
	})

	tests := []struct {
		name       string
		method     string
		target     string
		cookie     *http.Cookie
		wantStatus int
	}{
		{
			name:       "ログイン開始はGoogleへリダイレクト",
			method:     http.MethodGet,
			target:     "/auth/google/login",
			wantStatus: http.StatusTemporaryRedirect,
		},
		{
			name:       "コールバック成功はフロントへリダイレクト",
			method:     http.MethodGet,
			target:     "/auth/google/callback?code=test&state=valid",
			cookie:     &http.Cookie{Name: "oauth_state", Value: "valid"},
			wantStatus: http.StatusTemporaryRedirect,
		},
		{
			name:       "ログアウト",
			method:     http.MethodPost,
			target:     "/auth/logout",
			cookie:     &http.Cookie{Name: "session_id", Value: "session-123"},
			wantStatus: http.StatusTemporaryRedirect,
		},
		{
			name:       "現在のユーザー取得",
			method:     http.MethodGet,
			target:     "/auth/me",
			cookie:     &http.Cookie{Name: "session_id", Value: "valid-session"},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if got := w.Result().StatusCode; got != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.target, got, tt.wantStatus)
			}
		})
	}

	t.Run("未定義ルートは404か405", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/unknown", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Result().StatusCode; got != http.StatusNotFound && got != http.StatusMethodNotAllowed {
			t.Errorf("GET /auth/unknown status = %d, want 404 or 405", got)
		}
	})
}
