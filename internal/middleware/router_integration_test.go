package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mediashelf/internal/model"
)

// TestRouterIntegration_CSRFTokenEndpoint はCSRFトークン取得エンドポイントが
// chi.Routerで正しく動作することを検証する。
func TestRouterIntegration_CSRFTokenEndpoint(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/csrf-token", NewCSRFTokenHandler(CSRFConfig{CookieSecure: false}).ServeHTTP)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Token == "" {
		t.Error("expected non-empty token")
	}
}

// TestRouterIntegration_AuthAndCSRFChain はSession -> CSRFのミドルウェアチェーンが
// chi.Routerの認証グループで正しく組み合わさることを検証する。
func TestRouterIntegration_AuthAndCSRFChain(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id != "router-test-session" {
				return nil, nil
			}
			return &model.Session{
				ID:        "router-test-session",
				UserID:    "user-router-test",
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	csrfConfig := CSRFConfig{CookieSecure: false}

	r := chi.NewRouter()
	r.Get("/api/csrf-token", NewCSRFTokenHandler(csrfConfig).ServeHTTP)
	r.Group(func(r chi.Router) {
		r.Use(NewSessionMiddleware(repo))
		r.Use(NewCSRFMiddleware(csrfConfig))

		r.Get("/api/logs", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
		})
		r.Post("/api/logs", func(w http.ResponseWriter, r *http.Request) {
			userID, _ := UserIDFromContext(r.Context())
			json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
		})
	})

	sessionCookie := &http.Cookie{Name: "session_id", Value: "router-test-session"}
	csrfCookie := &http.Cookie{Name: csrfCookieName, Value: "test-csrf-token"}

	tests := []struct {
		name       string
		method     string
		path       string
		cookies    []*http.Cookie
		csrfHeader string
		wantStatus int
	}{
		{
			name:       "GETは認証ありCSRFなしで通る",
			method:     http.MethodGet,
			path:       "/api/logs",
			cookies:    []*http.Cookie{sessionCookie},
			wantStatus: http.StatusOK,
		},
		{
			name:       "GETは認証なしで401",
			method:     http.MethodGet,
			path:       "/api/logs",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "POSTは認証とCSRFトークンで通る",
			method:     http.MethodPost,
			path:       "/api/logs",
			cookies:    []*http.Cookie{sessionCookie, csrfCookie},
			csrfHeader: "test-csrf-token",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POSTはCSRFトークンなしで403",
			method:     http.MethodPost,
			path:       "/api/logs",
			cookies:    []*http.Cookie{sessionCookie},
			wantStatus: http.StatusForbidden,
		},
		{
			// CSRFチェックより先にセッションチェックが走る
			name:       "POSTは認証なしで401",
			method:     http.MethodPost,
			path:       "/api/logs",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "トークンエンドポイントは認証不要",
			method:     http.MethodGet,
			path:       "/api/csrf-token",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			for _, c := range tt.cookies {
				req.AddCookie(c)
			}
			if tt.csrfHeader != "" {
				req.Header.Set(csrfHeaderName, tt.csrfHeader)
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			if w.Result().StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, tt.wantStatus)
			}
		})
	}

	t.Run("認証済みリクエストにユーザーIDが注入される", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/logs", nil)
		req.AddCookie(sessionCookie)
		w := httptest.NewRecorder()

		r.ServeHTTP(w, req)

		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if body["user_id"] != "user-router-test" {
			t.Errorf("user_id = %q, want %q", body["user_id"], "user-router-test")
		}
	})
}
