package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/mediashelf/internal/model"
)

// rlConfig はテスト用のRateLimiterConfigを組み立てる。
func rlConfig(generalRate float64, generalBurst int, searchRate float64, searchBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(generalRate),
		GeneralBurst:    generalBurst,
		SearchRate:      rate.Limit(searchRate),
		SearchBurst:     searchBurst,
		CleanupInterval: 1 * time.Minute,
	}
}

// okHandler は200を返すだけのハンドラーをレート制限付きで包む。
func okHandler(mw func(http.Handler) http.Handler) http.Handler {
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

// sendAs は指定ユーザーIDをコンテキストに載せてリクエストを送る。
func sendAs(t *testing.T, handler http.Handler, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	if userID != "" {
		req = req.WithContext(ContextWithUserID(req.Context(), userID))
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware_BurstAndRejection(t *testing.T) {
	tests := []struct {
		name        string
		burst       int
		requests    int
		want429From int // このインデックス以降は429（-1なら全て200）
	}{
		{name: "バースト内は全て通る", burst: 5, requests: 5, want429From: -1},
		{name: "バースト超過で429", burst: 2, requests: 3, want429From: 2},
		{name: "バースト1は2回目から429", burst: 1, requests: 3, want429From: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := NewRateLimiter(rlConfig(1, tt.burst, 1, 10))
			defer rl.Stop()
			handler := okHandler(rl.GeneralMiddleware())

			for i := 0; i < tt.requests; i++ {
				w := sendAs(t, handler, "burst-user")
				want := http.StatusOK
				if tt.want429From >= 0 && i >= tt.want429From {
					want = http.StatusTooManyRequests
				}
				if got := w.Result().StatusCode; got != want {
					t.Errorf("request %d: status = %d, want %d", i, got, want)
				}
			}
		})
	}
}

func TestRateLimitMiddleware_429IncludesRetryAfter(t *testing.T) {
	rl := NewRateLimiter(rlConfig(1, 1, 1, 10))
	defer rl.Stop()
	handler := okHandler(rl.GeneralMiddleware())

	sendAs(t, handler, "user-retry-after")
	w := sendAs(t, handler, "user-retry-after")

	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusTooManyRequests)
	}

	retryAfter := w.Result().Header.Get("Retry-After")
	if retryAfter == "" {
		t.Fatal("expected Retry-After header to be present")
	}
	seconds, err := strconv.Atoi(retryAfter)
	if err != nil {
		t.Fatalf("Retry-After header should be a number, got %q", retryAfter)
	}
	if seconds < 1 {
		t.Errorf("Retry-After = %d, should be at least 1", seconds)
	}
}

func TestRateLimitMiddleware_429ResponseIsJSON(t *testing.T) {
	rl := NewRateLimiter(rlConfig(1, 1, 1, 10))
	defer rl.Stop()
	handler := okHandler(rl.GeneralMiddleware())

	sendAs(t, handler, "user-json")
	w := sendAs(t, handler, "user-json")

	resp := w.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, field := range []string{"code", "message", "category"} {
		if body[field] == "" {
			t.Errorf("expected %q field in error response", field)
		}
	}
}

func TestRateLimitMiddleware_IsolatesUserBuckets(t *testing.T) {
	rl := NewRateLimiter(rlConfig(1, 1, 1, 10))
	defer rl.Stop()
	handler := okHandler(rl.GeneralMiddleware())

	// user-Aはバーストを使い果たす
	if w := sendAs(t, handler, "user-A"); w.Result().StatusCode != http.StatusOK {
		t.Errorf("user-A first request: status = %d, want 200", w.Result().StatusCode)
	}
	if w := sendAs(t, handler, "user-A"); w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("user-A second request: status = %d, want 429", w.Result().StatusCode)
	}

	// user-Bはuser-Aのバケットに影響されない
	if w := sendAs(t, handler, "user-B"); w.Result().StatusCode != http.StatusOK {
		t.Errorf("user-B first request: status = %d, want 200", w.Result().StatusCode)
	}
}

func TestRateLimitMiddleware_NoUserID_Returns401(t *testing.T) {
	rl := NewRateLimiter(rlConfig(2, 5, 1, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called without user ID")
	}))

	w := sendAs(t, handler, "")
	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestSearchRateLimit_UsesSeparateBucket(t *testing.T) {
	// generalとsearch両方バースト1。検索側はgeneralの消費に影響されない。
	rl := NewRateLimiter(rlConfig(1, 1, 1, 1))
	defer rl.Stop()

	generalHandler := okHandler(rl.GeneralMiddleware())
	searchHandler := okHandler(rl.SearchMiddleware())

	if w := sendAs(t, generalHandler, "user-indep"); w.Result().StatusCode != http.StatusOK {
		t.Fatalf("general request: status = %d, want 200", w.Result().StatusCode)
	}
	if w := sendAs(t, searchHandler, "user-indep"); w.Result().StatusCode != http.StatusOK {
		t.Errorf("search should still be allowed: status = %d, want 200", w.Result().StatusCode)
	}

	// 検索バケットも使い果たしたので次は429
	w := sendAs(t, searchHandler, "user-indep")
	if w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("second search: status = %d, want 429", w.Result().StatusCode)
	}
	if w.Result().Header.Get("Retry-After") == "" {
		t.Error("expected Retry-After header on search 429")
	}
}

func TestSearchRateLimit_AllowsBurst(t *testing.T) {
	rl := NewRateLimiter(rlConfig(100, 200, 1, 3))
	defer rl.Stop()

	calls := 0
	handler := rl.SearchMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		if w := sendAs(t, handler, "user-search"); w.Result().StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i, w.Result().StatusCode)
		}
	}
	if calls != 3 {
		t.Errorf("handler call count = %d, want 3", calls)
	}
}

func TestRateLimiter_CleanupEvictsIdleBuckets(t *testing.T) {
	cfg := rlConfig(2, 5, 1, 10)
	cfg.CleanupInterval = 50 * time.Millisecond
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	handler := okHandler(rl.GeneralMiddleware())
	sendAs(t, handler, "user-cleanup")

	if rl.GeneralLimiterCount() == 0 {
		t.Fatal("expected at least one limiter entry")
	}

	// アイドルTTLはクリーンアップ間隔の2倍（100ms）。200ms待てば削除される。
	time.Sleep(200 * time.Millisecond)

	if count := rl.GeneralLimiterCount(); count != 0 {
		t.Errorf("expected 0 limiter entries after cleanup, got %d", count)
	}
}

func TestRateLimitMiddleware_BehindSessionMiddleware(t *testing.T) {
	repo := &mockSessionRepository{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			if id == "rate-limit-session" {
				return &model.Session{
					ID:        "rate-limit-session",
					UserID:    "user-rate-chain",
					ExpiresAt: time.Now().Add(1 * time.Hour),
				}, nil
			}
			return nil, nil
		},
	}

	rl := NewRateLimiter(rlConfig(1, 2, 1, 10))
	defer rl.Stop()

	sessionMW := NewSessionMiddleware(repo)
	corsMW := NewCORSMiddleware("http://localhost:3000")

	// CORS -> Session -> RateLimit -> Handler（ルーターと同じ並び）
	handler := corsMW(sessionMW(rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := UserIDFromContext(r.Context())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"user_id": userID})
	}))))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "rate-limit-session"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 2; i++ {
		if w := send(); w.Result().StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want 200", i, w.Result().StatusCode)
		}
	}
	if w := send(); w.Result().StatusCode != http.StatusTooManyRequests {
		t.Errorf("request 3: status = %d, want 429", w.Result().StatusCode)
	}
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralRate != rate.Limit(2.0) { // 120 req/min
		t.Errorf("GeneralRate = %v, want 2.0", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.SearchRate != rate.Limit(30.0/60.0) { // 30 req/min
		t.Errorf("SearchRate = %v, want 0.5", cfg.SearchRate)
	}
	if cfg.SearchBurst != 30 {
		t.Errorf("SearchBurst = %d, want 30", cfg.SearchBurst)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want 5m", cfg.CleanupInterval)
	}
}
