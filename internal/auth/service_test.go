package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/mediashelf/internal/model"
	"github.com/hitoshi/mediashelf/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.User, error)
	createWithIdentityFn func(ctx context.Context, user *model.User, identity *model.Identity) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, _ *model.User) error { return nil }

func (m *mockUserRepo) DeleteByID(_ context.Context, _ string) error { return nil }

type mockIdentityRepo struct {
	findByProviderFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findByProviderFn != nil {
		return m.findByProviderFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

type mockOAuthProvider struct {
	getLoginURLFn  func(state string) string
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return nil, nil
}

var (
	_ repository.UserRepository     = (*mockUserRepo)(nil)
	_ repository.IdentityRepository = (*mockIdentityRepo)(nil)
	_ repository.SessionRepository  = (*mockSessionRepo)(nil)
	_ OAuthProvider                 = (*mockOAuthProvider)(nil)
)

// --- テストフィクスチャ ---

// callbackFixture はHandleCallbackテストの依存一式と記録領域を持つ。
type callbackFixture struct {
	provider     *mockOAuthProvider
	userRepo     *mockUserRepo
	identityRepo *mockIdentityRepo
	sessionRepo  *mockSessionRepo

	createdUser     *model.User
	createdIdentity *model.Identity
	createdSession  *model.Session
}

// newCallbackFixture は新規ユーザーのハッピーパスを既定とするフィクスチャを返す。
// Google側のユーザー情報はinfoで与える。
func newCallbackFixture(info *OAuthUserInfo) *callbackFixture {
	f := &callbackFixture{}
	f.provider = &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return info, nil
		},
	}
	f.userRepo = &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.User, identity *model.Identity) error {
			f.createdUser = user
			f.createdIdentity = identity
			return nil
		},
	}
	f.identityRepo = &mockIdentityRepo{}
	f.sessionRepo = &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			f.createdSession = session
			return nil
		},
	}
	return f
}

func (f *callbackFixture) service() *Service {
	return NewService(f.provider, f.userRepo, f.identityRepo, f.sessionRepo, ServiceConfig{SessionMaxAge: 86400})
}

// --- テスト ---

func TestGetLoginURL_ReturnsOAuthURL(t *testing.T) {
	provider := &mockOAuthProvider{
		getLoginURLFn: func(state string) string {
			return "https://accounts.google.com/o/oauth2/auth?state=" + state
		},
	}
	svc := NewService(provider, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	got := svc.GetLoginURL("test-state")
	want := "https://accounts.google.com/o/oauth2/auth?state=test-state"
	if got != want {
		t.Errorf("GetLoginURL() = %q, want %q", got, want)
	}
}

func TestHandleCallback_NewUser_CreatesUserAndIdentityAndSession(t *testing.T) {
	f := newCallbackFixture(&OAuthUserInfo{
		ProviderUserID: "google-user-123",
		Email:          "test@example.com",
		Name:           "Test User",
		Provider:       "google",
	})

	session, err := f.service().HandleCallback(context.Background(), "auth-code-123")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session == nil || session.ID == "" || session.UserID == "" {
		t.Fatalf("expected session with ID and user ID, got %+v", session)
	}

	user := f.createdUser
	if user == nil {
		t.Fatal("expected user to be created")
	}
	if user.Email != "test@example.com" || user.DisplayName != "Test User" {
		t.Errorf("created user = %q / %q, want test@example.com / Test User", user.Email, user.DisplayName)
	}
	if user.RatingSystem != model.DefaultRatingSystem {
		t.Errorf("rating system = %q, want %q", user.RatingSystem, model.DefaultRatingSystem)
	}

	identity := f.createdIdentity
	if identity == nil {
		t.Fatal("expected identity to be created")
	}
	if identity.Provider != "google" || identity.ProviderUserID != "google-user-123" {
		t.Errorf("created identity = %q / %q, want google / google-user-123", identity.Provider, identity.ProviderUserID)
	}

	if f.createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if f.createdSession.UserID != user.ID {
		t.Errorf("session userID = %q, want %q", f.createdSession.UserID, user.ID)
	}
	if f.createdSession.ExpiresAt.Before(time.Now()) {
		t.Error("session should not be expired")
	}
}

func TestHandleCallback_ExistingUser_LogsInWithoutCreatingUser(t *testing.T) {
	const existingUserID = "existing-user-id-456"

	f := newCallbackFixture(&OAuthUserInfo{
		ProviderUserID: "google-user-789",
		Email:          "existing@example.com",
		Name:           "Existing User",
		Provider:       "google",
	})
	// identityが既に存在するケース。CreateWithIdentityが呼ばれたらテスト失敗。
	f.identityRepo.findByProviderFn = func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
		return &model.Identity{
			ID:             "identity-id-1",
			UserID:         existingUserID,
			Provider:       provider,
			ProviderUserID: providerUserID,
		}, nil
	}
	f.userRepo.createWithIdentityFn = func(ctx context.Context, user *model.User, identity *model.Identity) error {
		t.Error("CreateWithIdentity should not be called for an existing user")
		return nil
	}

	session, err := f.service().HandleCallback(context.Background(), "auth-code-existing")
	if err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if session == nil || session.UserID != existingUserID {
		t.Fatalf("session userID = %+v, want %q", session, existingUserID)
	}
	if f.createdSession == nil || f.createdSession.UserID != existingUserID {
		t.Errorf("created session = %+v, want userID %q", f.createdSession, existingUserID)
	}
}

func TestHandleCallback_ErrorCases(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *callbackFixture)
	}{
		{
			name: "トークン交換に失敗",
			setup: func(f *callbackFixture) {
				f.provider.exchangeCodeFn = func(ctx context.Context, code string) (*OAuthUserInfo, error) {
					return nil, errors.New("oauth exchange failed")
				}
			},
		},
		{
			name: "ユーザー作成に失敗",
			setup: func(f *callbackFixture) {
				f.userRepo.createWithIdentityFn = func(ctx context.Context, user *model.User, identity *model.Identity) error {
					return errors.New("db error")
				}
			},
		},
		{
			name: "identity検索に失敗",
			setup: func(f *callbackFixture) {
				f.identityRepo.findByProviderFn = func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
					return nil, errors.New("db error")
				}
			},
		},
		{
			name: "セッション作成に失敗",
			setup: func(f *callbackFixture) {
				f.sessionRepo.createFn = func(ctx context.Context, session *model.Session) error {
					return errors.New("db error")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCallbackFixture(&OAuthUserInfo{
				ProviderUserID: "google-user-err",
				Email:          "error@example.com",
				Name:           "Error User",
				Provider:       "google",
			})
			tt.setup(f)

			if _, err := f.service().HandleCallback(context.Background(), "auth-code-err"); err == nil {
				t.Fatal("expected error from HandleCallback")
			}
		})
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	var deletedSessionID string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedSessionID = id
			return nil
		},
	}
	svc := NewService(nil, nil, nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.Logout(context.Background(), "session-to-delete"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deletedSessionID != "session-to-delete" {
		t.Errorf("deleted session ID = %q, want %q", deletedSessionID, "session-to-delete")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(nil, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestGetCurrentUser(t *testing.T) {
	const userID = "user-id-123"

	validSessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: userID, ExpiresAt: time.Now().Add(1 * time.Hour)}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "user@example.com", DisplayName: "Test User"}, nil
		},
	}

	t.Run("有効なセッションならユーザーを返す", func(t *testing.T) {
		svc := NewService(nil, userRepo, nil, validSessionRepo, ServiceConfig{SessionMaxAge: 86400})

		user, err := svc.GetCurrentUser(context.Background(), "session-valid")
		if err != nil {
			t.Fatalf("GetCurrentUser() error = %v", err)
		}
		if user == nil || user.ID != userID {
			t.Fatalf("user = %+v, want ID %q", user, userID)
		}
	})

	t.Run("期限切れセッションはエラー", func(t *testing.T) {
		// 期限切れセッションはリポジトリがnilを返す
		expiredRepo := &mockSessionRepo{}
		svc := NewService(nil, userRepo, nil, expiredRepo, ServiceConfig{SessionMaxAge: 86400})

		if _, err := svc.GetCurrentUser(context.Background(), "expired-session"); err == nil {
			t.Fatal("expected error for expired session")
		}
	})

	t.Run("空のセッションIDはエラー", func(t *testing.T) {
		svc := NewService(nil, nil, nil, nil, ServiceConfig{SessionMaxAge: 86400})

		if _, err := svc.GetCurrentUser(context.Background(), ""); err == nil {
			t.Fatal("expected error for empty session ID")
		}
	})
}
