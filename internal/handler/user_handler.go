package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/hitoshi/mediashelf/internal/middleware"
	"github.com/hitoshi/mediashelf/internal/model"
	"github.com/hitoshi/mediashelf/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	Get(ctx context.Context, userID string) (*model.User, error)
	UpdateProfile(ctx context.Context, userID string, input user.UpdateProfileInput) (*model.User, error)
	UpdateAvatarURL(ctx context.Context, userID, avatarURL string) (*model.User, error)
	// Withdraw はユーザーの退会処理を実行する。
	// media_logs、collections、sessions、userを一括削除する。
	Withdraw(ctx context.Context, userID string) error
}

// AvatarServiceInterface はアバター画像アップロードのサービスインターフェース。
type AvatarServiceInterface interface {
	Upload(ctx context.Context, data []byte, userID string) (string, error)
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service      UserServiceInterface
	avatars      AvatarServiceInterface
	cookieDomain string
	cookieSecure bool
	maxAvatarLen int64
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, avatars AvatarServiceInterface, cookieDomain string, cookieSecure bool, maxAvatarLen int64) *UserHandler {
	return &UserHandler{
		service:      service,
		avatars:      avatars,
		cookieDomain: cookieDomain,
		cookieSecure: cookieSecure,
		maxAvatarLen: maxAvatarLen,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
type updateProfileRequest struct {
	DisplayName  *string `json:"display_name"`
	Bio          *string `json:"bio"`
	RatingSystem *string `json:"rating_system"`
}

// userResponse はユーザープロフィールのAPIレスポンス。
type userResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Bio          string    `json:"bio,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	RatingSystem string    `json:"rating_system"`
	CreatedAt    time.Time `json:"created_at"`
}

// GetProfile は自分のプロフィールを取得する。
// GET /api/users/me
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	found, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(found))
}

// UpdateProfile はプロフィールの部分更新を処理する。
// PATCH /api/users/me
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	input := user.UpdateProfileInput{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
	}
	if req.RatingSystem != nil {
		system := model.RatingSystem(*req.RatingSystem)
		input.RatingSystem = &system
	}

	updated, err := h.service.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(updated))
}

// UploadAvatar はアバター画像のアップロードを処理する。
// ボディは画像バイナリそのもの（multipartではない）。
// POST /api/users/me/avatar
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	// サイズ上限+1まで読み、超過はサービス層の検証に委ねる
	data, err := io.ReadAll(io.LimitReader(r.Body, h.maxAvatarLen+1))
	if err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	avatarURL, err := h.avatars.Upload(r.Context(), data, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if _, err := h.service.UpdateAvatarURL(r.Context(), userID, avatarURL); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"avatar_url": avatarURL})
}

// Withdraw はユーザーの退会処理を実行する。セッションCookieもクリアする。
// DELETE /api/users/me
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	if err := h.service.Withdraw(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.cookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	w.WriteHeader(http.StatusNoContent)
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:           u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Bio:          u.Bio,
		AvatarURL:    u.AvatarURL,
		RatingSystem: string(u.RatingSystem),
		CreatedAt:    u.CreatedAt,
	}
}
