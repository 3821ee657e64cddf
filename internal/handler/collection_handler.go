package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mediashelf/internal/collection"
	"github.com/hitoshi/mediashelf/internal/middleware"
	"github.com/hitoshi/mediashelf/internal/model"
)

// CollectionServiceInterface はコレクションハンドラーが必要とするサービスインターフェース。
type CollectionServiceInterface interface {
	Create(ctx context.Context, userID string, input collection.CreateInput) (*model.Collection, error)
	Get(ctx context.Context, userID, collectionID string) (*model.Collection, error)
	List(ctx context.Context, userID string) ([]*model.Collection, error)
	Update(ctx context.Context, userID, collectionID string, input collection.UpdateInput) (*model.Collection, error)
	Delete(ctx context.Context, userID, collectionID string) error
	AddItem(ctx context.Context, userID, collectionID, mediaLogID string) (*model.CollectionItem, error)
	RemoveItem(ctx context.Context, userID, collectionID, mediaLogID string) error
	ListItems(ctx context.Context, userID, collectionID string) ([]*model.CollectionItem, error)
}

// CollectionHandler はコレクション管理のHTTPハンドラー。
type CollectionHandler struct {
	service CollectionServiceInterface
}

// NewCollectionHandler はCollectionHandlerを生成する。
func NewCollectionHandler(service CollectionServiceInterface) *CollectionHandler {
	return &CollectionHandler{service: service}
}

// createCollectionRequest はコレクション作成リクエストのボディ。
type createCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
	IsPrivate   bool   `json:"is_private"`
}

// updateCollectionRequest はコレクション部分更新リクエストのボディ。
type updateCollectionRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Emoji       *string `json:"emoji"`
	IsPrivate   *bool   `json:"is_private"`
}

// addItemRequest はコレクションへのログ追加リクエストのボディ。
type addItemRequest struct {
	MediaLogID string `json:"media_log_id"`
}

// collectionResponse はコレクションのAPIレスポンス。
type collectionResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Emoji       string    `json:"emoji,omitempty"`
	IsPrivate   bool      `json:"is_private"`
	CreatedAt   time.Time `json:"created_at"`
}

// collectionItemResponse はコレクション所属情報のAPIレスポンス。
type collectionItemResponse struct {
	ID           string            `json:"id"`
	CollectionID string            `json:"collection_id"`
	MediaLogID   string            `json:"media_log_id"`
	AddedAt      time.Time         `json:"added_at"`
	MediaLog     *mediaLogResponse `json:"media_log,omitempty"`
}

// CreateCollection はコレクションの作成を処理する。
// POST /api/collections
func (h *CollectionHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req createCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	created, err := h.service.Create(r.Context(), userID, collection.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Emoji:       req.Emoji,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCollectionResponse(created))
}

// ListCollections はユーザーのコレクション一覧を取得する。
// GET /api/collections
func (h *CollectionHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	collections, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]collectionResponse, 0, len(collections))
	for _, c := range collections {
		resp = append(resp, toCollectionResponse(c))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetCollection はコレクション詳細を取得する。
// GET /api/collections/:id
func (h *CollectionHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	found, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCollectionResponse(found))
}

// UpdateCollection はコレクションの部分更新を処理する。
// PATCH /api/collections/:id
func (h *CollectionHandler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req updateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), collection.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Emoji:       req.Emoji,
		IsPrivate:   req.IsPrivate,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCollectionResponse(updated))
}

// DeleteCollection はコレクションの削除を処理する。所属するログ自体は削除されない。
// DELETE /api/collections/:id
func (h *CollectionHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddItem はコレクションへのログ追加を処理する。
// POST /api/collections/:id/items
func (h *CollectionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}
	if req.MediaLogID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewValidationError("media_log_idが指定されていません"))
		return
	}

	item, err := h.service.AddItem(r.Context(), userID, chi.URLParam(r, "id"), req.MediaLogID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCollectionItemResponse(item))
}

// RemoveItem はコレクションからのログ削除を処理する。
// DELETE /api/collections/:id/items/:logID
func (h *CollectionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	err = h.service.RemoveItem(r.Context(), userID, chi.URLParam(r, "id"), chi.URLParam(r, "logID"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListItems はコレクションの所属一覧を取得する。
// GET /api/collections/:id/items
func (h *CollectionHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	items, err := h.service.ListItems(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]collectionItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toCollectionItemResponse(item))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func toCollectionResponse(c *model.Collection) collectionResponse {
	return collectionResponse{
		ID:          c.ID,
		UserID:      c.UserID,
		Name:        c.Name,
		Description: c.Description,
		Emoji:       c.Emoji,
		IsPrivate:   c.IsPrivate,
		CreatedAt:   c.CreatedAt,
	}
}

func toCollectionItemResponse(item *model.CollectionItem) collectionItemResponse {
	resp := collectionItemResponse{
		ID:           item.ID,
		CollectionID: item.CollectionID,
		MediaLogID:   item.MediaLogID,
		AddedAt:      item.AddedAt,
	}
	if item.MediaLog != nil {
		logResp := toMediaLogResponse(item.MediaLog)
		resp.MediaLog = &logResp
	}
	return resp
}
