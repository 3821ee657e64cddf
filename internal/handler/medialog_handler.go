package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mediashelf/internal/medialog"
	"github.com/hitoshi/mediashelf/internal/middleware"
	"github.com/hitoshi/mediashelf/internal/model"
	"github.com/hitoshi/mediashelf/internal/repository"
)

// MediaLogServiceInterface はメディアログハンドラーが必要とするサービスインターフェース。
type MediaLogServiceInterface interface {
	Create(ctx context.Context, userID string, input medialog.CreateInput) (*model.MediaLog, error)
	Get(ctx context.Context, userID, logID string) (*model.MediaLog, error)
	List(ctx context.Context, userID string, filter repository.MediaLogFilter) ([]*model.MediaLog, error)
	Update(ctx context.Context, userID, logID string, input medialog.UpdateInput) (*model.MediaLog, error)
	Delete(ctx context.Context, userID, logID string) error
}

// LogCreatedRecorder はログ作成のメトリクス記録インターフェース。nil可。
type LogCreatedRecorder interface {
	RecordLogCreated(mediaType string)
}

// MediaLogHandler はメディアログ管理のHTTPハンドラー。
type MediaLogHandler struct {
	service  MediaLogServiceInterface
	recorder LogCreatedRecorder
}

// NewMediaLogHandler はMediaLogHandlerを生成する。
func NewMediaLogHandler(service MediaLogServiceInterface, recorder LogCreatedRecorder) *MediaLogHandler {
	return &MediaLogHandler{
		service:  service,
		recorder: recorder,
	}
}

// createLogRequest はログ作成リクエストのボディ。
type createLogRequest struct {
	Title          string   `json:"title"`
	MediaType      string   `json:"media_type"`
	ExternalID     string   `json:"external_id"`
	ExternalSource string   `json:"external_source"`
	CoverURL       string   `json:"cover_url"`
	Notes          string   `json:"notes"`
	Rating         *float64 `json:"rating"`
	Status         string   `json:"status"`
	DateLogged     string   `json:"date_logged"` // RFC 3339。省略時は現在時刻
	Tags           []string `json:"tags"`
	Mood           string   `json:"mood"`
	Quote          string   `json:"quote"`
	IsPrivate      bool     `json:"is_private"`
}

// updateLogRequest はログ部分更新リクエストのボディ。
// nilフィールドは変更しない。user_idとmedia_typeの指定は変更試行として拒否される。
type updateLogRequest struct {
	UserID      *string   `json:"user_id"`
	MediaType   *string   `json:"media_type"`
	Notes       *string   `json:"notes"`
	Rating      *float64  `json:"rating"`
	ClearRating bool      `json:"clear_rating"`
	Status      *string   `json:"status"`
	Tags        *[]string `json:"tags"`
	Mood        *string   `json:"mood"`
	Quote       *string   `json:"quote"`
	IsPrivate   *bool     `json:"is_private"`
	DateLogged  *string   `json:"date_logged"`
	CoverURL    *string   `json:"cover_url"`
}

// mediaLogResponse はメディアログのAPIレスポンス。
type mediaLogResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Title          string    `json:"title"`
	MediaType      string    `json:"media_type"`
	ExternalID     string    `json:"external_id,omitempty"`
	ExternalSource string    `json:"external_source,omitempty"`
	CoverURL       string    `json:"cover_url,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Rating         *float64  `json:"rating"`
	Status         string    `json:"status"`
	DateLogged     time.Time `json:"date_logged"`
	Tags           []string  `json:"tags"`
	Mood           string    `json:"mood,omitempty"`
	Quote          string    `json:"quote,omitempty"`
	IsPrivate      bool      `json:"is_private"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateLog はメディアログの作成を処理する。
// POST /api/logs
func (h *MediaLogHandler) CreateLog(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req createLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	input := medialog.CreateInput{
		Title:          req.Title,
		MediaType:      model.MediaType(req.MediaType),
		ExternalID:     req.ExternalID,
		ExternalSource: req.ExternalSource,
		CoverURL:       req.CoverURL,
		Notes:          req.Notes,
		Rating:         req.Rating,
		Status:         model.MediaStatus(req.Status),
		Tags:           req.Tags,
		Mood:           req.Mood,
		Quote:          req.Quote,
		IsPrivate:      req.IsPrivate,
	}
	if req.DateLogged != "" {
		dateLogged, err := time.Parse(time.RFC3339, req.DateLogged)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("date_loggedはRFC 3339形式で指定してください"))
			return
		}
		input.DateLogged = dateLogged
	}

	log, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordLogCreated(string(log.MediaType))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toMediaLogResponse(log))
}

// ListLogs はユーザーのログ一覧を取得する。
// GET /api/logs?media_type=movie&status=completed
func (h *MediaLogHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	filter := repository.MediaLogFilter{
		MediaType: model.MediaType(r.URL.Query().Get("media_type")),
		Status:    model.MediaStatus(r.URL.Query().Get("status")),
	}

	logs, err := h.service.List(r.Context(), userID, filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]mediaLogResponse, 0, len(logs))
	for _, log := range logs {
		resp = append(resp, toMediaLogResponse(log))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetLog はログ詳細を取得する。
// GET /api/logs/:id
func (h *MediaLogHandler) GetLog(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	log, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toMediaLogResponse(log))
}

// UpdateLog はログの部分更新を処理する。
// PATCH /api/logs/:id
func (h *MediaLogHandler) UpdateLog(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	var req updateLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestResponse(w)
		return
	}

	input := medialog.UpdateInput{
		UserID: req.UserID,
		MediaLogUpdate: model.MediaLogUpdate{
			Notes:       req.Notes,
			Rating:      req.Rating,
			ClearRating: req.ClearRating,
			Tags:        req.Tags,
			Mood:        req.Mood,
			Quote:       req.Quote,
			IsPrivate:   req.IsPrivate,
			CoverURL:    req.CoverURL,
		},
	}
	if req.MediaType != nil {
		mediaType := model.MediaType(*req.MediaType)
		input.MediaType = &mediaType
	}
	if req.Status != nil {
		status := model.MediaStatus(*req.Status)
		input.Status = &status
	}
	if req.DateLogged != nil {
		dateLogged, err := time.Parse(time.RFC3339, *req.DateLogged)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("date_loggedはRFC 3339形式で指定してください"))
			return
		}
		input.DateLogged = &dateLogged
	}

	log, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toMediaLogResponse(log))
}

// DeleteLog はログの削除を処理する。
// DELETE /api/logs/:id
func (h *MediaLogHandler) DeleteLog(w http.ResponseWriter, r *http.Request) {
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

// toMediaLogResponse はmodel.MediaLogからAPIレスポンスに変換する。
func toMediaLogResponse(log *model.MediaLog) mediaLogResponse {
	tags := log.Tags
	if tags == nil {
		tags = []string{}
	}
	return mediaLogResponse{
		ID:             log.ID,
		UserID:         log.UserID,
		Title:          log.Title,
		MediaType:      string(log.MediaType),
		ExternalID:     log.ExternalID,
		ExternalSource: log.ExternalSource,
		CoverURL:       log.CoverURL,
		Notes:          log.Notes,
		Rating:         log.Rating,
		Status:         string(log.Status),
		DateLogged:     log.DateLogged,
		Tags:           tags,
		Mood:           log.Mood,
		Quote:          log.Quote,
		IsPrivate:      log.IsPrivate,
		CreatedAt:      log.CreatedAt,
		UpdatedAt:      log.UpdatedAt,
	}
}
