package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/hitoshi/mediashelf/internal/middleware"
	"github.com/hitoshi/mediashelf/internal/model"
)

// SearchServiceInterface は検索ハンドラーが必要とするサービスインターフェース。
type SearchServiceInterface interface {
	// SearchOnce は指定メディア種別のカタログを横断検索する。
	SearchOnce(ctx context.Context, query string, types []model.MediaType) ([]model.SearchResult, error)
}

// SearchRecorder は検索リクエストのメトリクス記録インターフェース。nil可。
type SearchRecorder interface {
	RecordSearch()
}

// SearchHandler は外部カタログ横断検索のHTTPハンドラー。
type SearchHandler struct {
	service  SearchServiceInterface
	recorder SearchRecorder
}

// NewSearchHandler はSearchHandlerを生成する。
func NewSearchHandler(service SearchServiceInterface, recorder SearchRecorder) *SearchHandler {
	return &SearchHandler{
		service:  service,
		recorder: recorder,
	}
}

// searchResultResponse は検索結果1件のAPIレスポンス。
type searchResultResponse struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Subtitle       string  `json:"subtitle,omitempty"`
	MediaType      string  `json:"media_type"`
	Description    string  `json:"description,omitempty"`
	CoverURL       string  `json:"cover_url,omitempty"`
	Year           int     `json:"year,omitempty"`
	Rating         float64 `json:"rating,omitempty"`
	ExternalID     string  `json:"external_id"`
	ExternalSource string  `json:"external_source"`
}

// searchResponse は検索レスポンス全体。
type searchResponse struct {
	Query   string                 `json:"query"`
	Results []searchResultResponse `json:"results"`
}

// Search は外部カタログの横断検索を処理する。
// GET /api/search?q=dune&types=movie,book
// typesを省略した場合は全メディア種別が対象になる。
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	_, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	query := r.URL.Query().Get("q")
	types := parseMediaTypes(r.URL.Query().Get("types"))

	if h.recorder != nil {
		h.recorder.RecordSearch()
	}

	results, err := h.service.SearchOnce(r.Context(), query, types)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := searchResponse{
		Query:   query,
		Results: make([]searchResultResponse, 0, len(results)),
	}
	for _, result := range results {
		resp.Results = append(resp.Results, toSearchResultResponse(result))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// parseMediaTypes はカンマ区切りのtypesパラメータを解析する。
// 空文字列はnil（全種別対象）を返す。不正な値の検証はサービス層が行う。
func parseMediaTypes(raw string) []model.MediaType {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	types := make([]model.MediaType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		types = append(types, model.MediaType(part))
	}
	return types
}

func toSearchResultResponse(result model.SearchResult) searchResultResponse {
	return searchResultResponse{
		ID:             result.ID,
		Title:          result.Title,
		Subtitle:       result.Subtitle,
		MediaType:      string(result.MediaType),
		Description:    result.Description,
		CoverURL:       result.CoverURL,
		Year:           result.Year,
		Rating:         result.Rating,
		ExternalID:     result.ExternalID,
		ExternalSource: result.ExternalSource,
	}
}
