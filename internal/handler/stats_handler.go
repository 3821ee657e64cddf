package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/mediashelf/internal/middleware"
	"github.com/hitoshi/mediashelf/internal/stats"
)

// StatsServiceInterface は統計ハンドラーが必要とするサービスインターフェース。
type StatsServiceInterface interface {
	Summary(ctx context.Context, userID string) (*stats.Summary, error)
}

// StatsHandler は視聴・読書統計のHTTPハンドラー。
type StatsHandler struct {
	service StatsServiceInterface
}

// NewStatsHandler はStatsHandlerを生成する。
func NewStatsHandler(service StatsServiceInterface) *StatsHandler {
	return &StatsHandler{service: service}
}

// GetStats はユーザーの記録統計サマリーを返す。
// GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
