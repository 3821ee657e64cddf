package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/mediashelf/internal/catalog"
	"github.com/hitoshi/mediashelf/internal/middleware"
)

// PodcastFeedProberInterface はポッドキャストフィード検証のインターフェース。
type PodcastFeedProberInterface interface {
	// DetectFeedURL はURLがフィードかHTMLかを判定し、フィードURLを返す。
	DetectFeedURL(ctx context.Context, inputURL string) (string, error)
	// ProbeFeed はフィードURLを取得・パースし、有効なフィードであることを確認する。
	ProbeFeed(ctx context.Context, feedURL string) (*catalog.FeedInfo, error)
}

// PodcastFeedHandler はポッドキャストフィード検証のHTTPハンドラー。
// iTunes検索結果のfeedUrlや配信サイトURLを、ログ作成前に検証する用途で使う。
type PodcastFeedHandler struct {
	prober PodcastFeedProberInterface
}

// NewPodcastFeedHandler はPodcastFeedHandlerを生成する。
func NewPodcastFeedHandler(prober PodcastFeedProberInterface) *PodcastFeedHandler {
	return &PodcastFeedHandler{prober: prober}
}

// podcastFeedResponse はフィード検証結果のAPIレスポンス。
type podcastFeedResponse struct {
	FeedURL      string `json:"feed_url"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	CoverURL     string `json:"cover_url,omitempty"`
	EpisodeCount int    `json:"episode_count"`
}

// Probe はポッドキャストフィードの検証を処理する。
// GET /api/search/podcast-feed?url=https://example.com/feed.xml
// urlにはフィードURLまたは配信サイトのURLを指定できる。
// 配信サイトURLの場合はHTMLのlink要素からフィードを自動検出する。
func (h *PodcastFeedHandler) Probe(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.UserIDFromContext(r.Context()); err != nil {
		writeUnauthorizedResponse(w)
		return
	}

	inputURL := r.URL.Query().Get("url")

	feedURL, err := h.prober.DetectFeedURL(r.Context(), inputURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	info, err := h.prober.ProbeFeed(r.Context(), feedURL)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := podcastFeedResponse{
		FeedURL:      info.FeedURL,
		Title:        info.Title,
		Description:  info.Description,
		CoverURL:     info.CoverURL,
		EpisodeCount: info.EpisodeCount,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
