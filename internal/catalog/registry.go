package catalog

import (
	"net/http"

	"github.com/hitoshi/mediashelf/internal/config"
	"github.com/hitoshi/mediashelf/internal/model"
)

// NewRegistry は設定から全メディア種別のソースを構築する。
// clientにはSSRF防止付きのHTTPクライアントを渡すこと
// （テストではhttptestサーバー向けの素のクライアントを渡す）。
func NewRegistry(cfg *config.Config, client *http.Client) Registry {
	return Registry{
		model.MediaTypeMovie:   NewTMDBMovieSource(cfg.TMDBBaseURL, cfg.TMDBAPIKey, client),
		model.MediaTypeTV:      NewTMDBTVSource(cfg.TMDBBaseURL, cfg.TMDBAPIKey, client),
		model.MediaTypeAnime:   NewJikanSource(cfg.JikanBaseURL, client),
		model.MediaTypeBook:    NewOpenLibrarySource(cfg.OpenLibraryBaseURL, client),
		model.MediaTypeGame:    NewRAWGSource(cfg.RAWGBaseURL, cfg.RAWGAPIKey, client),
		model.MediaTypePodcast: NewITunesSource(cfg.ITunesBaseURL, client),
	}
}
