package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/hitoshi/mediashelf/internal/model"
)

// tmdbImageBase はTMDBのポスター画像URLのベース。
// サイズセグメント（w500等）を連結して使用する。
const tmdbImageBase = "https://image.tmdb.org/t/p/"

// TMDBMovieRecord はTMDB映画検索APIの1レコードを表す。
type TMDBMovieRecord struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	ReleaseDate  string  `json:"release_date"`
	VoteAverage  float64 `json:"vote_average"`
}

// TMDBTVRecord はTMDBテレビ検索APIの1レコードを表す。
// 映画と異なりタイトルはnameフィールド、初放送日はfirst_air_dateに入る。
type TMDBTVRecord struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	FirstAirDate string  `json:"first_air_date"`
	VoteAverage  float64 `json:"vote_average"`
}

// tmdbCoverURL はポスター画像URLを組み立てる。
// 高解像度のposter_pathを優先し、なければbackdrop_pathにフォールバックする。
// どちらもない場合は空文字列（カバーなし）を返す。
func tmdbCoverURL(posterPath, backdropPath string) string {
	if posterPath != "" {
		return tmdbImageBase + "w500" + posterPath
	}
	if backdropPath != "" {
		return tmdbImageBase + "w300" + backdropPath
	}
	return ""
}

// NormalizeMovie はTMDB映画レコードをSearchResultに正規化する。
// タイトルまたはIDを欠くレコードにはNormalizationErrorを返す。
func NormalizeMovie(rec TMDBMovieRecord) (model.SearchResult, error) {
	if rec.Title == "" {
		return model.SearchResult{}, model.NewNormalizationError("tmdb", "タイトルがありません")
	}
	if rec.ID == 0 {
		return model.SearchResult{}, model.NewNormalizationError("tmdb", "識別子がありません")
	}

	externalID := itoa64(rec.ID)
	return model.SearchResult{
		ID:             "tmdb-movie-" + externalID,
		Title:          rec.Title,
		MediaType:      model.MediaTypeMovie,
		Description:    rec.Overview,
		CoverURL:       tmdbCoverURL(rec.PosterPath, rec.BackdropPath),
		Year:           yearFromDate(rec.ReleaseDate),
		Rating:         rec.VoteAverage,
		ExternalID:     externalID,
		ExternalSource: "tmdb",
	}, nil
}

// NormalizeTV はTMDBテレビレコードをSearchResultに正規化する。
func NormalizeTV(rec TMDBTVRecord) (model.SearchResult, error) {
	if rec.Name == "" {
		return model.SearchResult{}, model.NewNormalizationError("tmdb", "タイトルがありません")
	}
	if rec.ID == 0 {
		return model.SearchResult{}, model.NewNormalizationError("tmdb", "識別子がありません")
	}

	externalID := itoa64(rec.ID)
	return model.SearchResult{
		ID:             "tmdb-tv-" + externalID,
		Title:          rec.Name,
		MediaType:      model.MediaTypeTV,
		Description:    rec.Overview,
		CoverURL:       tmdbCoverURL(rec.PosterPath, rec.BackdropPath),
		Year:           yearFromDate(rec.FirstAirDate),
		Rating:         rec.VoteAverage,
		ExternalID:     externalID,
		ExternalSource: "tmdb",
	}, nil
}

// TMDBSource はTMDBの映画またはテレビ検索を行うSource実装。
type TMDBSource struct {
	mediaType model.MediaType
	baseURL   string
	apiKey    string
	client    *http.Client
}

// NewTMDBMovieSource は映画検索用のTMDBソースを生成する。
func NewTMDBMovieSource(baseURL, apiKey string, client *http.Client) *TMDBSource {
	return &TMDBSource{mediaType: model.MediaTypeMovie, baseURL: baseURL, apiKey: apiKey, client: client}
}

// NewTMDBTVSource はテレビ検索用のTMDBソースを生成する。
func NewTMDBTVSource(baseURL, apiKey string, client *http.Client) *TMDBSource {
	return &TMDBSource{mediaType: model.MediaTypeTV, baseURL: baseURL, apiKey: apiKey, client: client}
}

// Name はソース識別名を返す。
func (s *TMDBSource) Name() string { return "tmdb" }

// MediaType は担当メディア種別を返す。
func (s *TMDBSource) MediaType() model.MediaType { return s.mediaType }

// Search はTMDBの検索APIを呼び出し、正規化済みの結果を返す。
// 正規化に失敗した個別レコードはスキップされる（検索全体は失敗しない）。
func (s *TMDBSource) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	path := "/search/movie"
	if s.mediaType == model.MediaTypeTV {
		path = "/search/tv"
	}

	q := url.Values{}
	q.Set("query", query)
	q.Set("api_key", s.apiKey)

	body, err := fetchJSON(ctx, s.client, "tmdb", s.baseURL+path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	if s.mediaType == model.MediaTypeTV {
		var payload struct {
			Results []TMDBTVRecord `json:"results"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, decodeError("tmdb", err)
		}
		results := make([]model.SearchResult, 0, len(payload.Results))
		for _, rec := range payload.Results {
			r, err := NormalizeTV(rec)
			if err != nil {
				continue
			}
			results = append(results, r)
		}
		return results, nil
	}

	var payload struct {
		Results []TMDBMovieRecord `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, decodeError("tmdb", err)
	}
	results := make([]model.SearchResult, 0, len(payload.Results))
	for _, rec := range payload.Results {
		r, err := NormalizeMovie(rec)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

var _ Source = (*TMDBSource)(nil)
