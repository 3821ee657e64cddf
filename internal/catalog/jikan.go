package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/hitoshi/mediashelf/internal/model"
)

// JikanAnimeRecord はJikan API（MyAnimeListの非公式API）のアニメ検索1レコードを表す。
type JikanAnimeRecord struct {
	MalID    int64   `json:"mal_id"`
	Title    string  `json:"title"`
	Synopsis string  `json:"synopsis"`
	Score    float64 `json:"score"`
	Images   struct {
		JPG struct {
			ImageURL      string `json:"image_url"`
			LargeImageURL string `json:"large_image_url"`
		} `json:"jpg"`
	} `json:"images"`
	Aired struct {
		From string `json:"from"`
	} `json:"aired"`
}

// NormalizeAnime はJikanアニメレコードをSearchResultに正規化する。
// カバーは高解像度のlarge_image_urlを優先し、image_urlにフォールバックする。
func NormalizeAnime(rec JikanAnimeRecord) (model.SearchResult, error) {
	if rec.Title == "" {
		return model.SearchResult{}, model.NewNormalizationError("jikan", "タイトルがありません")
	}
	if rec.MalID == 0 {
		return model.SearchResult{}, model.NewNormalizationError("jikan", "識別子がありません")
	}

	coverURL := rec.Images.JPG.LargeImageURL
	if coverURL == "" {
		coverURL = rec.Images.JPG.ImageURL
	}

	externalID := itoa64(rec.MalID)
	return model.SearchResult{
		ID:             "jikan-" + externalID,
		Title:          rec.Title,
		MediaType:      model.MediaTypeAnime,
		Description:    rec.Synopsis,
		CoverURL:       coverURL,
		Year:           yearFromDate(rec.Aired.From),
		Rating:         rec.Score,
		ExternalID:     externalID,
		ExternalSource: "jikan",
	}, nil
}

// JikanSource はJikan APIでアニメ検索を行うSource実装。
type JikanSource struct {
	baseURL string
	client  *http.Client
}

// NewJikanSource はアニメ検索用のJikanソースを生成する。
func NewJikanSource(baseURL string, client *http.Client) *JikanSource {
	return &JikanSource{baseURL: baseURL, client: client}
}

// Name はソース識別名を返す。
func (s *JikanSource) Name() string { return "jikan" }

// MediaType は担当メディア種別を返す。
func (s *JikanSource) MediaType() model.MediaType { return model.MediaTypeAnime }

// Search はJikanのアニメ検索APIを呼び出し、正規化済みの結果を返す。
func (s *JikanSource) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)

	body, err := fetchJSON(ctx, s.client, "jikan", s.baseURL+"/anime?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []JikanAnimeRecord `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, decodeError("jikan", err)
	}

	results := make([]model.SearchResult, 0, len(payload.Data))
	for _, rec := range payload.Data {
		r, err := NormalizeAnime(rec)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

var _ Source = (*JikanSource)(nil)
