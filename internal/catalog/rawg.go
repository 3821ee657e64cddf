package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/hitoshi/mediashelf/internal/model"
)

// RAWGGameRecord はRAWG Video Games Database APIのゲーム検索1レコードを表す。
type RAWGGameRecord struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Released        string  `json:"released"`
	BackgroundImage string  `json:"background_image"`
	Rating          float64 `json:"rating"`
}

// NormalizeGame はRAWGのゲームレコードをSearchResultに正規化する。
// 検索応答には説明文が含まれないため、Descriptionは常に空になる。
func NormalizeGame(rec RAWGGameRecord) (model.SearchResult, error) {
	if rec.Name == "" {
		return model.SearchResult{}, model.NewNormalizationError("rawg", "タイトルがありません")
	}
	if rec.ID == 0 {
		return model.SearchResult{}, model.NewNormalizationError("rawg", "識別子がありません")
	}

	externalID := itoa64(rec.ID)
	return model.SearchResult{
		ID:             "rawg-" + externalID,
		Title:          rec.Name,
		MediaType:      model.MediaTypeGame,
		CoverURL:       rec.BackgroundImage,
		Year:           yearFromDate(rec.Released),
		Rating:         rec.Rating,
		ExternalID:     externalID,
		ExternalSource: "rawg",
	}, nil
}

// RAWGSource はRAWG APIでゲーム検索を行うSource実装。
type RAWGSource struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewRAWGSource はゲーム検索用のRAWGソースを生成する。
func NewRAWGSource(baseURL, apiKey string, client *http.Client) *RAWGSource {
	return &RAWGSource{baseURL: baseURL, apiKey: apiKey, client: client}
}

// Name はソース識別名を返す。
func (s *RAWGSource) Name() string { return "rawg" }

// MediaType は担当メディア種別を返す。
func (s *RAWGSource) MediaType() model.MediaType { return model.MediaTypeGame }

// Search はRAWGのゲーム検索APIを呼び出し、正規化済みの結果を返す。
func (s *RAWGSource) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	q := url.Values{}
	q.Set("search", query)
	q.Set("key", s.apiKey)

	body, err := fetchJSON(ctx, s.client, "rawg", s.baseURL+"/games?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []RAWGGameRecord `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, decodeError("rawg", err)
	}

	results := make([]model.SearchResult, 0, len(payload.Results))
	for _, rec := range payload.Results {
		r, err := NormalizeGame(rec)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

var _ Source = (*RAWGSource)(nil)
