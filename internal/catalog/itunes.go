package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/hitoshi/mediashelf/internal/model"
)

// ITunesPodcastRecord はiTunes Search APIのポッドキャスト検索1レコードを表す。
type ITunesPodcastRecord struct {
	CollectionID   int64  `json:"collectionId"`
	CollectionName string `json:"collectionName"`
	ArtistName     string `json:"artistName"`
	ArtworkURL600  string `json:"artworkUrl600"`
	ArtworkURL100  string `json:"artworkUrl100"`
	FeedURL        string `json:"feedUrl"`
	ReleaseDate    string `json:"releaseDate"`
}

// NormalizePodcast はiTunesのポッドキャストレコードをSearchResultに正規化する。
// カバーは高解像度のartworkUrl600を優先し、artworkUrl100にフォールバックする。
// フィードURLはDescriptionではなく購読用の情報としてSubtitleに含めない（別途feedUrlを参照）。
func NormalizePodcast(rec ITunesPodcastRecord) (model.SearchResult, error) {
	if rec.CollectionName == "" {
		return model.SearchResult{}, model.NewNormalizationError("itunes", "タイトルがありません")
	}
	if rec.CollectionID == 0 {
		return model.SearchResult{}, model.NewNormalizationError("itunes", "識別子がありません")
	}

	coverURL := rec.ArtworkURL600
	if coverURL == "" {
		coverURL = rec.ArtworkURL100
	}

	externalID := itoa64(rec.CollectionID)
	return model.SearchResult{
		ID:             "itunes-" + externalID,
		Title:          rec.CollectionName,
		Subtitle:       rec.ArtistName,
		MediaType:      model.MediaTypePodcast,
		CoverURL:       coverURL,
		Year:           yearFromDate(rec.ReleaseDate),
		ExternalID:     externalID,
		ExternalSource: "itunes",
	}, nil
}

// ITunesSource はiTunes Search APIでポッドキャスト検索を行うSource実装。
type ITunesSource struct {
	baseURL string
	client  *http.Client
}

// NewITunesSource はポッドキャスト検索用のiTunesソースを生成する。
func NewITunesSource(baseURL string, client *http.Client) *ITunesSource {
	return &ITunesSource{baseURL: baseURL, client: client}
}

// Name はソース識別名を返す。
func (s *ITunesSource) Name() string { return "itunes" }

// MediaType は担当メディア種別を返す。
func (s *ITunesSource) MediaType() model.MediaType { return model.MediaTypePodcast }

// Search はiTunesのポッドキャスト検索APIを呼び出し、正規化済みの結果を返す。
func (s *ITunesSource) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	q := url.Values{}
	q.Set("term", query)
	q.Set("media", "podcast")
	q.Set("limit", "20")

	body, err := fetchJSON(ctx, s.client, "itunes", s.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Results []ITunesPodcastRecord `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, decodeError("itunes", err)
	}

	results := make([]model.SearchResult, 0, len(payload.Results))
	for _, rec := range payload.Results {
		r, err := NormalizePodcast(rec)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

var _ Source = (*ITunesSource)(nil)
