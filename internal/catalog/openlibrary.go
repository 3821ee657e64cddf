package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/mediashelf/internal/model"
)

// openLibraryCoverBase はOpen Libraryのカバー画像URLのベース。
const openLibraryCoverBase = "https://covers.openlibrary.org/b/id/"

// OpenLibraryBookRecord はOpen Library検索APIの1レコード（doc）を表す。
// keyは "/works/OL45804W" 形式のワーク識別子。
type OpenLibraryBookRecord struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	CoverID          int64    `json:"cover_i"`
}

// NormalizeBook はOpen Libraryの書籍レコードをSearchResultに正規化する。
// 著者名はサブタイトルとして結合される。カバーはcover_iから大サイズ(-L)のURLを組み立てる。
func NormalizeBook(rec OpenLibraryBookRecord) (model.SearchResult, error) {
	if rec.Title == "" {
		return model.SearchResult{}, model.NewNormalizationError("openlibrary", "タイトルがありません")
	}
	if rec.Key == "" {
		return model.SearchResult{}, model.NewNormalizationError("openlibrary", "識別子がありません")
	}

	coverURL := ""
	if rec.CoverID != 0 {
		coverURL = fmt.Sprintf("%s%d-L.jpg", openLibraryCoverBase, rec.CoverID)
	}

	// "/works/OL45804W" からワークIDのみを取り出す
	externalID := strings.TrimPrefix(rec.Key, "/works/")

	return model.SearchResult{
		ID:             "openlibrary-" + externalID,
		Title:          rec.Title,
		Subtitle:       strings.Join(rec.AuthorName, ", "),
		MediaType:      model.MediaTypeBook,
		CoverURL:       coverURL,
		Year:           rec.FirstPublishYear,
		ExternalID:     externalID,
		ExternalSource: "openlibrary",
	}, nil
}

// OpenLibrarySource はOpen Libraryで書籍検索を行うSource実装。
type OpenLibrarySource struct {
	baseURL string
	client  *http.Client
}

// NewOpenLibrarySource は書籍検索用のOpen Libraryソースを生成する。
func NewOpenLibrarySource(baseURL string, client *http.Client) *OpenLibrarySource {
	return &OpenLibrarySource{baseURL: baseURL, client: client}
}

// Name はソース識別名を返す。
func (s *OpenLibrarySource) Name() string { return "openlibrary" }

// MediaType は担当メディア種別を返す。
func (s *OpenLibrarySource) MediaType() model.MediaType { return model.MediaTypeBook }

// Search はOpen Libraryの検索APIを呼び出し、正規化済みの結果を返す。
func (s *OpenLibrarySource) Search(ctx context.Context, query string) ([]model.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", "20")

	body, err := fetchJSON(ctx, s.client, "openlibrary", s.baseURL+"/search.json?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var payload struct {
		Docs []OpenLibraryBookRecord `json:"docs"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, decodeError("openlibrary", err)
	}

	results := make([]model.SearchResult, 0, len(payload.Docs))
	for _, rec := range payload.Docs {
		r, err := NormalizeBook(rec)
		if err != nil {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

var _ Source = (*OpenLibrarySource)(nil)
