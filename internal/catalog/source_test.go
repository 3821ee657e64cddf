package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/mediashelf/internal/model"
)

// TestTMDBSource_Search は映画検索の成功パスを検証する。
// ソース側の関連度順（応答に含まれる順序）が保たれることを確認する。
func TestTMDBSource_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/search/movie")
		}
		if got := r.URL.Query().Get("query"); got != "dune" {
			t.Errorf("query = %q, want %q", got, "dune")
		}
		if got := r.URL.Query().Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want %q", got, "test-key")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"id": 438631, "title": "Dune", "release_date": "2021-10-15", "vote_average": 7.8},
			{"id": 841, "title": "Dune (1984)", "release_date": "1984-12-14", "vote_average": 6.1},
			{"id": 0, "title": "ID欠落レコード"}
		]}`))
	}))
	defer server.Close()

	source := NewTMDBMovieSource(server.URL, "test-key", server.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	results, err := source.Search(ctx, "dune")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// 正規化不能なレコードはスキップされ、残りは応答順を保つ
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Title != "Dune" {
		t.Errorf("results[0].Title = %q, want %q", results[0].Title, "Dune")
	}
	if results[1].Title != "Dune (1984)" {
		t.Errorf("results[1].Title = %q, want %q", results[1].Title, "Dune (1984)")
	}
}

// TestTMDBSource_SearchTV はテレビ検索が/search/tvを使用することを検証する。
func TestTMDBSource_SearchTV(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/tv" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/search/tv")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [{"id": 1399, "name": "Game of Thrones", "first_air_date": "2011-04-17"}]}`))
	}))
	defer server.Close()

	source := NewTMDBTVSource(server.URL, "test-key", server.Client())

	results, err := source.Search(context.Background(), "thrones")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].MediaType != model.MediaTypeTV {
		t.Errorf("MediaType = %q, want %q", results[0].MediaType, model.MediaTypeTV)
	}
}

// TestTMDBSource_Non200 は非200応答がLookupErrorになることを検証する。
func TestTMDBSource_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	source := NewTMDBMovieSource(server.URL, "test-key", server.Client())

	_, err := source.Search(context.Background(), "dune")
	if model.CodeOf(err) != model.ErrCodeLookupFailed {
		t.Errorf("error code = %q, want %q", model.CodeOf(err), model.ErrCodeLookupFailed)
	}
}

// TestTMDBSource_InvalidJSON は解析不能な応答がLookupErrorになることを検証する。
func TestTMDBSource_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	source := NewTMDBMovieSource(server.URL, "test-key", server.Client())

	_, err := source.Search(context.Background(), "dune")
	if model.CodeOf(err) != model.ErrCodeLookupFailed {
		t.Errorf("error code = %q, want %q", model.CodeOf(err), model.ErrCodeLookupFailed)
	}
}

// TestTMDBSource_Timeout はタイムアウト超過がLookupErrorになることを検証する。
func TestTMDBSource_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	source := NewTMDBMovieSource(server.URL, "test-key", server.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := source.Search(ctx, "dune")
	if model.CodeOf(err) != model.ErrCodeLookupFailed {
		t.Errorf("error code = %q, want %q", model.CodeOf(err), model.ErrCodeLookupFailed)
	}
}

// TestJikanSource_Search はJikanのdata配列が正規化されることを検証する。
func TestJikanSource_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/anime" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/anime")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": [
			{"mal_id": 1, "title": "Cowboy Bebop", "score": 8.75,
			 "images": {"jpg": {"image_url": "https://cdn/s.jpg", "large_image_url": "https://cdn/l.jpg"}},
			 "aired": {"from": "1998-04-03T00:00:00+00:00"}}
		]}`))
	}))
	defer server.Close()

	source := NewJikanSource(server.URL, server.Client())

	results, err := source.Search(context.Background(), "bebop")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].CoverURL != "https://cdn/l.jpg" {
		t.Errorf("CoverURL = %q, want %q", results[0].CoverURL, "https://cdn/l.jpg")
	}
	if results[0].Year != 1998 {
		t.Errorf("Year = %d, want 1998", results[0].Year)
	}
}

// TestOpenLibrarySource_Search はOpen Libraryのdocs配列が正規化されることを検証する。
func TestOpenLibrarySource_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/search.json")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"docs": [
			{"key": "/works/OL893415W", "title": "Dune", "author_name": ["Frank Herbert"],
			 "first_publish_year": 1965, "cover_i": 11481354}
		]}`))
	}))
	defer server.Close()

	source := NewOpenLibrarySource(server.URL, server.Client())

	results, err := source.Search(context.Background(), "dune")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].ExternalID != "OL893415W" {
		t.Errorf("ExternalID = %q, want %q", results[0].ExternalID, "OL893415W")
	}
}

// TestITunesSource_Search はiTunes検索がmedia=podcastを指定することを検証する。
func TestITunesSource_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("media"); got != "podcast" {
			t.Errorf("media = %q, want %q", got, "podcast")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results": [
			{"collectionId": 603013428, "collectionName": "Rebuild", "artistName": "Tatsuhiko Miyagawa",
			 "artworkUrl600": "https://example.com/600.jpg", "feedUrl": "https://feeds.rebuild.fm/rebuildfm"}
		]}`))
	}))
	defer server.Close()

	source := NewITunesSource(server.URL, server.Client())

	results, err := source.Search(context.Background(), "rebuild")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].Title != "Rebuild" {
		t.Errorf("Title = %q, want %q", results[0].Title, "Rebuild")
	}
}

// TestRegistry_SourceFor は種別ごとのソース解決を検証する。
func TestRegistry_SourceFor(t *testing.T) {
	registry := Registry{
		model.MediaTypeMovie: NewTMDBMovieSource("http://example.com", "", http.DefaultClient),
	}

	if _, ok := registry.SourceFor(model.MediaTypeMovie); !ok {
		t.Error("登録済み種別のソースが見つからない")
	}
	if _, ok := registry.SourceFor(model.MediaTypeGame); ok {
		t.Error("未登録種別でソースが返った")
	}
}
