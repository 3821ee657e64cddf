package model

// SearchResult は外部カタログの生レコードを正規化した検索結果を表す。
// 永続化されない一時的なオブジェクトであり、ユーザーがログに変換するか
// 検索を破棄した時点で役目を終える。
type SearchResult struct {
	ID             string // ソース内スコープの識別子
	Title          string
	Subtitle       string
	MediaType      MediaType
	Description    string
	CoverURL       string
	Year           int     // 0は不明を表す
	Rating         float64 // 0は未評価を表す
	ExternalID     string
	ExternalSource string // "tmdb", "jikan", "openlibrary" 等
}
