// Package catalog は外部カタログAPIの検索クライアントと、
// 各ソース固有のレコード形式からSearchResultへの正規化アダプタを提供する。
package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hitoshi/mediashelf/internal/model"
)

// Source は1つのメディア種別に対応する外部カタログ検索を表す。
// SearchはLookupタイムアウトを含むcontextで呼び出され、
// ソース側の関連度順を保ったSearchResultのスライスを返す。
// 検索自体の失敗（通信エラー、非200応答、デコード失敗）はLOOKUP_FAILEDを返す。
type Source interface {
	// Name はソース識別名（"tmdb", "jikan" 等）を返す。
	Name() string
	// MediaType はこのソースが担当するメディア種別を返す。
	MediaType() model.MediaType
	// Search はクエリで外部カタログを検索し正規化済みの結果を返す。
	Search(ctx context.Context, query string) ([]model.SearchResult, error)
}

// Registry はメディア種別からソースを引くためのマップ。
// 検索アグリゲータが要求された種別ごとのディスパッチに使用する。
type Registry map[model.MediaType]Source

// SourceFor は指定種別のソースを返す。未登録の場合はnilとfalseを返す。
func (r Registry) SourceFor(mediaType model.MediaType) (Source, bool) {
	s, ok := r[mediaType]
	return s, ok
}

// yearFromDate は "2021-10-22" 形式の日付文字列から年を取り出す。
// パース不能な場合は0（不明）を返す。
func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

// decodeError は外部カタログ応答のデコード失敗をLookupErrorに変換する。
func decodeError(source string, err error) error {
	return model.NewLookupError(source, fmt.Sprintf("応答の解析に失敗: %v", err))
}

// statusError は外部カタログの非200応答をLookupErrorに変換する。
func statusError(source string, statusCode int) error {
	return model.NewLookupError(source, fmt.Sprintf("HTTPステータス %d", statusCode))
}
