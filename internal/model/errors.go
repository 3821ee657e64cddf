// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, collection, storage, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed        = "VALIDATION_FAILED"
	ErrCodeNormalizationFailed     = "NORMALIZATION_FAILED"
	ErrCodeLookupFailed            = "LOOKUP_FAILED"
	ErrCodeAllLookupsFailed        = "ALL_LOOKUPS_FAILED"
	ErrCodeDuplicateCollectionItem = "DUPLICATE_COLLECTION_ITEM"
	ErrCodeMediaLogNotFound        = "MEDIA_LOG_NOT_FOUND"
	ErrCodeCollectionNotFound      = "COLLECTION_NOT_FOUND"
	ErrCodeCollectionItemNotFound  = "COLLECTION_ITEM_NOT_FOUND"
	ErrCodeStorageFailed           = "STORAGE_FAILED"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
)

// CodeOf はエラーがAPIErrorの場合にそのコードを返す。それ以外は空文字列。
// エラーの分類に基づいてHTTPステータスを選択するハンドラー層で使用する。
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// NewValidationError は入力検証エラーを生成する。
// ログ・コレクションの作成/更新で不正な入力を受け取った場合に使用する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewNormalizationError は外部カタログレコードの正規化失敗エラーを生成する。
// タイトルまたは識別子を欠くレコードに対してアダプタが返す。
func NewNormalizationError(source, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeNormalizationFailed,
		Message:  fmt.Sprintf("カタログ（%s）のレコードを変換できませんでした: %s", source, reason),
		Category: "catalog",
		Action:   "別の検索結果を選択してください。",
	}
}

// NewLookupError は外部カタログ検索の失敗エラーを生成する。
// タイムアウトもこのエラーとして扱う。
func NewLookupError(source, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeLookupFailed,
		Message:  fmt.Sprintf("カタログ（%s）の検索に失敗しました: %s", source, reason),
		Category: "catalog",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewAllLookupsFailedError は要求された全メディア種別の検索が失敗した場合の
// エラーを生成する。一部の種別のみ失敗した場合は検索は部分成功として扱われ、
// このエラーは返されない。
func NewAllLookupsFailedError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeAllLookupsFailed,
		Message:  fmt.Sprintf("すべてのカタログ検索に失敗しました: %s", detail),
		Category: "catalog",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewDuplicateCollectionItemError は同じログを同じコレクションに
// 2回追加しようとした場合のエラーを生成する。
func NewDuplicateCollectionItemError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateCollectionItem,
		Message:  "このログは既にコレクションに追加されています。",
		Category: "collection",
		Action:   "コレクションの内容を確認してください。",
	}
}

// NewMediaLogNotFoundError はメディアログが見つからない場合のエラーを生成する。
func NewMediaLogNotFoundError(logID string) *APIError {
	return &APIError{
		Code:     ErrCodeMediaLogNotFound,
		Message:  fmt.Sprintf("指定されたログが見つかりません: %s", logID),
		Category: "validation",
		Action:   "ログIDを確認してください。",
	}
}

// NewCollectionNotFoundError はコレクションが見つからない場合のエラーを生成する。
func NewCollectionNotFoundError(collectionID string) *APIError {
	return &APIError{
		Code:     ErrCodeCollectionNotFound,
		Message:  fmt.Sprintf("指定されたコレクションが見つかりません: %s", collectionID),
		Category: "collection",
		Action:   "コレクションIDを確認してください。",
	}
}

// NewCollectionItemNotFoundError はコレクションに含まれていないログを
// 削除しようとした場合のエラーを生成する。
func NewCollectionItemNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeCollectionItemNotFound,
		Message:  "このログはコレクションに含まれていません。",
		Category: "collection",
		Action:   "コレクションの内容を確認してください。",
	}
}

// NewStorageError はファイル永続化の失敗エラーを生成する。
func NewStorageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeStorageFailed,
		Message:  fmt.Sprintf("ファイルの保存に失敗しました: %s", reason),
		Category: "storage",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
