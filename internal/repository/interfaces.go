// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/mediashelf/internal/model"
)

// UserRepository はユーザープロフィールの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile は表示名・自己紹介・レーティングシステム・アバターURLを更新する。
	// updated_atも同時に更新される。
	UpdateProfile(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、media_logs、collectionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// MediaLogFilter はメディアログ一覧の絞り込み条件を表す。
// 空文字列のフィールドは絞り込みなしを意味する。
type MediaLogFilter struct {
	MediaType model.MediaType
	Status    model.MediaStatus
}

// MediaLogRepository はメディアログの永続化インターフェース。
// ユーザーデータ分離のため、全操作はuser_idを条件に含める。
type MediaLogRepository interface {
	// FindByID は指定IDのログを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID, id string) (*model.MediaLog, error)

	// ListByUserID はユーザーの全ログをdate_logged降順で返す。
	// filterで種別・状態による絞り込みができる。
	ListByUserID(ctx context.Context, userID string, filter MediaLogFilter) ([]*model.MediaLog, error)

	// Create はログを作成する。
	Create(ctx context.Context, log *model.MediaLog) error

	// Update は可変フィールドを上書き更新する。user_idとmedia_typeは更新しない。
	Update(ctx context.Context, log *model.MediaLog) error

	// Delete は指定IDのログを削除する。参照するcollection_itemsはCASCADE削除される。
	// ログが存在しない場合はfalseを返す。
	Delete(ctx context.Context, userID, id string) (bool, error)

	// DeleteByUserID はユーザーの全ログを削除する。退会処理で使用する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// EnrichLogRepository はカバー画像バックフィルに必要なログ操作のインターフェース。
type EnrichLogRepository interface {
	// ListNeedingCover はカバー画像が未設定かつ外部カタログIDを持つログを返す。
	// cover_checked_at IS NULL（未試行）を優先し、次に試行が古い順に処理する。
	ListNeedingCover(ctx context.Context, limit int) ([]*model.MediaLog, error)

	// UpdateCover はログのカバー画像URLと確認日時を更新する。
	// urlが空文字列の場合は確認日時のみ記録する（再試行間隔の制御に使う）。
	UpdateCover(ctx context.Context, logID, coverURL string) error
}

// CollectionRepository はコレクションの永続化インターフェース。
type CollectionRepository interface {
	// FindByID は指定IDのコレクションを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, userID, id string) (*model.Collection, error)

	// ListByUserID はユーザーの全コレクションを作成日時降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Collection, error)

	// Create はコレクションを作成する。
	Create(ctx context.Context, collection *model.Collection) error

	// Update は名前・説明・絵文字・公開フラグを更新する。
	Update(ctx context.Context, collection *model.Collection) error

	// Delete は指定IDのコレクションを削除する。
	// 所属するcollection_itemsはCASCADE削除され、参照先のログは影響を受けない。
	// コレクションが存在しない場合はfalseを返す。
	Delete(ctx context.Context, userID, id string) (bool, error)

	// DeleteByUserID はユーザーの全コレクションを削除する。退会処理で使用する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// CollectionItemRepository はコレクション所属情報の永続化インターフェース。
type CollectionItemRepository interface {
	// FindByCollectionAndLog は(collection_id, media_log_id)で所属情報を検索する。
	// 見つからない場合はnilを返す。
	FindByCollectionAndLog(ctx context.Context, collectionID, mediaLogID string) (*model.CollectionItem, error)

	// ListByCollectionID はコレクションの所属一覧をadded_at昇順で返す。
	// 各要素のMediaLogはmedia_logsテーブルとのJOINで再取得される
	// （非正規化コピーは信頼できるソースではない）。
	ListByCollectionID(ctx context.Context, collectionID string) ([]*model.CollectionItem, error)

	// Create は所属情報を作成する。
	// (collection_id, media_log_id)の一意制約違反はDUPLICATE_COLLECTION_ITEMエラーになる。
	Create(ctx context.Context, item *model.CollectionItem) error

	// Delete は所属情報を削除する。存在しない場合はfalseを返す。
	Delete(ctx context.Context, collectionID, mediaLogID string) (bool, error)
}
