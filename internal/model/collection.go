package model

import "time"

// Collection はユーザーが所有するメディアログの名前付きグルーピングを表す。
// 削除時は所属するCollectionItemもカスケード削除されるが、
// 参照先のMediaLog自体は影響を受けない。
type Collection struct {
	ID          string
	UserID      string
	Name        string
	Description string
	Emoji       string
	IsPrivate   bool
	CreatedAt   time.Time
}

// CollectionItem は1つのCollectionと1つのMediaLogを結ぶ結合エンティティ。
// (CollectionID, MediaLogID) の組は一意であり、同じログが同じコレクションに
// 2回以上所属することはない。
type CollectionItem struct {
	ID           string
	CollectionID string
	MediaLogID   string
	AddedAt      time.Time

	// MediaLog は読み取り用の非正規化コピー。
	// 信頼できるソースは常にmedia_logsテーブルであり、
	// 読み取り時にJOINで再取得される。
	MediaLog *MediaLog
}
