// Package model はドメインモデルを定義する。
package model

import "time"

// MediaType はログ対象メディアの種別を表す。閉集合であり拡張しない。
type MediaType string

const (
	// MediaTypeMovie は映画。
	MediaTypeMovie MediaType = "movie"
	// MediaTypeTV はTV番組。
	MediaTypeTV MediaType = "tv"
	// MediaTypeBook は書籍。
	MediaTypeBook MediaType = "book"
	// MediaTypeAnime はアニメ。
	MediaTypeAnime MediaType = "anime"
	// MediaTypeGame はゲーム。
	MediaTypeGame MediaType = "game"
	// MediaTypePodcast はポッドキャスト。
	MediaTypePodcast MediaType = "podcast"
)

// AllMediaTypes は全メディア種別を定義順で返す。
// 検索アグリゲータのデフォルト対象や集計の初期化に使用する。
func AllMediaTypes() []MediaType {
	return []MediaType{
		MediaTypeMovie,
		MediaTypeTV,
		MediaTypeBook,
		MediaTypeAnime,
		MediaTypeGame,
		MediaTypePodcast,
	}
}

// IsValid はメディア種別が閉集合に含まれるかを判定する。
func (t MediaType) IsValid() bool {
	switch t {
	case MediaTypeMovie, MediaTypeTV, MediaTypeBook,
		MediaTypeAnime, MediaTypeGame, MediaTypePodcast:
		return true
	default:
		return false
	}
}

// MediaStatus はログ対象メディアに対するユーザーの進捗状態を表す。閉集合。
type MediaStatus string

const (
	// MediaStatusCompleted は完了済み。
	MediaStatusCompleted MediaStatus = "completed"
	// MediaStatusInProgress は進行中。
	MediaStatusInProgress MediaStatus = "in_progress"
	// MediaStatusPlanned は予定（未着手）。新規ログのデフォルト。
	MediaStatusPlanned MediaStatus = "planned"
	// MediaStatusDropped は中断（視聴・読了を断念）。
	MediaStatusDropped MediaStatus = "dropped"
	// MediaStatusOnHold は保留中。
	MediaStatusOnHold MediaStatus = "on_hold"
)

// AllMediaStatuses は全進捗状態を定義順で返す。
func AllMediaStatuses() []MediaStatus {
	return []MediaStatus{
		MediaStatusCompleted,
		MediaStatusInProgress,
		MediaStatusPlanned,
		MediaStatusDropped,
		MediaStatusOnHold,
	}
}

// IsValid は進捗状態が閉集合に含まれるかを判定する。
func (s MediaStatus) IsValid() bool {
	switch s {
	case MediaStatusCompleted, MediaStatusInProgress, MediaStatusPlanned,
		MediaStatusDropped, MediaStatusOnHold:
		return true
	default:
		return false
	}
}

// MediaLog はユーザーが1つのメディア作品に対して記録したログを表す。
// UserIDとMediaTypeは作成後に変更できない（MediaTypeの変更はExternalIDの
// 意味を壊すため）。Ratingが設定される場合はユーザーのレーティングシステムの
// 範囲内でなければならない。UpdatedAtは常にCreatedAt以上。
type MediaLog struct {
	ID             string
	UserID         string
	Title          string
	MediaType      MediaType
	ExternalID     string // 外部カタログ上の識別子（任意）
	ExternalSource string // 外部カタログ名（任意）
	CoverURL       string
	Notes          string // サニタイズ済み
	Rating         *float64
	Status         MediaStatus
	DateLogged     time.Time
	Tags           []string // 順序に意味を持たない文字列集合
	Mood           string
	Quote          string // サニタイズ済み
	IsPrivate      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MediaLogUpdate はメディアログの部分更新を表す。
// nilフィールドは変更しない。UserIDとMediaTypeは含まれない（不変のため）。
type MediaLogUpdate struct {
	Notes       *string
	Rating      *float64
	ClearRating bool // trueの場合Ratingをnilに戻す
	Status      *MediaStatus
	Tags        *[]string
	Mood        *string
	Quote       *string
	IsPrivate   *bool
	DateLogged  *time.Time
	CoverURL    *string
}
