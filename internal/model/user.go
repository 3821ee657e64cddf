package model

import "time"

// User はサービス利用ユーザーのプロフィールを表す。
// 認証サブシステムが作成・所有し、コアのドメインロジックからは
// 読み取り中心で扱う。RatingSystemはMediaLog.Ratingの有効範囲を決める。
type User struct {
	ID           string
	Email        string
	DisplayName  string
	AvatarURL    string
	Bio          string // サニタイズ済み
	RatingSystem RatingSystem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// 将来的に複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
