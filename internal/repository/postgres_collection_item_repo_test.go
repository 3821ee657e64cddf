package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/mediashelf/internal/model"
)

// PostgresCollectionRepoとPostgresCollectionItemRepoがインターフェースを満たすことを検証
func TestPostgresCollectionRepos_ImplementInterfaces(t *testing.T) {
	var _ CollectionRepository = (*PostgresCollectionRepo)(nil)
	var _ CollectionItemRepository = (*PostgresCollectionItemRepo)(nil)
}

// NewPostgresCollectionItemRepoが正しく初期化されることを検証
func TestNewPostgresCollectionItemRepo_Initializes(t *testing.T) {
	repo := NewPostgresCollectionItemRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// CollectionItemモデルのフィールドが正しく構築されることを検証
func TestPostgresCollectionItemRepo_ItemModel_Fields(t *testing.T) {
	now := time.Now()
	item := &model.CollectionItem{
		ID:           "item-id-1",
		CollectionID: "col-id-1",
		MediaLogID:   "log-id-1",
		AddedAt:      now,
	}

	if item.CollectionID != "col-id-1" {
		t.Errorf("item.CollectionID = %q, want %q", item.CollectionID, "col-id-1")
	}
	// 非正規化コピーは読み取り時のJOINで設定される。作成時はnil。
	if item.MediaLog != nil {
		t.Errorf("item.MediaLog = %v, want nil", item.MediaLog)
	}
}

// 一意制約違反のSQLSTATEコードが正しいことを検証
func TestUniqueViolationCode(t *testing.T) {
	if uniqueViolationCode != "23505" {
		t.Errorf("uniqueViolationCode = %q, want %q", uniqueViolationCode, "23505")
	}
}
