package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/mediashelf/internal/model"
)

// PostgresMediaLogRepoはMediaLogRepositoryインターフェースを満たすことを検証
func TestPostgresMediaLogRepo_ImplementsInterface(t *testing.T) {
	var _ MediaLogRepository = (*PostgresMediaLogRepo)(nil)
	var _ EnrichLogRepository = (*PostgresMediaLogRepo)(nil)
}

// NewPostgresMediaLogRepoが正しく初期化されることを検証
func TestNewPostgresMediaLogRepo_Initializes(t *testing.T) {
	repo := NewPostgresMediaLogRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// MediaLogモデルのフィールドが正しく構築されることを検証
func TestPostgresMediaLogRepo_MediaLogModel_Fields(t *testing.T) {
	now := time.Now()
	rating := 9.0
	log := &model.MediaLog{
		ID:         "log-id-1",
		UserID:     "user-id-1",
		Title:      "デューン 砂の惑星",
		MediaType:  model.MediaTypeBook,
		Status:     model.MediaStatusCompleted,
		Rating:     &rating,
		Tags:       []string{"sf", "名作"},
		DateLogged: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if log.MediaType != model.MediaTypeBook {
		t.Errorf("log.MediaType = %q, want %q", log.MediaType, model.MediaTypeBook)
	}
	if log.Rating == nil || *log.Rating != 9.0 {
		t.Errorf("log.Rating = %v, want 9.0", log.Rating)
	}
	if len(log.Tags) != 2 {
		t.Errorf("len(log.Tags) = %d, want 2", len(log.Tags))
	}
}

// ratingArgがnilと値ありを正しく変換することを検証
func TestRatingArg(t *testing.T) {
	if got := ratingArg(nil); got != nil {
		t.Errorf("ratingArg(nil) = %v, want nil", got)
	}

	v := 7.5
	if got := ratingArg(&v); got != 7.5 {
		t.Errorf("ratingArg(&7.5) = %v, want 7.5", got)
	}
}

// Ratingが未設定のログはnilのまま保持されることを検証
func TestPostgresMediaLogRepo_MediaLogModel_NilRating(t *testing.T) {
	log := &model.MediaLog{
		ID:        "log-id-2",
		UserID:    "user-id-1",
		Title:     "積んでいるゲーム",
		MediaType: model.MediaTypeGame,
		Status:    model.MediaStatusPlanned,
	}

	if log.Rating != nil {
		t.Errorf("log.Rating = %v, want nil", log.Rating)
	}
}
