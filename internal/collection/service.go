// Package collection はメディアログのグルーピング機能を提供する。
package collection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mediashelf/internal/model"
	"github.com/hitoshi/mediashelf/internal/repository"
	"github.com/hitoshi/mediashelf/internal/security"
)

// Service はコレクションと所属情報のサービス層。
// 全操作は所有者のuser_idを条件に含み、他人のコレクションは存在しないものとして扱う。
type Service struct {
	collectionRepo repository.CollectionRepository
	itemRepo       repository.CollectionItemRepository
	logRepo        repository.MediaLogRepository
	sanitizer      security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	collectionRepo repository.CollectionRepository,
	itemRepo repository.CollectionItemRepository,
	logRepo repository.MediaLogRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		collectionRepo: collectionRepo,
		itemRepo:       itemRepo,
		logRepo:        logRepo,
		sanitizer:      sanitizer,
	}
}

// CreateInput はコレクション作成の入力を表す。
type CreateInput struct {
	Name        string
	Description string
	Emoji       string
	IsPrivate   bool
}

// UpdateInput はコレクションの部分更新を表す。nilフィールドは変更しない。
type UpdateInput struct {
	Name        *string
	Description *string
	Emoji       *string
	IsPrivate   *bool
}

// Create は新しいコレクションを作成する。名前空はValidationError。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Collection, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, model.NewValidationError("コレクション名が入力されていません")
	}

	collection := &model.Collection{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        s.sanitizer.SanitizeStrict(name),
		Description: s.sanitizer.SanitizeStrict(input.Description),
		Emoji:       strings.TrimSpace(input.Emoji),
		IsPrivate:   input.IsPrivate,
		CreatedAt:   time.Now(),
	}

	if err := s.collectionRepo.Create(ctx, collection); err != nil {
		return nil, fmt.Errorf("コレクションの作成に失敗しました: %w", err)
	}

	return collection, nil
}

// Get は指定IDのコレクションを取得する。
func (s *Service) Get(ctx context.Context, userID, collectionID string) (*model.Collection, error) {
	collection, err := s.collectionRepo.FindByID(ctx, userID, collectionID)
	if err != nil {
		return nil, fmt.Errorf("コレクションの取得に失敗しました: %w", err)
	}
	if collection == nil {
		return nil, model.NewCollectionNotFoundError(collectionID)
	}
	return collection, nil
}

// List はユーザーの全コレクションを作成日時降順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Collection, error) {
	collections, err := s.collectionRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("コレクション一覧の取得に失敗しました: %w", err)
	}
	return collections, nil
}

// Update はコレクションの名前・説明・絵文字・公開フラグを部分更新する。
func (s *Service) Update(ctx context.Context, userID, collectionID string, input UpdateInput) (*model.Collection, error) {
	collection, err := s.collectionRepo.FindByID(ctx, userID, collectionID)
	if err != nil {
		return nil, fmt.Errorf("コレクションの取得に失敗しました: %w", err)
	}
	if collection == nil {
		return nil, model.NewCollectionNotFoundError(collectionID)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, model.NewValidationError("コレクション名が入力されていません")
		}
		collection.Name = s.sanitizer.SanitizeStrict(name)
	}
	if input.Description != nil {
		collection.Description = s.sanitizer.SanitizeStrict(*input.Description)
	}
	if input.Emoji != nil {
		collection.Emoji = strings.TrimSpace(*input.Emoji)
	}
	if input.IsPrivate != nil {
		collection.IsPrivate = *input.IsPrivate
	}

	if err := s.collectionRepo.Update(ctx, collection); err != nil {
		return nil, fmt.Errorf("コレクションの更新に失敗しました: %w", err)
	}

	return collection, nil
}

// Delete はコレクションを削除する。所属情報はCASCADE削除されるが、
// 参照先のログ自体は削除されない。
func (s *Service) Delete(ctx context.Context, userID, collectionID string) error {
	deleted, err := s.collectionRepo.Delete(ctx, userID, collectionID)
	if err != nil {
		return fmt.Errorf("コレクションの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewCollectionNotFoundError(collectionID)
	}
	return nil
}

// AddItem はログをコレクションに追加する。
// コレクション・ログとも自分のものでなければNotFound。
// 同じログの二重追加はDUPLICATE_COLLECTION_ITEMエラーになる。
func (s *Service) AddItem(ctx context.Context, userID, collectionID, mediaLogID string) (*model.CollectionItem, error) {
	collection, err := s.collectionRepo.FindByID(ctx, userID, collectionID)
	if err != nil {
		return nil, fmt.Errorf("コレクションの取得に失敗しました: %w", err)
	}
	if collection == nil {
		return nil, model.NewCollectionNotFoundError(collectionID)
	}

	log, err := s.logRepo.FindByID(ctx, userID, mediaLogID)
	if err != nil {
		return nil, fmt.Errorf("ログの取得に失敗しました: %w", err)
	}
	if log == nil {
		return nil, model.NewMediaLogNotFoundError(mediaLogID)
	}

	item := &model.CollectionItem{
		ID:           uuid.New().String(),
		CollectionID: collectionID,
		MediaLogID:   mediaLogID,
		AddedAt:      time.Now(),
	}

	if err := s.itemRepo.Create(ctx, item); err != nil {
		// 一意制約違反はリポジトリ層でDUPLICATE_COLLECTION_ITEMに変換済み
		if model.CodeOf(err) == model.ErrCodeDuplicateCollectionItem {
			return nil, err
		}
		return nil, fmt.Errorf("コレクションへの追加に失敗しました: %w", err)
	}

	item.MediaLog = log
	return item, nil
}

// RemoveItem はログをコレクションから外す。ログ自体は削除されない。
// 所属していないログの削除はCOLLECTION_ITEM_NOT_FOUNDエラーになる。
func (s *Service) RemoveItem(ctx context.Context, userID, collectionID, mediaLogID string) error {
	collection, err := s.collectionRepo.FindByID(ctx, userID, collectionID)
	if err != nil {
		return fmt.Errorf("コレクションの取得に失敗しました: %w", err)
	}
	if collection == nil {
		return model.NewCollectionNotFoundError(collectionID)
	}

	deleted, err := s.itemRepo.Delete(ctx, collectionID, mediaLogID)
	if err != nil {
		return fmt.Errorf("コレクションからの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewCollectionItemNotFoundError()
	}
	return nil
}

// ListItems はコレクションの所属一覧をadded_at昇順で返す。
// 各要素のMediaLogはmedia_logsテーブルとのJOINで取得された最新の内容になる。
func (s *Service) ListItems(ctx context.Context, userID, collectionID string) ([]*model.CollectionItem, error) {
	collection, err := s.collectionRepo.FindByID(ctx, userID, collectionID)
	if err != nil {
		return nil, fmt.Errorf("コレクションの取得に失敗しました: %w", err)
	}
	if collection == nil {
		return nil, model.NewCollectionNotFoundError(collectionID)
	}

	items, err := s.itemRepo.ListByCollectionID(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("コレクション所属一覧の取得に失敗しました: %w", err)
	}
	return items, nil
}
