// Package avatar はユーザーアバター画像の検証と保存を提供する。
package avatar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hitoshi/mediashelf/internal/model"
)

// Storage はアバター画像の保存先を抽象化する。
type Storage interface {
	// Store は画像データを保存し、公開URLを返す。
	// ownerKeyは所有ユーザーごとの上書き保存に使われる。
	Store(ctx context.Context, data []byte, ownerKey string) (string, error)
}

// FilesystemStorage はローカルファイルシステムへの保存実装。
// 公開URLは /avatars/<ファイル名> 形式で、静的配信は別途ルーターが行う。
type FilesystemStorage struct {
	dir string
}

var _ Storage = (*FilesystemStorage)(nil)

// NewFilesystemStorage はFilesystemStorageの新しいインスタンスを生成する。
// 保存先ディレクトリは存在しなければ作成される。
func NewFilesystemStorage(dir string) (*FilesystemStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("アバター保存先の作成に失敗しました: %w", err)
	}
	return &FilesystemStorage{dir: dir}, nil
}

// Store は画像を保存して公開URLを返す。
// ファイル名にランダムなサフィックスを含めるため、更新のたびにURLが変わり
// ブラウザキャッシュの問題を避けられる。
func (s *FilesystemStorage) Store(ctx context.Context, data []byte, ownerKey string) (string, error) {
	filename := fmt.Sprintf("%s-%s%s", ownerKey, uuid.New().String()[:8], extensionFor(data))
	path := filepath.Join(s.dir, filename)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("アバターの書き込みに失敗しました: %w", err)
	}

	return "/avatars/" + filename, nil
}

func extensionFor(data []byte) string {
	switch detectImageType(data) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// Service はアバター画像の検証を行い、保存をStorageに委譲する。
type Service struct {
	storage Storage
	maxSize int64
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(storage Storage, maxSize int64) *Service {
	return &Service{storage: storage, maxSize: maxSize}
}

// Upload は画像を検証して保存し、公開URLを返す。
// 画像以外のデータとサイズ超過はValidationError、保存失敗はStorageError。
func (s *Service) Upload(ctx context.Context, data []byte, userID string) (string, error) {
	if len(data) == 0 {
		return "", model.NewValidationError("画像データが空です")
	}
	if int64(len(data)) > s.maxSize {
		return "", model.NewValidationError(fmt.Sprintf("画像サイズが上限（%dバイト）を超えています", s.maxSize))
	}
	if !isImage(data) {
		return "", model.NewValidationError("画像ファイルではありません")
	}

	url, err := s.storage.Store(ctx, data, userID)
	if err != nil {
		return "", model.NewStorageError(err.Error())
	}
	return url, nil
}
