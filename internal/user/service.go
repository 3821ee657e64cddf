// Package user はユーザープロフィール管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/mediashelf/internal/model"
	"github.com/hitoshi/mediashelf/internal/repository"
	"github.com/hitoshi/mediashelf/internal/security"
)

// MediaLogDeleter はメディアログの一括削除インターフェース。
type MediaLogDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// CollectionDeleter はコレクションの一括削除インターフェース。
type CollectionDeleter interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Service はユーザープロフィールと退会処理のサービス層。
type Service struct {
	userRepo          repository.UserRepository
	sessionRepo       repository.SessionRepository
	logDeleter        MediaLogDeleter
	collectionDeleter CollectionDeleter
	sanitizer         security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	logDeleter MediaLogDeleter,
	collectionDeleter CollectionDeleter,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		userRepo:          userRepo,
		sessionRepo:       sessionRepo,
		logDeleter:        logDeleter,
		collectionDeleter: collectionDeleter,
		sanitizer:         sanitizer,
	}
}

// Get は指定IDのユーザープロフィールを取得する。
func (s *Service) Get(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfileInput はプロフィールの部分更新を表す。nilフィールドは変更しない。
type UpdateProfileInput struct {
	DisplayName  *string
	Bio          *string
	RatingSystem *model.RatingSystem
}

// UpdateProfile は表示名・自己紹介・レーティングシステムを部分更新する。
// レーティングシステムの変更は既存ログのレーティング値には影響しない
// （記録済みの値はそのまま残り、以降の検証とヒストグラムだけが新設定に従う）。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	if input.DisplayName != nil {
		name := strings.TrimSpace(s.sanitizer.SanitizeStrict(*input.DisplayName))
		if name == "" {
			return nil, model.NewValidationError("表示名が入力されていません")
		}
		user.DisplayName = name
	}
	if input.Bio != nil {
		user.Bio = s.sanitizer.SanitizeStrict(*input.Bio)
	}
	if input.RatingSystem != nil {
		if !input.RatingSystem.IsValid() {
			return nil, model.NewValidationError(fmt.Sprintf("不正なレーティングシステム: %s", *input.RatingSystem))
		}
		user.RatingSystem = *input.RatingSystem
	}

	user.UpdatedAt = time.Now()

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("プロフィールの更新に失敗しました: %w", err)
	}

	return user, nil
}

// UpdateAvatarURL はユーザーのアバターURLを更新する。
// 画像自体の検証と保存はavatarパッケージが行い、ここではURLの記録だけを行う。
func (s *Service) UpdateAvatarURL(ctx context.Context, userID, avatarURL string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	user.AvatarURL = avatarURL
	user.UpdatedAt = time.Now()

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("アバターURLの更新に失敗しました: %w", err)
	}

	return user, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: media_logs → collections → sessions → user（+ CASCADE: identities）
// media_logsを先に消すことでcollection_itemsのCASCADEも先に走る。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. メディアログを削除（collection_itemsはCASCADE削除）
	if s.logDeleter != nil {
		if err := s.logDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("メディアログの削除に失敗しました: %w", err)
		}
	}

	// 2. コレクションを削除
	if s.collectionDeleter != nil {
		if err := s.collectionDeleter.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("コレクションの削除に失敗しました: %w", err)
		}
	}

	// 3. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 4. ユーザーを削除（identitiesはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
