// Package medialog はメディアログのドメインロジックを提供する。
package medialog

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

// Service はメディアログ作成・更新・削除のサービス層。
// レーティング検証はユーザーごとのレーティングシステム設定に基づいて行う。
type Service struct {
	logRepo   repository.MediaLogRepository
	userRepo  repository.UserRepository
	sanitizer security.ContentSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	logRepo repository.MediaLogRepository,
	userRepo repository.UserRepository,
	sanitizer security.ContentSanitizerService,
) *Service {
	return &Service{
		logRepo:   logRepo,
		userRepo:  userRepo,
		sanitizer: sanitizer,
	}
}

// CreateInput はログ作成の入力を表す。
// 検索結果からの作成とフリーフォームタイトルでの作成の両方に対応する。
// Statusが空の場合はplannedがデフォルトになる。
type CreateInput struct {
	Title          string
	MediaType      model.MediaType
	ExternalID     string
	ExternalSource string
	CoverURL       string
	Notes          string
	Rating         *float64
	Status         model.MediaStatus
	DateLogged     time.Time
	Tags           []string
	Mood           string
	Quote          string
	IsPrivate      bool
}

// UpdateInput はログの部分更新の入力を表す。
// UserIDまたはMediaTypeが設定されている場合は不変フィールドの変更試行として
// ValidationErrorで拒否される。
type UpdateInput struct {
	model.MediaLogUpdate
	UserID    *string
	MediaType *model.MediaType
}

// Create は新しいメディアログを作成する。
// タイトル空・不正な種別・不正な状態・レーティング範囲外はValidationError。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.MediaLog, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, model.NewValidationError("タイトルが入力されていません")
	}
	if !input.MediaType.IsValid() {
		return nil, model.NewValidationError(fmt.Sprintf("不正なメディア種別: %s", input.MediaType))
	}

	status := input.Status
	if status == "" {
		status = model.MediaStatusPlanned
	}
	if !status.IsValid() {
		return nil, model.NewValidationError(fmt.Sprintf("不正な進捗状態: %s", status))
	}

	if input.Rating != nil {
		if err := s.validateRating(ctx, userID, *input.Rating); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	dateLogged := input.DateLogged
	if dateLogged.IsZero() {
		dateLogged = now
	}

	log := &model.MediaLog{
		ID:             uuid.New().String(),
		UserID:         userID,
		Title:          s.sanitizer.SanitizeStrict(title),
		MediaType:      input.MediaType,
		ExternalID:     input.ExternalID,
		ExternalSource: input.ExternalSource,
		CoverURL:       input.CoverURL,
		Notes:          s.sanitizer.Sanitize(input.Notes),
		Rating:         input.Rating,
		Status:         status,
		DateLogged:     dateLogged,
		Tags:           normalizeTags(input.Tags, s.sanitizer),
		Mood:           s.sanitizer.SanitizeStrict(input.Mood),
		Quote:          s.sanitizer.SanitizeStrict(input.Quote),
		IsPrivate:      input.IsPrivate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.logRepo.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("ログの作成に失敗しました: %w", err)
	}

	return log, nil
}

// Get は指定IDのログを取得する。
func (s *Service) Get(ctx context.Context, userID, logID string) (*model.MediaLog, error) {
	log, err := s.logRepo.FindByID(ctx, userID, logID)
	if err != nil {
		return nil, fmt.Errorf("ログの取得に失敗しました: %w", err)
	}
	if log == nil {
		return nil, model.NewMediaLogNotFoundError(logID)
	}
	return log, nil
}

// List はユーザーのログ一覧をdate_logged降順で返す。
func (s *Service) List(ctx context.Context, userID string, filter repository.MediaLogFilter) ([]*model.MediaLog, error) {
	if filter.MediaType != "" && !filter.MediaType.IsValid() {
		return nil, model.NewValidationError(fmt.Sprintf("不正なメディア種別: %s", filter.MediaType))
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, model.NewValidationError(fmt.Sprintf("不正な進捗状態: %s", filter.Status))
	}

	logs, err := s.logRepo.ListByUserID(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("ログ一覧の取得に失敗しました: %w", err)
	}
	return logs, nil
}

// Update はログの可変フィールドを部分更新し、updated_atを進める。
// user_idとmedia_typeの変更試行はValidationErrorで拒否され、他のフィールドは変更されない。
func (s *Service) Update(ctx context.Context, userID, logID string, input UpdateInput) (*model.MediaLog, error) {
	if input.UserID != nil {
		return nil, model.NewValidationError("user_idは変更できません")
	}
	if input.MediaType != nil {
		return nil, model.NewValidationError("media_typeは変更できません")
	}

	log, err := s.logRepo.FindByID(ctx, userID, logID)
	if err != nil {
		return nil, fmt.Errorf("ログの取得に失敗しました: %w", err)
	}
	if log == nil {
		return nil, model.NewMediaLogNotFoundError(logID)
	}

	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, model.NewValidationError(fmt.Sprintf("不正な進捗状態: %s", *input.Status))
		}
		log.Status = *input.Status
	}
	if input.Rating != nil {
		if err := s.validateRating(ctx, userID, *input.Rating); err != nil {
			return nil, err
		}
		log.Rating = input.Rating
	}
	if input.ClearRating {
		log.Rating = nil
	}
	if input.Notes != nil {
		log.Notes = s.sanitizer.Sanitize(*input.Notes)
	}
	if input.Tags != nil {
		log.Tags = normalizeTags(*input.Tags, s.sanitizer)
	}
	if input.Mood != nil {
		log.Mood = s.sanitizer.SanitizeStrict(*input.Mood)
	}
	if input.Quote != nil {
		log.Quote = s.sanitizer.SanitizeStrict(*input.Quote)
	}
	if input.IsPrivate != nil {
		log.IsPrivate = *input.IsPrivate
	}
	if input.DateLogged != nil {
		log.DateLogged = *input.DateLogged
	}
	if input.CoverURL != nil {
		log.CoverURL = *input.CoverURL
	}

	log.UpdatedAt = time.Now()

	if err := s.logRepo.Update(ctx, log); err != nil {
		return nil, fmt.Errorf("ログの更新に失敗しました: %w", err)
	}

	return log, nil
}

// Delete はログを削除する。参照するコレクション所属はCASCADE削除される。
func (s *Service) Delete(ctx context.Context, userID, logID string) error {
	deleted, err := s.logRepo.Delete(ctx, userID, logID)
	if err != nil {
		return fmt.Errorf("ログの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewMediaLogNotFoundError(logID)
	}
	return nil
}

// validateRating はユーザーのレーティングシステムに対する値の検証を行う。
func (s *Service) validateRating(ctx context.Context, userID string, rating float64) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	ratingSystem := model.DefaultRatingSystem
	if user != nil && user.RatingSystem.IsValid() {
		ratingSystem = user.RatingSystem
	}

	if !ratingSystem.Contains(rating) {
		return model.NewValidationError(fmt.Sprintf(
			"レーティング %g は設定中のスケール（%s: %g〜%g）の範囲外です",
			rating, ratingSystem, ratingSystem.Min(), ratingSystem.Max(),
		))
	}
	return nil
}

// normalizeTags はタグをサニタイズし、空要素と重複を取り除く。
// タグは順序に意味を持たない集合だが、入力順を保って格納する。
func normalizeTags(tags []string, sanitizer security.ContentSanitizerService) []string {
	seen := make(map[string]bool, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		cleaned := strings.TrimSpace(sanitizer.SanitizeStrict(tag))
		if cleaned == "" || seen[cleaned] {
			continue
		}
		seen[cleaned] = true
		result = append(result, cleaned)
	}
	return result
}
