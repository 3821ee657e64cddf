// Package stats はユーザーのメディアログに対する統計集計を提供する。
package stats

import (
	"context"
	"fmt"
	"sort"

	"github.com/hitoshi/mediashelf/internal/model"
	"github.com/hitoshi/mediashelf/internal/repository"
)

// MonthlyCount は月ごとのログ記録数を表す。MonthはYYYY-MM形式。
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// Summary はユーザーの全ログに対する集計結果を表す。
// CountsByTypeとCountsByStatusは該当ログが0件でも全キーを含む。
// RatingHistogramの長さはRatingSystemのバケット数に等しく、
// レーティング未設定のログはヒストグラムにも平均にも含まれない。
type Summary struct {
	TotalLogs       int                       `json:"total_logs"`
	CountsByType    map[model.MediaType]int   `json:"counts_by_type"`
	CountsByStatus  map[model.MediaStatus]int `json:"counts_by_status"`
	RatingSystem    model.RatingSystem        `json:"rating_system"`
	RatingHistogram []int                     `json:"rating_histogram"`
	RatedLogs       int                       `json:"rated_logs"`
	AverageRating   float64                   `json:"average_rating"`
	MonthlyActivity []MonthlyCount            `json:"monthly_activity"`
}

// Summarize はログ集合から集計結果を算出する純粋関数。
// 空入力では全カウント0・空ヒストグラムの集計を返し、エラーにはならない。
func Summarize(logs []*model.MediaLog, ratingSystem model.RatingSystem) Summary {
	if !ratingSystem.IsValid() {
		ratingSystem = model.DefaultRatingSystem
	}

	summary := Summary{
		TotalLogs:       len(logs),
		CountsByType:    make(map[model.MediaType]int, len(model.AllMediaTypes())),
		CountsByStatus:  make(map[model.MediaStatus]int, len(model.AllMediaStatuses())),
		RatingSystem:    ratingSystem,
		RatingHistogram: make([]int, ratingSystem.BucketCount()),
		MonthlyActivity: []MonthlyCount{},
	}
	for _, mediaType := range model.AllMediaTypes() {
		summary.CountsByType[mediaType] = 0
	}
	for _, status := range model.AllMediaStatuses() {
		summary.CountsByStatus[status] = 0
	}

	monthly := make(map[string]int)
	ratingTotal := 0.0
	for _, log := range logs {
		summary.CountsByType[log.MediaType]++
		summary.CountsByStatus[log.Status]++
		monthly[log.DateLogged.Format("2006-01")]++

		if log.Rating != nil {
			summary.RatingHistogram[ratingSystem.BucketIndex(*log.Rating)]++
			summary.RatedLogs++
			ratingTotal += *log.Rating
		}
	}

	if summary.RatedLogs > 0 {
		summary.AverageRating = ratingTotal / float64(summary.RatedLogs)
	}

	for month, count := range monthly {
		summary.MonthlyActivity = append(summary.MonthlyActivity, MonthlyCount{Month: month, Count: count})
	}
	sort.Slice(summary.MonthlyActivity, func(i, j int) bool {
		return summary.MonthlyActivity[i].Month < summary.MonthlyActivity[j].Month
	})

	return summary
}

// Service はユーザーのログ全件を取得して集計するサービス層。
type Service struct {
	logRepo  repository.MediaLogRepository
	userRepo repository.UserRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(logRepo repository.MediaLogRepository, userRepo repository.UserRepository) *Service {
	return &Service{logRepo: logRepo, userRepo: userRepo}
}

// Summary はユーザーの全ログの集計結果を返す。
// ヒストグラムのバケット構成はユーザーのレーティングシステム設定に従う。
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}

	ratingSystem := model.DefaultRatingSystem
	if user != nil && user.RatingSystem.IsValid() {
		ratingSystem = user.RatingSystem
	}

	logs, err := s.logRepo.ListByUserID(ctx, userID, repository.MediaLogFilter{})
	if err != nil {
		return nil, fmt.Errorf("ログ一覧の取得に失敗しました: %w", err)
	}

	summary := Summarize(logs, ratingSystem)
	return &summary, nil
}
