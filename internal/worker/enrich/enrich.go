// Package enrich はカバー画像のバックグラウンド補完処理を提供する。
// カバー未設定のメディアログを対象に外部カタログを検索し、
// 見つかったカバー画像URLをログに反映する。
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/mediashelf/internal/catalog"
	"github.com/hitoshi/mediashelf/internal/model"
	"github.com/hitoshi/mediashelf/internal/repository"
)

// CoverEnrichedRecorder はカバー補完成功のメトリクス記録インターフェース。
// nilの場合は記録しない。
type CoverEnrichedRecorder interface {
	RecordCoverEnriched()
}

// Config はカバー補完ジョブの設定パラメータ。
// 環境変数から設定可能。
type Config struct {
	// Interval はジョブの実行間隔（デフォルト: 10分）。
	Interval time.Duration
	// APIInterval は外部カタログ呼び出しの最低間隔（デフォルト: 2秒）。
	APIInterval time.Duration
	// MaxCallsPerCycle は1サイクルあたりの最大検索回数（デフォルト: 50）。
	MaxCallsPerCycle int
	// MaxConcurrent は検索の最大並列数（デフォルト: 4）。
	MaxConcurrent int
}

// DefaultConfig はデフォルトのジョブ設定を返す。
func DefaultConfig() Config {
	return Config{
		Interval:         10 * time.Minute,
		APIInterval:      2 * time.Second,
		MaxCallsPerCycle: 50,
		MaxConcurrent:    4,
	}
}

// Job はカバー画像の補完バッチジョブ。
// 定期的にcover_urlが空かつ未確認のメディアログを対象に
// 種別に対応する外部カタログを検索してカバー画像URLを更新する。
// 検索結果にカバーが見つからない場合も確認日時を記録し、
// 同じログを繰り返し検索しないようにする。
type Job struct {
	logRepo           repository.EnrichLogRepository
	sources           catalog.Registry
	recorder          CoverEnrichedRecorder
	logger            *slog.Logger
	config            Config
	consecutiveErrors int
	backoffUntil      time.Time
}

// NewJob はJobの新しいインスタンスを生成する。
// MaxConcurrentが0以下の場合はデフォルト値4を使用する。
func NewJob(
	logRepo repository.EnrichLogRepository,
	sources catalog.Registry,
	recorder CoverEnrichedRecorder,
	logger *slog.Logger,
	config Config,
) *Job {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}
	return &Job{
		logRepo:  logRepo,
		sources:  sources,
		recorder: recorder,
		logger:   logger,
		config:   config,
	}
}

// Start はジョブをティッカーで定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	j.logger.Info("カバー補完ジョブを開始しました",
		slog.Duration("interval", j.config.Interval),
		slog.Duration("api_interval", j.config.APIInterval),
		slog.Int("max_calls_per_cycle", j.config.MaxCallsPerCycle),
		slog.Int("max_concurrent", j.config.MaxConcurrent),
	)

	// 起動直後に1回実行
	if err := j.RunOnce(ctx); err != nil {
		j.logger.Error("カバー補完サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("カバー補完ジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.RunOnce(ctx); err != nil {
				j.logger.Error("カバー補完サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は1回の補完サイクルを実行する。
// 対象ログを取得し、レートリミッタで間隔を制御しながら
// 最大MaxConcurrent並列で外部カタログを検索する。
func (j *Job) RunOnce(ctx context.Context) error {
	start := time.Now()

	// バックオフ中の場合はスキップ
	if !j.backoffUntil.IsZero() && time.Now().Before(j.backoffUntil) {
		j.logger.Info("カバー補完ジョブはバックオフ中のためスキップします",
			slog.Time("backoff_until", j.backoffUntil),
		)
		return nil
	}

	logs, err := j.logRepo.ListNeedingCover(ctx, j.config.MaxCallsPerCycle)
	if err != nil {
		return fmt.Errorf("カバー補完対象ログの取得に失敗しました: %w", err)
	}

	if len(logs) == 0 {
		j.logger.Info("カバー補完対象のログはありません")
		return nil
	}

	j.logger.Info("カバー補完サイクルを開始します",
		slog.Int("target_logs", len(logs)),
	)

	// APIIntervalをレートリミッタに変換し、並列検索でも最低間隔を保証する
	limiter := rate.NewLimiter(rate.Every(j.config.APIInterval), 1)
	sem := make(chan struct{}, j.config.MaxConcurrent)
	var wg sync.WaitGroup

	var enrichedCount, checkedCount, failureCount atomic.Int64

	for _, ml := range logs {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(ml *model.MediaLog) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			coverURL, err := j.findCover(ctx, ml)
			if err != nil {
				failureCount.Add(1)
				j.logger.Error("カバー画像の検索に失敗しました",
					slog.String("log_id", ml.ID),
					slog.String("title", ml.Title),
					slog.String("media_type", string(ml.MediaType)),
					slog.String("error", err.Error()),
				)
				return
			}

			// カバーが見つからなくても確認日時を記録する（空URLで更新）
			if err := j.logRepo.UpdateCover(ctx, ml.ID, coverURL); err != nil {
				j.logger.Error("カバー画像の更新に失敗しました",
					slog.String("log_id", ml.ID),
					slog.String("error", err.Error()),
				)
				return
			}

			checkedCount.Add(1)
			if coverURL != "" {
				enrichedCount.Add(1)
				if j.recorder != nil {
					j.recorder.RecordCoverEnriched()
				}
			}
		}(ml)
	}

	wg.Wait()

	// 検索エラーがなければ連続エラーカウントをリセット
	if failures := int(failureCount.Load()); failures > 0 {
		j.consecutiveErrors += failures
		if backoff := j.calculateErrorBackoff(j.consecutiveErrors); backoff > 0 {
			j.backoffUntil = time.Now().Add(backoff)
			j.logger.Warn("連続エラーによりバックオフを適用します",
				slog.Int("consecutive_errors", j.consecutiveErrors),
				slog.Duration("backoff_duration", backoff),
			)
		}
	} else {
		j.consecutiveErrors = 0
		j.backoffUntil = time.Time{}
	}

	duration := time.Since(start)
	j.logger.Info("カバー補完サイクルが完了しました",
		slog.Int("target_logs", len(logs)),
		slog.Int64("checked_logs", checkedCount.Load()),
		slog.Int64("enriched_logs", enrichedCount.Load()),
		slog.Int64("failed_searches", failureCount.Load()),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// findCover はログのタイトルで外部カタログを検索し、カバー画像URLを返す。
// ExternalIDが一致する結果を優先し、なければカバーを持つ先頭の結果を使う。
// 見つからない場合は空文字列を返す（エラーではない）。
func (j *Job) findCover(ctx context.Context, ml *model.MediaLog) (string, error) {
	source, ok := j.sources.SourceFor(ml.MediaType)
	if !ok {
		// 対応ソースのない種別は確認済みとして記録する
		return "", nil
	}

	results, err := source.Search(ctx, ml.Title)
	if err != nil {
		return "", err
	}

	// 外部カタログ識別子が一致する結果を優先
	if ml.ExternalID != "" && (ml.ExternalSource == "" || ml.ExternalSource == source.Name()) {
		for _, r := range results {
			if r.ExternalID == ml.ExternalID && r.CoverURL != "" {
				return r.CoverURL, nil
			}
		}
	}

	for _, r := range results {
		if r.CoverURL != "" {
			return r.CoverURL, nil
		}
	}

	return "", nil
}

// calculateErrorBackoff は連続エラー回数に基づくバックオフ時間を計算する。
// 3回連続: 30分、5回連続: 1時間、10回連続: 6時間。
func (j *Job) calculateErrorBackoff(consecutiveErrors int) time.Duration {
	switch {
	case consecutiveErrors >= 10:
		return 6 * time.Hour
	case consecutiveErrors >= 5:
		return 1 * time.Hour
	case consecutiveErrors >= 3:
		return 30 * time.Minute
	default:
		return 0
	}
}
