package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/mediashelf/internal/model"
)

// PostgresMediaLogRepo はPostgreSQLを使用したメディアログリポジトリ。
// タグはtext[]カラムに格納し、pq.Arrayでマッピングする。
type PostgresMediaLogRepo struct {
	db *sql.DB
}

// NewPostgresMediaLogRepo はPostgresMediaLogRepoを生成する。
func NewPostgresMediaLogRepo(db *sql.DB) *PostgresMediaLogRepo {
	return &PostgresMediaLogRepo{db: db}
}

// mediaLogColumns はSELECT句で使用するカラムリスト。Scanの順序と一致させる。
const mediaLogColumns = `id, user_id, title, media_type, external_id, external_source,
	cover_url, notes, rating, status, date_logged, tags, mood, quote, is_private,
	created_at, updated_at`

// scanMediaLog は1行をMediaLogに読み取る。
func scanMediaLog(row interface{ Scan(...any) error }) (*model.MediaLog, error) {
	log := &model.MediaLog{}
	var rating sql.NullFloat64
	var tags pq.StringArray

	err := row.Scan(
		&log.ID, &log.UserID, &log.Title, &log.MediaType,
		&log.ExternalID, &log.ExternalSource,
		&log.CoverURL, &log.Notes, &rating, &log.Status, &log.DateLogged,
		&tags, &log.Mood, &log.Quote, &log.IsPrivate,
		&log.CreatedAt, &log.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		v := rating.Float64
		log.Rating = &v
	}
	log.Tags = []string(tags)

	return log, nil
}

// ratingArg はRatingポインタをSQL引数に変換する。
func ratingArg(rating *float64) any {
	if rating == nil {
		return nil
	}
	return *rating
}

// FindByID は指定IDのログを取得する。見つからない場合はnilを返す。
func (r *PostgresMediaLogRepo) FindByID(ctx context.Context, userID, id string) (*model.MediaLog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+mediaLogColumns+` FROM media_logs WHERE id = $1 AND user_id = $2`,
		id, userID,
	)

	log, err := scanMediaLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find media log: %w", err)
	}

	return log, nil
}

// ListByUserID はユーザーの全ログをdate_logged降順で返す。
// filterで種別・状態による絞り込みができる。
func (r *PostgresMediaLogRepo) ListByUserID(ctx context.Context, userID string, filter MediaLogFilter) ([]*model.MediaLog, error) {
	query := `SELECT ` + mediaLogColumns + ` FROM media_logs WHERE user_id = $1`
	args := []any{userID}

	if filter.MediaType != "" {
		args = append(args, filter.MediaType)
		query += fmt.Sprintf(" AND media_type = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += ` ORDER BY date_logged DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list media logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.MediaLog
	for rows.Next() {
		log, err := scanMediaLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media logs: %w", err)
	}

	return logs, nil
}

// Create はログを作成する。
func (r *PostgresMediaLogRepo) Create(ctx context.Context, log *model.MediaLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO media_logs (id, user_id, title, media_type, external_id, external_source,
		  cover_url, notes, rating, status, date_logged, tags, mood, quote, is_private,
		  created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		log.ID, log.UserID, log.Title, log.MediaType, log.ExternalID, log.ExternalSource,
		log.CoverURL, log.Notes, ratingArg(log.Rating), log.Status, log.DateLogged,
		pq.Array(log.Tags), log.Mood, log.Quote, log.IsPrivate,
		log.CreatedAt, log.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create media log: %w", err)
	}
	return nil
}

// Update は可変フィールドを上書き更新する。user_idとmedia_typeは更新しない。
func (r *PostgresMediaLogRepo) Update(ctx context.Context, log *model.MediaLog) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE media_logs
		 SET title = $1, cover_url = $2, notes = $3, rating = $4, status = $5,
		     date_logged = $6, tags = $7, mood = $8, quote = $9, is_private = $10,
		     updated_at = $11
		 WHERE id = $12 AND user_id = $13`,
		log.Title, log.CoverURL, log.Notes, ratingArg(log.Rating), log.Status,
		log.DateLogged, pq.Array(log.Tags), log.Mood, log.Quote, log.IsPrivate,
		log.UpdatedAt, log.ID, log.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update media log: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("media log not found: %s", log.ID)
	}
	return nil
}

// Delete は指定IDのログを削除する。参照するcollection_itemsはCASCADE削除される。
func (r *PostgresMediaLogRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM media_logs WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete media log: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByUserID はユーザーの全ログを削除する。
func (r *PostgresMediaLogRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM media_logs WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user media logs: %w", err)
	}
	return nil
}

// ListNeedingCover はカバー画像が未設定かつ外部カタログIDを持つログを返す。
// cover_checked_at IS NULL（未試行）を優先し、次に試行が古い順に処理する。
func (r *PostgresMediaLogRepo) ListNeedingCover(ctx context.Context, limit int) ([]*model.MediaLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+mediaLogColumns+`
		 FROM media_logs
		 WHERE cover_url = '' AND external_id <> ''
		 ORDER BY cover_checked_at ASC NULLS FIRST, created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs needing cover: %w", err)
	}
	defer rows.Close()

	var logs []*model.MediaLog
	for rows.Next() {
		log, err := scanMediaLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media log: %w", err)
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media logs: %w", err)
	}

	return logs, nil
}

// UpdateCover はログのカバー画像URLと確認日時を更新する。
// urlが空文字列の場合は確認日時のみ記録する。
func (r *PostgresMediaLogRepo) UpdateCover(ctx context.Context, logID, coverURL string) error {
	var err error
	if coverURL == "" {
		_, err = r.db.ExecContext(ctx,
			`UPDATE media_logs SET cover_checked_at = now() WHERE id = $1`,
			logID,
		)
	} else {
		_, err = r.db.ExecContext(ctx,
			`UPDATE media_logs SET cover_url = $1, cover_checked_at = now() WHERE id = $2`,
			coverURL, logID,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update cover: %w", err)
	}
	return nil
}

// compile-time interface check
var _ MediaLogRepository = (*PostgresMediaLogRepo)(nil)
var _ EnrichLogRepository = (*PostgresMediaLogRepo)(nil)
