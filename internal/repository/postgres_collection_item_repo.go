package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/mediashelf/internal/model"
)

// uniqueViolationCode はPostgreSQLの一意制約違反のSQLSTATEコード。
const uniqueViolationCode = "23505"

// PostgresCollectionItemRepo はPostgreSQLを使用したコレクション所属リポジトリ。
type PostgresCollectionItemRepo struct {
	db *sql.DB
}

// NewPostgresCollectionItemRepo はPostgresCollectionItemRepoを生成する。
func NewPostgresCollectionItemRepo(db *sql.DB) *PostgresCollectionItemRepo {
	return &PostgresCollectionItemRepo{db: db}
}

// FindByCollectionAndLog は(collection_id, media_log_id)で所属情報を検索する。
// 見つからない場合はnilを返す。
func (r *PostgresCollectionItemRepo) FindByCollectionAndLog(ctx context.Context, collectionID, mediaLogID string) (*model.CollectionItem, error) {
	item := &model.CollectionItem{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, collection_id, media_log_id, added_at
		 FROM collection_items
		 WHERE collection_id = $1 AND media_log_id = $2`,
		collectionID, mediaLogID,
	).Scan(&item.ID, &item.CollectionID, &item.MediaLogID, &item.AddedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find collection item: %w", err)
	}

	return item, nil
}

// ListByCollectionID はコレクションの所属一覧をadded_at昇順で返す。
// MediaLogはmedia_logsテーブルとのJOINで再取得する。非正規化コピーを
// 信頼できるソースとして扱わないための措置。
func (r *PostgresCollectionItemRepo) ListByCollectionID(ctx context.Context, collectionID string) ([]*model.CollectionItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ci.id, ci.collection_id, ci.media_log_id, ci.added_at,
		        ml.id, ml.user_id, ml.title, ml.media_type, ml.external_id, ml.external_source,
		        ml.cover_url, ml.notes, ml.rating, ml.status, ml.date_logged, ml.tags,
		        ml.mood, ml.quote, ml.is_private, ml.created_at, ml.updated_at
		 FROM collection_items ci
		 JOIN media_logs ml ON ml.id = ci.media_log_id
		 WHERE ci.collection_id = $1
		 ORDER BY ci.added_at ASC`,
		collectionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection items: %w", err)
	}
	defer rows.Close()

	var items []*model.CollectionItem
	for rows.Next() {
		item := &model.CollectionItem{}
		log := &model.MediaLog{}
		var rating sql.NullFloat64
		var tags pq.StringArray

		err := rows.Scan(
			&item.ID, &item.CollectionID, &item.MediaLogID, &item.AddedAt,
			&log.ID, &log.UserID, &log.Title, &log.MediaType,
			&log.ExternalID, &log.ExternalSource,
			&log.CoverURL, &log.Notes, &rating, &log.Status, &log.DateLogged, &tags,
			&log.Mood, &log.Quote, &log.IsPrivate, &log.CreatedAt, &log.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection item: %w", err)
		}

		if rating.Valid {
			v := rating.Float64
			log.Rating = &v
		}
		log.Tags = []string(tags)
		item.MediaLog = log

		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collection items: %w", err)
	}

	return items, nil
}

// Create は所属情報を作成する。
// (collection_id, media_log_id)の一意制約違反はDUPLICATE_COLLECTION_ITEMエラーとして返す。
func (r *PostgresCollectionItemRepo) Create(ctx context.Context, item *model.CollectionItem) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collection_items (id, collection_id, media_log_id, added_at)
		 VALUES ($1, $2, $3, $4)`,
		item.ID, item.CollectionID, item.MediaLogID, item.AddedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
			return model.NewDuplicateCollectionItemError()
		}
		return fmt.Errorf("failed to create collection item: %w", err)
	}
	return nil
}

// Delete は所属情報を削除する。存在しない場合はfalseを返す。
func (r *PostgresCollectionItemRepo) Delete(ctx context.Context, collectionID, mediaLogID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM collection_items
		 WHERE collection_id = $1 AND media_log_id = $2`,
		collectionID, mediaLogID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete collection item: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// compile-time interface check
var _ CollectionItemRepository = (*PostgresCollectionItemRepo)(nil)
