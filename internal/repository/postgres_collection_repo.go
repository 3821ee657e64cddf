package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mediashelf/internal/model"
)

// PostgresCollectionRepo はPostgreSQLを使用したコレクションリポジトリ。
type PostgresCollectionRepo struct {
	db *sql.DB
}

// NewPostgresCollectionRepo はPostgresCollectionRepoを生成する。
func NewPostgresCollectionRepo(db *sql.DB) *PostgresCollectionRepo {
	return &PostgresCollectionRepo{db: db}
}

// FindByID は指定IDのコレクションを取得する。見つからない場合はnilを返す。
func (r *PostgresCollectionRepo) FindByID(ctx context.Context, userID, id string) (*model.Collection, error) {
	c := &model.Collection{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, emoji, is_private, created_at
		 FROM collections WHERE id = $1 AND user_id = $2`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Emoji, &c.IsPrivate, &c.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find collection: %w", err)
	}

	return c, nil
}

// ListByUserID はユーザーの全コレクションを作成日時降順で返す。
func (r *PostgresCollectionRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Collection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, emoji, is_private, created_at
		 FROM collections WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []*model.Collection
	for rows.Next() {
		c := &model.Collection{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Description, &c.Emoji, &c.IsPrivate, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collections: %w", err)
	}

	return collections, nil
}

// Create はコレクションを作成する。
func (r *PostgresCollectionRepo) Create(ctx context.Context, collection *model.Collection) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO collections (id, user_id, name, description, emoji, is_private, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		collection.ID, collection.UserID, collection.Name, collection.Description,
		collection.Emoji, collection.IsPrivate, collection.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Update は名前・説明・絵文字・公開フラグを更新する。
func (r *PostgresCollectionRepo) Update(ctx context.Context, collection *model.Collection) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE collections
		 SET name = $1, description = $2, emoji = $3, is_private = $4
		 WHERE id = $5 AND user_id = $6`,
		collection.Name, collection.Description, collection.Emoji, collection.IsPrivate,
		collection.ID, collection.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update collection: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("collection not found: %s", collection.ID)
	}
	return nil
}

// Delete は指定IDのコレクションを削除する。
// 所属するcollection_itemsはCASCADE削除される。
func (r *PostgresCollectionRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM collections WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete collection: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByUserID はユーザーの全コレクションを削除する。
func (r *PostgresCollectionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM collections WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user collections: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CollectionRepository = (*PostgresCollectionRepo)(nil)
