package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/mediashelf/internal/model"
)

const identityColumns = `id, user_id, provider, provider_user_id, created_at`

// PostgresIdentityRepo はidentitiesテーブルへのアクセスを提供する。
// identity行の作成はユーザー登録と同一トランザクションで行うため、
// PostgresUserRepo.CreateWithIdentity側にある。
type PostgresIdentityRepo struct {
	db *sql.DB
}

func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndProviderUserID はIdPとIdP側ユーザーIDの組でidentityを探す。
// 未登録の場合はnilを返す。
func (r *PostgresIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID,
	)

	identity := &model.Identity{}
	err := row.Scan(&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderUserID, &identity.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	return identity, nil
}

var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
