package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresStore はPostgreSQLのclient_storageテーブルを使用するStore実装。
// 共有端末などで複数プロファイルのセッションを1つのDBに保持する用途を想定する。
// テーブルはdatabase.RunMigrationsで作成する。
type PostgresStore struct {
	db      *sql.DB
	profile string
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db *sql.DB, profile string) *PostgresStore {
	return &PostgresStore{db: db, profile: profile}
}

// Get はキーの値を取得する。
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE profile = $1 AND key = $2`,
		s.profile, key,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get storage entry: %w", err)
	}
	return value, true, nil
}

// SetMany は複数エントリを同一トランザクションでUPSERTする。
func (s *PostgresStore) SetMany(ctx context.Context, entries map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for k, v := range entries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO client_storage (profile, key, value, updated_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (profile, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			s.profile, k, v,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert storage entry %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit storage entries: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (s *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM client_storage WHERE profile = $1 AND key = $2`,
			s.profile, k,
		)
		if err != nil {
			return fmt.Errorf("failed to delete storage entry %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit storage deletion: %w", err)
	}
	return nil
}

// compile-time interface check
var _ Store = (*PostgresStore)(nil)
