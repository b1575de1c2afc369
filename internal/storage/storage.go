// Package storage はクライアントローカルの永続キーバリューストアを提供する。
// ブラウザのlocalStorageに相当し、セッションのトークンとユーザースナップショットを保持する。
package storage

import (
	"context"
	"errors"
	"fmt"
)

// 永続化するエントリのキー。SessionStoreだけが書き込み、トークンはApiClientも読み取る。
const (
	KeyAuthToken = "auth_token"
	KeyUserData  = "user_data"
)

// ErrUnknownBackend は未対応のストレージバックエンドが指定された場合のエラー。
var ErrUnknownBackend = errors.New("unknown storage backend")

// Store は文字列キーバリューの永続化インターフェース。
type Store interface {
	// Get はキーの値を取得する。存在しない場合はokにfalseを返す。
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// SetMany は複数エントリをまとめて書き込む。
	// 実装は全件書き込まれるか全件書き込まれないかのどちらかになるようにする。
	SetMany(ctx context.Context, entries map[string]string) error

	// Delete は指定キーを削除する。存在しないキーは無視する。
	Delete(ctx context.Context, keys ...string) error
}

// Set は1エントリを書き込む。
func Set(ctx context.Context, s Store, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

// TokenReader はStoreからベアラートークンを読み取る。
// ApiClientが呼び出しのたびに最新のトークンを取得するために使う。
type TokenReader struct {
	store Store
}

// NewTokenReader はTokenReaderを生成する。
func NewTokenReader(store Store) *TokenReader {
	return &TokenReader{store: store}
}

// Token は保存済みのトークンを返す。未保存の場合は空文字列を返す。
func (r *TokenReader) Token(ctx context.Context) (string, error) {
	token, ok, err := r.store.Get(ctx, KeyAuthToken)
	if err != nil {
		return "", fmt.Errorf("failed to read auth token: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}
