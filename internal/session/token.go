package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/peerview/internal/storage"
)

// ErrNoToken はトークンが保存されていない場合のエラー。
var ErrNoToken = errors.New("no auth token stored")

// Claims はバックエンドが発行するトークンのクレーム。
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenInfo は表示用に取り出したトークンの内容。
type TokenInfo struct {
	UserID    string
	Email     string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired はnow時点でトークンの有効期限が切れているかを返す。
// 有効期限がない場合はfalseを返す。
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// TokenInfo は保存済みトークンのクレームを返す。
// 署名の検証はバックエンドが行うため、ここでは検証せずに表示用として読み取るだけにする。
func (s *Store) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	token, ok, err := s.storage.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read auth token: %w", err)
	}
	if !ok || token == "" {
		return nil, ErrNoToken
	}
	return ParseTokenInfo(token)
}

// ParseTokenInfo はトークン文字列を署名検証なしで解析する。
func ParseTokenInfo(token string) (*TokenInfo, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse auth token: %w", err)
	}

	info := &TokenInfo{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   claims.Role,
	}
	if info.UserID == "" {
		info.UserID = claims.Subject
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}
