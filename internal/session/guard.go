package session

import (
	"errors"

	"github.com/hitoshi/peerview/internal/model"
)

var (
	// ErrNotAuthenticated はログインが必要な操作を未認証で実行した場合のエラー。
	ErrNotAuthenticated = errors.New("login required")
	// ErrForbidden は権限のないロールで操作を実行した場合のエラー。
	ErrForbidden = errors.New("admin role required")
)

// RequireAuth は認証済みであれば現在のユーザーを返す。
func (s *Store) RequireAuth() (*model.User, error) {
	sess := s.Current()
	if !sess.IsAuthenticated || sess.User == nil {
		return nil, ErrNotAuthenticated
	}
	return sess.User, nil
}

// RequireAdmin は管理者であれば現在のユーザーを返す。
func (s *Store) RequireAdmin() (*model.User, error) {
	user, err := s.RequireAuth()
	if err != nil {
		return nil, err
	}
	if user.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	return user, nil
}
