package session

import (
	"slices"

	"github.com/hitoshi/peerview/internal/model"
)

// ロールの判定はキャッシュ済みのユーザーのみを参照し、バックエンドには問い合わせない。
// 未認証の場合や、ロールが未設定・未知の値の場合はすべてfalseを返す。

// HasRole は現在のユーザーが指定ロールかを返す。
func (s *Store) HasRole(role model.Role) bool {
	return hasAnyRole(s.currentUser(), role)
}

// HasAnyRole は現在のユーザーが指定ロールのいずれかかを返す。
func (s *Store) HasAnyRole(roles ...model.Role) bool {
	return hasAnyRole(s.currentUser(), roles...)
}

// IsStudent は現在のユーザーが学生かを返す。
func (s *Store) IsStudent() bool {
	return s.HasRole(model.RoleStudent)
}

// IsTeacher は現在のユーザーが教員かを返す。
func (s *Store) IsTeacher() bool {
	return s.HasRole(model.RoleTeacher)
}

// IsAdmin は現在のユーザーが管理者かを返す。
func (s *Store) IsAdmin() bool {
	return s.HasRole(model.RoleAdmin)
}

// CanAnswer は回答できるロール（教員・管理者）かを返す。
func (s *Store) CanAnswer() bool {
	return s.HasAnyRole(model.RoleTeacher, model.RoleAdmin)
}

// CanModerate はモデレーションできるロール（管理者）かを返す。
func (s *Store) CanModerate() bool {
	return s.IsAdmin()
}

func (s *Store) currentUser() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.User
}

func hasAnyRole(user *model.User, roles ...model.Role) bool {
	if user == nil || !user.Role.Valid() {
		return false
	}
	return slices.Contains(roles, user.Role)
}
