// Package model はドメインモデルを定義する。
package model

// Role はユーザーのロールを表す。
// バックエンドが定義する3種類のみが有効な値となる。
type Role string

const (
	// RoleStudent は質問を投稿する学生ロール。
	RoleStudent Role = "student"
	// RoleTeacher は回答できる教員ロール。
	RoleTeacher Role = "teacher"
	// RoleAdmin はモデレーション権限を持つ管理者ロール。
	RoleAdmin Role = "admin"
)

// Valid はロールが定義済みの3種類のいずれかであるかを返す。
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	default:
		return false
	}
}

// User はサービス利用ユーザーを表す。
// バックエンドが正とし、クライアントは古い可能性のあるキャッシュを保持する。
// CreatedAtはバックエンドがタイムゾーンなしのISO 8601文字列で返すため文字列のまま保持する。
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	Role      Role   `json:"role"`
	CreatedAt string `json:"createdAt"`
	IsActive  bool   `json:"isActive"`
}

// LoginRequest はログインAPIのリクエストボディ。
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest はユーザー登録APIのリクエストボディ。
// 登録時に選べるロールはstudentとteacherのみ。
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	FullName string `json:"fullName" validate:"required"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=student teacher"`
}

// AuthResponse はログイン・登録APIのレスポンス。
// セッション確立の唯一の根拠であり、userとtokenは必ず一緒に保存する。
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// SessionState はクライアント側セッションの状態を表す。
type SessionState string

const (
	// SessionAnonymous はトークンもユーザーも保持していない状態。
	SessionAnonymous SessionState = "anonymous"
	// SessionVerifying は保存済みセッションをバックエンドで確認中の状態。
	SessionVerifying SessionState = "verifying"
	// SessionAuthenticated はログイン・登録または本人確認で有効と確認された状態。
	SessionAuthenticated SessionState = "authenticated"
)

// Session は購読者に配信されるセッション状態。
// ユーザーと認証フラグは常に1つの値として配信される（IsAuthenticated == (User != nil)）。
type Session struct {
	User            *User
	IsAuthenticated bool
	State           SessionState
}

// NewAnonymousSession は未認証のセッション値を生成する。
// stateにはSessionAnonymousまたはSessionVerifyingを指定する。
func NewAnonymousSession(state SessionState) Session {
	return Session{State: state}
}

// NewAuthenticatedSession は認証済みのセッション値を生成する。
// 呼び出し元の変更が配信済みの値に影響しないようユーザーをコピーして保持する。
func NewAuthenticatedSession(user User) Session {
	u := user
	return Session{User: &u, IsAuthenticated: true, State: SessionAuthenticated}
}
