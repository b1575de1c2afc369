// Package session はクライアント側のログインセッションを管理する。
// トークンとユーザーのスナップショットを永続ストレージに対で保存し、
// セッション状態の変化を購読者に配信する。
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/peerview/internal/metrics"
	"github.com/hitoshi/peerview/internal/model"
	"github.com/hitoshi/peerview/internal/storage"
)

// Authenticator はセッション管理が利用する認証APIのインターフェース。
// api.Clientが実装する。
type Authenticator interface {
	Login(ctx context.Context, credentials model.LoginRequest) (*model.AuthResponse, error)
	Register(ctx context.Context, userData model.RegisterRequest) (*model.AuthResponse, error)
	GetCurrentUser(ctx context.Context) (*model.User, error)
}

// Store はセッション状態を保持する。複数goroutineから同時に利用できる。
// 状態の更新と配信は同じロックの下で行うため、購読者は更新順に値を受け取る。
type Store struct {
	api     Authenticator
	storage storage.Store
	logger  *slog.Logger
	metrics metrics.MetricsCollector

	mu         sync.Mutex
	current    model.Session
	generation uint64
	subs       map[int]chan model.Session
	nextSubID  int
}

// Option はStoreの任意設定。
type Option func(*Store)

// WithMetrics は状態遷移の記録先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// New は未認証状態のStoreを生成する。保存済みセッションの復元はRestoreで行う。
func New(api Authenticator, store storage.Store, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		api:     api,
		storage: store,
		logger:  logger,
		metrics: metrics.NopCollector{},
		current: model.NewAnonymousSession(model.SessionAnonymous),
		subs:    make(map[int]chan model.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore は保存済みのトークンとユーザーからセッションを復元する。
// 両方が保存されている場合はバックエンドで本人確認を行い、成功すればサーバーの最新のユーザー情報で
// 認証済みにする。確認に失敗した場合や保存内容が壊れている場合はログアウトする。
// 確認中にLogin・Register・Logoutが行われた場合、確認結果は破棄する。
// ctxがキャンセルされた場合は保存内容を残したまま未認証として返す。
func (s *Store) Restore(ctx context.Context) model.Session {
	token, user, err := s.loadPair(ctx)
	if errors.Is(err, context.Canceled) {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.abandonLocked()
	}
	if err != nil {
		s.logger.Warn("保存済みセッションを読み込めません",
			slog.String("error", err.Error()),
		)
		s.mu.Lock()
		s.clearLocked(ctx)
		s.mu.Unlock()
		return s.Current()
	}
	if token == "" || user == nil {
		s.mu.Lock()
		// 片方だけ残っている場合も対で消す
		s.clearLocked(ctx)
		s.mu.Unlock()
		return s.Current()
	}

	s.mu.Lock()
	gen := s.generation
	s.publishLocked(model.NewAnonymousSession(model.SessionVerifying))
	s.mu.Unlock()

	verified, err := s.api.GetCurrentUser(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		s.logger.Info("本人確認の結果を破棄しました（確認中にセッションが変更されました）")
		return s.snapshotLocked()
	}

	if errors.Is(err, context.Canceled) {
		return s.abandonLocked()
	}
	if err != nil {
		s.logger.Warn("保存済みセッションの本人確認に失敗しました",
			slog.String("kind", string(model.KindOf(err))),
			slog.Int("http_status", model.StatusOf(err)),
			slog.String("error", err.Error()),
		)
		s.clearLocked(ctx)
		return s.snapshotLocked()
	}

	data, err := json.Marshal(verified)
	if err != nil {
		s.clearLocked(ctx)
		return s.snapshotLocked()
	}
	if err := storage.Set(ctx, s.storage, storage.KeyUserData, string(data)); err != nil {
		// 保存済みのユーザーは古いままだがトークンとの対は保たれている
		s.logger.Warn("ユーザー情報の保存に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	s.publishLocked(model.NewAuthenticatedSession(*verified))
	s.logger.Info("保存済みセッションを復元しました",
		slog.String("user_id", verified.ID),
		slog.String("role", string(verified.Role)),
	)
	return s.snapshotLocked()
}

// abandonLocked は保存内容に触れずに未認証の状態を配信する。s.muを保持して呼び出す。
// キャンセルはトークンの失効ではないため、保存済みのセッションは次回の起動で再確認する。
func (s *Store) abandonLocked() model.Session {
	s.logger.Info("保存済みセッションの本人確認を中断しました")
	s.publishLocked(model.NewAnonymousSession(model.SessionAnonymous))
	return s.snapshotLocked()
}

// Login はログインAPIを呼び出し、成功時にトークンとユーザーを保存して認証済みにする。
// 失敗時はセッション状態を変更しない。
func (s *Store) Login(ctx context.Context, credentials model.LoginRequest) (*model.User, error) {
	resp, err := s.api.Login(ctx, credentials)
	if err != nil {
		return nil, err
	}
	if err := s.establish(ctx, resp); err != nil {
		return nil, err
	}
	user := resp.User
	return &user, nil
}

// Register は登録APIを呼び出し、成功時にトークンとユーザーを保存して認証済みにする。
func (s *Store) Register(ctx context.Context, userData model.RegisterRequest) (*model.User, error) {
	resp, err := s.api.Register(ctx, userData)
	if err != nil {
		return nil, err
	}
	if err := s.establish(ctx, resp); err != nil {
		return nil, err
	}
	user := resp.User
	return &user, nil
}

// Logout は保存済みのトークンとユーザーを削除して未認証にする。
// ストレージの削除に失敗してもログに記録するのみで、状態は必ず未認証になる。
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.clearLocked(ctx)
}

// Current は現在のセッションのスナップショットを返す。
func (s *Store) Current() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// establish は認証レスポンスを対で保存し、認証済みの状態を配信する。
// 保存に失敗した場合は両方のエントリを削除して片方だけ残らないようにする。
func (s *Store) establish(ctx context.Context, resp *model.AuthResponse) error {
	if resp.Token == "" {
		return model.NewParseError(0, fmt.Errorf("auth response has no token"))
	}
	data, err := json.Marshal(resp.User)
	if err != nil {
		return model.NewParseError(0, fmt.Errorf("failed to encode user: %w", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++

	err = s.storage.SetMany(ctx, map[string]string{
		storage.KeyAuthToken: resp.Token,
		storage.KeyUserData:  string(data),
	})
	if err != nil {
		if delErr := s.storage.Delete(ctx, storage.KeyAuthToken, storage.KeyUserData); delErr != nil {
			s.logger.Error("セッション保存失敗後のロールバックに失敗しました",
				slog.String("error", delErr.Error()),
			)
		}
		s.publishLocked(model.NewAnonymousSession(model.SessionAnonymous))
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.publishLocked(model.NewAuthenticatedSession(resp.User))
	s.logger.Info("ログインしました",
		slog.String("user_id", resp.User.ID),
		slog.String("role", string(resp.User.Role)),
	)
	return nil
}

// loadPair は保存済みのトークンとユーザーを読み込む。
// どちらかが存在しない場合はトークンを空文字列、ユーザーをnilで返す。
func (s *Store) loadPair(ctx context.Context) (string, *model.User, error) {
	token, tokenOK, err := s.storage.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read auth token: %w", err)
	}
	userData, userOK, err := s.storage.Get(ctx, storage.KeyUserData)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read user data: %w", err)
	}
	if !tokenOK || !userOK || token == "" || userData == "" {
		return "", nil, nil
	}

	var user model.User
	if err := json.Unmarshal([]byte(userData), &user); err != nil {
		return "", nil, model.NewParseError(0, fmt.Errorf("failed to parse stored user: %w", err))
	}
	return token, &user, nil
}

// clearLocked は保存済みエントリを削除し、未認証の状態を配信する。s.muを保持して呼び出す。
func (s *Store) clearLocked(ctx context.Context) {
	if err := s.storage.Delete(ctx, storage.KeyAuthToken, storage.KeyUserData); err != nil {
		s.logger.Error("セッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	s.publishLocked(model.NewAnonymousSession(model.SessionAnonymous))
}

// snapshotLocked は現在値のコピーを返す。s.muを保持して呼び出す。
func (s *Store) snapshotLocked() model.Session {
	return copySession(s.current)
}

// copySession は配信先で書き換えられても共有されないようユーザーを複製する。
func copySession(sess model.Session) model.Session {
	if sess.User != nil {
		u := *sess.User
		sess.User = &u
	}
	return sess
}
