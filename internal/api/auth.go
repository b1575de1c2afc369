package api

import (
	"context"
	"net/http"

	"github.com/hitoshi/peerview/internal/model"
)

// Login はメールアドレスとパスワードでログインする。
// POST {base}/v1/auth/login。認証ヘッダーなし、リトライなし。
func (c *Client) Login(ctx context.Context, credentials model.LoginRequest) (*model.AuthResponse, error) {
	if err := c.validateRequest(credentials); err != nil {
		return nil, c.invalid("login", err)
	}

	var resp model.AuthResponse
	if err := c.send(ctx, "login", http.MethodPost, c.v1URL+"/auth/login", credentials, false, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register はユーザーを登録する。
// POST {base}/v1/auth/register。認証ヘッダーなし、リトライなし。
func (c *Client) Register(ctx context.Context, userData model.RegisterRequest) (*model.AuthResponse, error) {
	if err := c.validateRequest(userData); err != nil {
		return nil, c.invalid("register", err)
	}

	var resp model.AuthResponse
	if err := c.send(ctx, "register", http.MethodPost, c.v1URL+"/auth/register", userData, false, false, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCurrentUser はトークンに対応するユーザーを取得する。セッションの本人確認に使う。
// GET {base}/v1/users/me。
func (c *Client) GetCurrentUser(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.send(ctx, "get_current_user", http.MethodGet, c.v1URL+"/users/me", nil, true, false, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
