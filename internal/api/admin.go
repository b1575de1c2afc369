package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/peerview/internal/model"
)

// 管理者向けAPI。権限の判定はバックエンドが行い、いずれもリトライしない。

// GetAdminStats は統計情報を取得する。GET {base}/v1/admin/stats。
func (c *Client) GetAdminStats(ctx context.Context) (*model.AdminStats, error) {
	var stats model.AdminStats
	if err := c.send(ctx, "get_admin_stats", http.MethodGet, c.v1URL+"/admin/stats", nil, true, false, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ModerateContent は質問または回答を削除・フラグ付けする。POST {base}/v1/admin/moderation。
func (c *Client) ModerateContent(ctx context.Context, moderation model.ModerationRequest) (*model.ModerationResult, error) {
	if err := c.validateRequest(moderation); err != nil {
		return nil, c.invalid("moderate_content", err)
	}

	var result model.ModerationResult
	if err := c.send(ctx, "moderate_content", http.MethodPost, c.v1URL+"/admin/moderation", moderation, true, false, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetFlaggedContent はフラグ付きコンテンツを取得する。GET {base}/v1/admin/flagged-content。
func (c *Client) GetFlaggedContent(ctx context.Context) (*model.FlaggedContent, error) {
	var flagged model.FlaggedContent
	if err := c.send(ctx, "get_flagged_content", http.MethodGet, c.v1URL+"/admin/flagged-content", nil, true, false, &flagged); err != nil {
		return nil, err
	}
	return &flagged, nil
}

// GetAllUsers はユーザー一覧を取得する。GET {base}/v1/admin/users?page={page}&limit={limit}。
func (c *Client) GetAllUsers(ctx context.Context, page model.Page) ([]model.User, error) {
	p := page.Normalize()
	endpoint := fmt.Sprintf("%s/admin/users?page=%d&limit=%d", c.v1URL, p.Page, p.Limit)

	var users []model.User
	if err := c.send(ctx, "get_all_users", http.MethodGet, endpoint, nil, true, false, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUserActivity はユーザーの活動履歴を取得する。GET {base}/v1/admin/users/{id}/activity。
func (c *Client) GetUserActivity(ctx context.Context, userID string) (*model.UserActivity, error) {
	var activity model.UserActivity
	endpoint := c.v1URL + "/admin/users/" + url.PathEscape(userID) + "/activity"
	if err := c.send(ctx, "get_user_activity", http.MethodGet, endpoint, nil, true, false, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}
