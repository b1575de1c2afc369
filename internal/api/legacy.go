package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/hitoshi/peerview/internal/model"
)

// レガシーAPI（{base}/api）。認証ヘッダーを付与せず、いずれも失敗時に1回リトライする。

// GetFeed は質問のフィードを取得する。GET {base}/api/feed。
func (c *Client) GetFeed(ctx context.Context) ([]model.Question, error) {
	var questions []model.Question
	if err := c.send(ctx, "get_feed", http.MethodGet, c.legacyURL+"/feed", nil, false, true, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// CreateQuestion は質問を作成する。POST {base}/api/questions。
func (c *Client) CreateQuestion(ctx context.Context, question model.CreateQuestionRequest) (*model.Question, error) {
	if err := c.validateRequest(question); err != nil {
		return nil, c.invalid("create_question", err)
	}

	var created model.Question
	if err := c.send(ctx, "create_question", http.MethodPost, c.legacyURL+"/questions", question, false, true, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// AddAnswer は質問に回答を追加する。POST {base}/api/questions/{id}/answers。
func (c *Client) AddAnswer(ctx context.Context, questionID string, answer model.CreateAnswerRequest) (*model.Answer, error) {
	if err := c.validateRequest(answer); err != nil {
		return nil, c.invalid("add_answer", err)
	}

	var created model.Answer
	endpoint := c.legacyURL + "/questions/" + url.PathEscape(questionID) + "/answers"
	if err := c.send(ctx, "add_answer", http.MethodPost, endpoint, answer, false, true, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetQuestion は質問を1件取得する。GET {base}/api/questions/{id}。
func (c *Client) GetQuestion(ctx context.Context, questionID string) (*model.Question, error) {
	var question model.Question
	endpoint := c.legacyURL + "/questions/" + url.PathEscape(questionID)
	if err := c.send(ctx, "get_question", http.MethodGet, endpoint, nil, false, true, &question); err != nil {
		return nil, err
	}
	return &question, nil
}
