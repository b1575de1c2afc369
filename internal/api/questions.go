package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/hitoshi/peerview/internal/model"
)

// GetQuestionsV1 は質問一覧を取得する。pageとlimitの未指定値は1と20で補完する。
// GET {base}/v1/questions?page={page}&limit={limit}。失敗時は1回リトライする。
func (c *Client) GetQuestionsV1(ctx context.Context, page model.Page) ([]model.Question, error) {
	p := page.Normalize()
	endpoint := fmt.Sprintf("%s/questions?page=%d&limit=%d", c.v1URL, p.Page, p.Limit)

	var questions []model.Question
	if err := c.send(ctx, "get_questions_v1", http.MethodGet, endpoint, nil, true, true, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// CreateQuestionV1 は質問を作成する。投稿者はトークンから特定されるためUserIDは送らない。
// POST {base}/v1/questions。失敗時は1回リトライする。
func (c *Client) CreateQuestionV1(ctx context.Context, question model.CreateQuestionRequest) (*model.Question, error) {
	question.UserID = ""
	if err := c.validateRequest(question); err != nil {
		return nil, c.invalid("create_question_v1", err)
	}

	var created model.Question
	if err := c.send(ctx, "create_question_v1", http.MethodPost, c.v1URL+"/questions", question, true, true, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetQuestionV1 は質問を1件取得する。
// GET {base}/v1/questions/{id}。失敗時は1回リトライする。
func (c *Client) GetQuestionV1(ctx context.Context, questionID string) (*model.Question, error) {
	var question model.Question
	endpoint := c.v1URL + "/questions/" + url.PathEscape(questionID)
	if err := c.send(ctx, "get_question_v1", http.MethodGet, endpoint, nil, true, true, &question); err != nil {
		return nil, err
	}
	return &question, nil
}

// UpdateQuestion は質問のタイトルとキャプションを更新する。
// PUT {base}/v1/questions/{id}。リトライしない。
func (c *Client) UpdateQuestion(ctx context.Context, questionID string, update model.UpdateQuestionRequest) (*model.Question, error) {
	if err := c.validateRequest(update); err != nil {
		return nil, c.invalid("update_question", err)
	}

	var question model.Question
	endpoint := c.v1URL + "/questions/" + url.PathEscape(questionID)
	if err := c.send(ctx, "update_question", http.MethodPut, endpoint, update, true, false, &question); err != nil {
		return nil, err
	}
	return &question, nil
}

// DeleteQuestion は質問を削除する。
// DELETE {base}/v1/questions/{id}。リトライしない。
func (c *Client) DeleteQuestion(ctx context.Context, questionID string) (*model.DeleteResult, error) {
	var result model.DeleteResult
	endpoint := c.v1URL + "/questions/" + url.PathEscape(questionID)
	if err := c.send(ctx, "delete_question", http.MethodDelete, endpoint, nil, true, false, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AddAnswerV1 は質問に回答を追加する。回答者はトークンから特定されるためUserIDは送らない。
// POST {base}/v1/questions/{id}/answers。失敗時は1回リトライする。
func (c *Client) AddAnswerV1(ctx context.Context, questionID string, answer model.CreateAnswerRequest) (*model.Answer, error) {
	answer.UserID = ""
	if err := c.validateRequest(answer); err != nil {
		return nil, c.invalid("add_answer_v1", err)
	}

	var created model.Answer
	endpoint := c.v1URL + "/questions/" + url.PathEscape(questionID) + "/answers"
	if err := c.send(ctx, "add_answer_v1", http.MethodPost, endpoint, answer, true, true, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateAnswer は回答を更新する。
// PUT {base}/v1/answers/{id}。リトライしない。
func (c *Client) UpdateAnswer(ctx context.Context, answerID string, update model.UpdateAnswerRequest) (*model.Answer, error) {
	if err := c.validateRequest(update); err != nil {
		return nil, c.invalid("update_answer", err)
	}

	var answer model.Answer
	endpoint := c.v1URL + "/answers/" + url.PathEscape(answerID)
	if err := c.send(ctx, "update_answer", http.MethodPut, endpoint, update, true, false, &answer); err != nil {
		return nil, err
	}
	return &answer, nil
}

// DeleteAnswer は回答を削除する。
// DELETE {base}/v1/answers/{id}。リトライしない。
func (c *Client) DeleteAnswer(ctx context.Context, answerID string) (*model.DeleteResult, error) {
	var result model.DeleteResult
	endpoint := c.v1URL + "/answers/" + url.PathEscape(answerID)
	if err := c.send(ctx, "delete_answer", http.MethodDelete, endpoint, nil, true, false, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
