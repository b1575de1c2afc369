// Package model はドメインモデルを定義する。
package model

// MediaType は質問に添付するメディアの種別。
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypeImage MediaType = "image"
	MediaTypeAudio MediaType = "audio"
)

// QuestionStatus は質問の回答状況。
type QuestionStatus string

const (
	// QuestionStatusPending は未回答の質問。
	QuestionStatusPending QuestionStatus = "pending"
	// QuestionStatusAnswered は回答済みの質問。
	QuestionStatusAnswered QuestionStatus = "answered"
	// QuestionStatusRemoved はモデレーションで削除された質問。
	QuestionStatusRemoved QuestionStatus = "removed"
)

// Answer は質問への回答を表す。
type Answer struct {
	AnswerID     string `json:"answerId"`
	UserID       string `json:"userId"`
	MediaURL     string `json:"mediaUrl,omitempty"`
	TextResponse string `json:"textResponse"`
	Timestamp    string `json:"timestamp"`
}

// Question はメディア付きの質問を表す。
type Question struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Title     string         `json:"title"`
	MediaURL  string         `json:"mediaUrl"`
	MediaType MediaType      `json:"mediaType"`
	Caption   string         `json:"caption"`
	Timestamp string         `json:"timestamp"`
	Status    QuestionStatus `json:"status"`
	Answers   []Answer       `json:"answers"`
}

// CreateQuestionRequest はレガシーAPIの質問作成リクエスト。
// v1 APIではユーザーをトークンから特定するためUserIDを送らない（omitempty）。
type CreateQuestionRequest struct {
	UserID    string    `json:"userId,omitempty"`
	Title     string    `json:"title" validate:"required"`
	MediaURL  string    `json:"mediaUrl" validate:"required"`
	MediaType MediaType `json:"mediaType" validate:"required,oneof=video image audio"`
	Caption   string    `json:"caption" validate:"required"`
}

// CreateAnswerRequest は回答作成リクエスト。
// v1 APIではUserIDを送らない（omitempty）。
type CreateAnswerRequest struct {
	UserID       string `json:"userId,omitempty"`
	TextResponse string `json:"textResponse" validate:"required"`
	MediaURL     string `json:"mediaUrl,omitempty"`
}

// UpdateQuestionRequest は質問更新リクエスト。
type UpdateQuestionRequest struct {
	Title   string `json:"title" validate:"required"`
	Caption string `json:"caption" validate:"required"`
}

// UpdateAnswerRequest は回答更新リクエスト。
type UpdateAnswerRequest struct {
	TextResponse string `json:"textResponse" validate:"required"`
	MediaURL     string `json:"mediaUrl,omitempty"`
}

// DeleteResult は削除APIのレスポンス。
type DeleteResult struct {
	Message string `json:"message"`
}

// UploadURLRequest はv1のアップロードURL発行リクエスト。
type UploadURLRequest struct {
	FileName string `json:"fileName" validate:"required"`
	FileType string `json:"fileType" validate:"required"`
}

// UploadTarget はv1のアップロードURL発行APIのレスポンス。
// UploadURLは期限付きの直接アップロード先、PublicURLは質問に設定する公開URL。
type UploadTarget struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	BlobName  string `json:"blobName"`
	ExpiresAt string `json:"expiresAt"`
}

// UploadResult はレガシーのファイルアップロードAPIのレスポンス。
type UploadResult struct {
	URL string `json:"url"`
}

// 一覧取得のデフォルト値
const (
	DefaultPage  = 1
	DefaultLimit = 20
)

// Page はページネーションのパラメータ。
type Page struct {
	Page  int
	Limit int
}

// Normalize は未指定（0以下）の値をデフォルト値（page=1, limit=20）で補完する。
func (p Page) Normalize() Page {
	if p.Page <= 0 {
		p.Page = DefaultPage
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	return p
}
