package model

// AdminStats は管理画面の統計情報。
type AdminStats struct {
	TotalUsers        int    `json:"totalUsers"`
	TotalQuestions    int    `json:"totalQuestions"`
	TotalAnswers      int    `json:"totalAnswers"`
	AnsweredQuestions int    `json:"answeredQuestions"`
	PendingQuestions  int    `json:"pendingQuestions"`
	RecentQuestions   int    `json:"recentQuestions"`
	StorageUsage      string `json:"storageUsage"`
	LastUpdated       string `json:"lastUpdated"`
}

// ModerationTarget はモデレーション対象の種別。
type ModerationTarget string

const (
	ModerationTargetQuestion ModerationTarget = "question"
	ModerationTargetAnswer   ModerationTarget = "answer"
)

// ModerationAction はモデレーション操作の種別。
type ModerationAction string

const (
	// ModerationActionRemove は対象をソフト削除する。
	ModerationActionRemove ModerationAction = "remove"
	// ModerationActionFlag は対象にフラグを付けて要確認にする。
	ModerationActionFlag ModerationAction = "flag"
)

// ModerationRequest はモデレーションAPIのリクエストボディ。
type ModerationRequest struct {
	TargetType ModerationTarget `json:"targetType" validate:"required,oneof=question answer"`
	TargetID   string           `json:"targetId" validate:"required"`
	Action     ModerationAction `json:"action" validate:"required,oneof=remove flag"`
}

// ModerationResult はモデレーションAPIのレスポンス。
type ModerationResult struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	QuestionID string           `json:"questionId,omitempty"`
	AnswerID   string           `json:"answerId,omitempty"`
	Action     ModerationAction `json:"action"`
}

// FlaggedContent はフラグ付きコンテンツの一覧。
type FlaggedContent struct {
	FlaggedQuestions            []Question `json:"flaggedQuestions"`
	QuestionsWithFlaggedAnswers []Question `json:"questionsWithFlaggedAnswers"`
	TotalFlagged                int        `json:"totalFlagged"`
}

// AnswerActivity はユーザーが回答した質問と回答の組。
// バックエンドのクエリ結果に合わせ、回答本体は"a"キーで返される。
type AnswerActivity struct {
	QuestionID string `json:"id"`
	Title      string `json:"title"`
	Answer     Answer `json:"a"`
}

// UserActivity はユーザーごとの活動履歴。
type UserActivity struct {
	UserID          string           `json:"userId"`
	QuestionsAsked  int              `json:"questionsAsked"`
	AnswersProvided int              `json:"answersProvided"`
	Questions       []Question       `json:"questions"`
	Answers         []AnswerActivity `json:"answers"`
}
