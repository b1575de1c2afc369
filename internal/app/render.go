package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hitoshi/peerview/internal/model"
)

// サーバーから受け取った文字列は利用者の投稿を含むため、すべてsanitizerを通してから表示する。

func (a *App) newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

// printQuestions は質問一覧を表形式で表示する。
func (a *App) printQuestions(questions []model.Question) error {
	if len(questions) == 0 {
		fmt.Fprintln(a.out, "No questions")
		return nil
	}

	tw := a.newTable()
	fmt.Fprintln(tw, "ID\tSTATUS\tMEDIA\tANSWERS\tTITLE")
	for _, q := range questions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			a.sanitizer.Line(q.ID),
			a.sanitizer.Line(string(q.Status)),
			a.sanitizer.Line(string(q.MediaType)),
			len(q.Answers),
			a.sanitizer.Line(q.Title),
		)
	}
	return tw.Flush()
}

// printQuestionLine は質問を1行で表示する。watchの新着表示に使う。
func (a *App) printQuestionLine(q model.Question) {
	fmt.Fprintf(a.out, "[%s] %s (%s, %d answers) %s\n",
		a.sanitizer.Line(q.Timestamp),
		a.sanitizer.Line(q.Title),
		a.sanitizer.Line(string(q.MediaType)),
		len(q.Answers),
		a.sanitizer.Line(q.ID),
	)
}

// printQuestion は質問と回答の詳細を表示する。
func (a *App) printQuestion(q *model.Question) {
	fmt.Fprintf(a.out, "%s\n", a.sanitizer.Line(q.Title))
	fmt.Fprintf(a.out, "ID:      %s\n", a.sanitizer.Line(q.ID))
	fmt.Fprintf(a.out, "Status:  %s\n", a.sanitizer.Line(string(q.Status)))
	fmt.Fprintf(a.out, "Posted:  %s by %s\n", a.sanitizer.Line(q.Timestamp), a.sanitizer.Line(q.UserID))
	fmt.Fprintf(a.out, "Media:   %s %s\n", a.sanitizer.Line(string(q.MediaType)), a.sanitizer.MediaURL(q.MediaURL))
	if caption := a.sanitizer.PlainText(q.Caption); caption != "" {
		fmt.Fprintf(a.out, "\n%s\n", caption)
	}

	fmt.Fprintf(a.out, "\nAnswers (%d)\n", len(q.Answers))
	for _, ans := range q.Answers {
		a.printAnswer(a.out, ans)
	}
}

func (a *App) printAnswer(w io.Writer, ans model.Answer) {
	fmt.Fprintf(w, "- %s by %s at %s\n",
		a.sanitizer.Line(ans.AnswerID),
		a.sanitizer.Line(ans.UserID),
		a.sanitizer.Line(ans.Timestamp),
	)
	if text := a.sanitizer.PlainText(ans.TextResponse); text != "" {
		fmt.Fprintf(w, "  %s\n", text)
	}
	if media := a.sanitizer.MediaURL(ans.MediaURL); media != "" {
		fmt.Fprintf(w, "  media: %s\n", media)
	}
}

func (a *App) printDeleted(kind, id string, result *model.DeleteResult) {
	if msg := a.sanitizer.Line(result.Message); msg != "" {
		fmt.Fprintln(a.out, msg)
		return
	}
	fmt.Fprintf(a.out, "Deleted %s %s\n", kind, id)
}

// printUser はユーザー情報を表示する。
func (a *App) printUser(u *model.User) {
	fmt.Fprintf(a.out, "Logged in as %s <%s>\n", a.sanitizer.Line(u.FullName), a.sanitizer.Line(u.Email))
	fmt.Fprintf(a.out, "Role:    %s\n", a.sanitizer.Line(string(u.Role)))
	fmt.Fprintf(a.out, "User ID: %s\n", a.sanitizer.Line(u.ID))
}

func (a *App) printStats(s *model.AdminStats) error {
	tw := a.newTable()
	fmt.Fprintf(tw, "Users\t%d\n", s.TotalUsers)
	fmt.Fprintf(tw, "Questions\t%d\n", s.TotalQuestions)
	fmt.Fprintf(tw, "Answered\t%d\n", s.AnsweredQuestions)
	fmt.Fprintf(tw, "Pending\t%d\n", s.PendingQuestions)
	fmt.Fprintf(tw, "Answers\t%d\n", s.TotalAnswers)
	fmt.Fprintf(tw, "Recent questions\t%d\n", s.RecentQuestions)
	fmt.Fprintf(tw, "Storage usage\t%s\n", a.sanitizer.Line(s.StorageUsage))
	fmt.Fprintf(tw, "Last updated\t%s\n", a.sanitizer.Line(s.LastUpdated))
	return tw.Flush()
}

func (a *App) printFlagged(f *model.FlaggedContent) error {
	fmt.Fprintf(a.out, "Flagged items: %d\n", f.TotalFlagged)

	fmt.Fprintln(a.out, "\nFlagged questions")
	if err := a.printQuestions(f.FlaggedQuestions); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "\nQuestions with flagged answers")
	return a.printQuestions(f.QuestionsWithFlaggedAnswers)
}

func (a *App) printUsers(users []model.User) error {
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No users")
		return nil
	}

	tw := a.newTable()
	fmt.Fprintln(tw, "ID\tROLE\tACTIVE\tEMAIL\tNAME")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n",
			a.sanitizer.Line(u.ID),
			a.sanitizer.Line(string(u.Role)),
			u.IsActive,
			a.sanitizer.Line(u.Email),
			a.sanitizer.Line(u.FullName),
		)
	}
	return tw.Flush()
}

func (a *App) printActivity(act *model.UserActivity) error {
	fmt.Fprintf(a.out, "User %s: %d questions, %d answers\n",
		a.sanitizer.Line(act.UserID), act.QuestionsAsked, act.AnswersProvided)

	fmt.Fprintln(a.out, "\nQuestions")
	if err := a.printQuestions(act.Questions); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "\nAnswers")
	if len(act.Answers) == 0 {
		fmt.Fprintln(a.out, "No answers")
		return nil
	}
	for _, aa := range act.Answers {
		fmt.Fprintf(a.out, "%s (%s)\n", a.sanitizer.Line(aa.Title), a.sanitizer.Line(aa.QuestionID))
		a.printAnswer(a.out, aa.Answer)
	}
	return nil
}
