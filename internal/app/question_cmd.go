package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hitoshi/peerview/internal/api"
	"github.com/hitoshi/peerview/internal/model"
)

// errAnswerForbidden は回答できないロールで回答しようとした場合のエラー。
var errAnswerForbidden = errors.New("teacher or admin role required to answer")

// listQuestions はレガシーまたはv1のAPIで質問一覧を取得する。
func (a *App) listQuestions(ctx context.Context, v1 bool, page model.Page) ([]model.Question, error) {
	if v1 {
		return a.client.GetQuestionsV1(ctx, page)
	}
	return a.client.GetFeed(ctx)
}

func (a *App) runFeed(ctx context.Context, args []string) error {
	fs := a.newFlagSet(CommandFeed)
	v1 := fs.Bool("v1", false, "use the versioned API")
	page := fs.Int("page", model.DefaultPage, "page number (v1 only)")
	limit := fs.Int("limit", model.DefaultLimit, "questions per page (v1 only)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := a.session.RequireAuth(); err != nil {
		return err
	}

	questions, err := a.listQuestions(ctx, *v1, model.Page{Page: *page, Limit: *limit})
	if err != nil {
		return err
	}
	return a.printQuestions(questions)
}

func (a *App) runQuestion(ctx context.Context, args []string) error {
	fs := a.newFlagSet(CommandQuestion)
	v1 := fs.Bool("v1", false, "use the versioned API")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError(CommandQuestion, "[-v1] QUESTION_ID")
	}
	if _, err := a.session.RequireAuth(); err != nil {
		return err
	}

	var (
		question *model.Question
		err      error
	)
	if *v1 {
		question, err = a.client.GetQuestionV1(ctx, fs.Arg(0))
	} else {
		question, err = a.client.GetQuestion(ctx, fs.Arg(0))
	}
	if err != nil {
		return err
	}

	a.printQuestion(question)
	return nil
}

// runAsk はメディアファイルをアップロードして質問を投稿する。
// v1ではアップロードURLを発行して直接PUTし、レガシーではマルチパートでアップロードする。
func (a *App) runAsk(ctx context.Context, args []string) error {
	fs := a.newFlagSet(CommandAsk)
	title := fs.String("title", "", "question title")
	caption := fs.String("caption", "", "question caption")
	file := fs.String("file", "", "media file (video, image or audio)")
	legacy := fs.Bool("legacy", false, "use the legacy API")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return usageError(CommandAsk, "-title TITLE -caption CAPTION -file PATH [-legacy]")
	}

	user, err := a.session.RequireAuth()
	if err != nil {
		return err
	}

	contentType := api.MediaTypeOf(*file)
	mediaType, ok := api.QuestionMediaType(contentType)
	if !ok {
		return fmt.Errorf("unsupported media type %s: video, image or audio required", contentType)
	}

	data, err := readMediaFile(*file)
	if err != nil {
		return err
	}

	question := model.CreateQuestionRequest{
		Title:     strings.TrimSpace(*title),
		MediaType: mediaType,
		Caption:   strings.TrimSpace(*caption),
	}

	var created *model.Question
	if *legacy {
		uploaded, err := a.client.UploadFile(ctx, *file, bytes.NewReader(data))
		if err != nil {
			return err
		}
		question.UserID = user.ID
		question.MediaURL = uploaded.URL
		created, err = a.client.CreateQuestion(ctx, question)
		if err != nil {
			return err
		}
	} else {
		target, err := a.client.GenerateUploadURL(ctx, filepath.Base(*file), contentType)
		if err != nil {
			return err
		}
		if err := a.client.PutToUploadTarget(ctx, *target, contentType, data); err != nil {
			return err
		}
		question.MediaURL = target.PublicURL
		created, err = a.client.CreateQuestionV1(ctx, question)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "Created question %s\n", a.sanitizer.Line(created.ID))
	return nil
}

// readMediaFile はアップロードするファイルを読み込む。
// 上限を超えるファイルは読み込む前に拒否する。
func readMediaFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read media file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("failed to read media file: %s is a directory", path)
	}
	if info.Size() > api.MaxUploadSize {
		return nil, fmt.Errorf("media file exceeds %d bytes", api.MaxUploadSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read media file: %w", err)
	}
	return data, nil
}

func (a *App) runAnswer(ctx context.Context, args []string) error {
	fs := a.newFlagSet(CommandAnswer)
	legacy := fs.Bool("legacy", false, "use the legacy API")
	media := fs.String("media", "", "media URL attached to the answer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError(CommandAnswer, "[-legacy] [-media URL] QUESTION_ID TEXT")
	}

	user, err := a.session.RequireAuth()
	if err != nil {
		return err
	}
	if !a.session.CanAnswer() {
		return errAnswerForbidden
	}

	questionID := fs.Arg(0)
	answer := model.CreateAnswerRequest{
		TextResponse: strings.Join(fs.Args()[1:], " "),
		MediaURL:     *media,
	}

	var created *model.Answer
	if *legacy {
		answer.UserID = user.ID
		created, err = a.client.AddAnswer(ctx, questionID, answer)
	} else {
		created, err = a.client.AddAnswerV1(ctx, questionID, answer)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Added answer %s\n", a.sanitizer.Line(created.AnswerID))
	return nil
}

func (a *App) runEditQuestion(ctx context.Context, args []string) error {
	fs := a.newFlagSet(CommandEditQuestion)
	title := fs.String("title", "", "new title")
	caption := fs.String("caption", "", "new caption")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError(CommandEditQuestion, "-title TITLE -caption CAPTION QUESTION_ID")
	}
	if _, err := a.session.RequireAuth(); err != nil {
		return err
	}

	question, err := a.client.UpdateQuestion(ctx, fs.Arg(0), model.UpdateQuestionRequest{
		Title:   strings.TrimSpace(*title),
		Caption: strings.TrimSpace(*caption),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Updated question %s\n", a.sanitizer.Line(question.ID))
	return nil
}

func (a *App) runDeleteQuestion(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError(CommandDeleteQuestion, "QUESTION_ID")
	}
	if _, err := a.session.RequireAuth(); err != nil {
		return err
	}

	result, err := a.client.DeleteQuestion(ctx, args[0])
	if err != nil {
		return err
	}
	a.printDeleted("question", args[0], result)
	return nil
}

func (a *App) runEditAnswer(ctx context.Context, args []string) error {
	fs := a.newFlagSet(CommandEditAnswer)
	media := fs.String("media", "", "media URL attached to the answer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError(CommandEditAnswer, "[-media URL] ANSWER_ID TEXT")
	}
	if _, err := a.session.RequireAuth(); err != nil {
		return err
	}

	answer, err := a.client.UpdateAnswer(ctx, fs.Arg(0), model.UpdateAnswerRequest{
		TextResponse: strings.Join(fs.Args()[1:], " "),
		MediaURL:     *media,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Updated answer %s\n", a.sanitizer.Line(answer.AnswerID))
	return nil
}

func (a *App) runDeleteAnswer(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError(CommandDeleteAnswer, "ANSWER_ID")
	}
	if _, err := a.session.RequireAuth(); err != nil {
		return err
	}

	result, err := a.client.DeleteAnswer(ctx, args[0])
	if err != nil {
		return err
	}
	a.printDeleted("answer", args[0], result)
	return nil
}
