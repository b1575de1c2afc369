package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/peerview/internal/model"
)

// 管理者向けサブコマンド
const (
	adminStats    = "stats"
	adminModerate = "moderate"
	adminFlagged  = "flagged"
	adminUsers    = "users"
	adminActivity = "activity"
)

// runAdmin は管理者向けのサブコマンドを実行する。
// 管理者以外はAPIを呼び出す前にErrForbiddenを返す。
func (a *App) runAdmin(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError(CommandAdmin, "stats|moderate|flagged|users|activity")
	}
	if _, err := a.session.RequireAdmin(); err != nil {
		return err
	}

	sub, rest := args[0], args[1:]
	switch sub {
	case adminStats:
		stats, err := a.client.GetAdminStats(ctx)
		if err != nil {
			return err
		}
		return a.printStats(stats)

	case adminModerate:
		return a.runModerate(ctx, rest)

	case adminFlagged:
		flagged, err := a.client.GetFlaggedContent(ctx)
		if err != nil {
			return err
		}
		return a.printFlagged(flagged)

	case adminUsers:
		fs := a.newFlagSet(CommandAdmin)
		page := fs.Int("page", model.DefaultPage, "page number")
		limit := fs.Int("limit", model.DefaultLimit, "users per page")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		users, err := a.client.GetAllUsers(ctx, model.Page{Page: *page, Limit: *limit})
		if err != nil {
			return err
		}
		return a.printUsers(users)

	case adminActivity:
		if len(rest) != 1 {
			return usageError(CommandAdmin, "activity USER_ID")
		}
		activity, err := a.client.GetUserActivity(ctx, rest[0])
		if err != nil {
			return err
		}
		return a.printActivity(activity)

	default:
		return fmt.Errorf("unknown admin command: %q", sub)
	}
}

func (a *App) runModerate(ctx context.Context, args []string) error {
	fs := a.newFlagSet(CommandAdmin)
	target := fs.String("type", "", "question or answer")
	id := fs.String("id", "", "question or answer ID")
	action := fs.String("action", "", "remove or flag")
	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := a.client.ModerateContent(ctx, model.ModerationRequest{
		TargetType: model.ModerationTarget(strings.ToLower(*target)),
		TargetID:   *id,
		Action:     model.ModerationAction(strings.ToLower(*action)),
	})
	if err != nil {
		return err
	}

	msg := a.sanitizer.Line(result.Message)
	if msg == "" {
		msg = fmt.Sprintf("%s %s: %s", *target, *id, result.Action)
	}
	fmt.Fprintln(a.out, msg)
	return nil
}
