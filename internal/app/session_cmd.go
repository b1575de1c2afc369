package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/peerview/internal/model"
	"github.com/hitoshi/peerview/internal/session"
)

// newFlagSet はサブコマンド用のFlagSetを生成する。エラーは呼び出し元に返す。
func (a *App) newFlagSet(cmd Command) *flag.FlagSet {
	fs := flag.NewFlagSet(string(cmd), flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

// usageError はサブコマンドの引数が足りない場合のエラーを返す。
func usageError(cmd Command, syntax string) error {
	return fmt.Errorf("usage: peerview %s %s", cmd, syntax)
}

func (a *App) runLogin(ctx context.Context, args []string) error {
	fs := a.newFlagSet(CommandLogin)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.session.Login(ctx, model.LoginRequest{
		Email:    strings.TrimSpace(*email),
		Password: *password,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", a.sanitizer.Line(user.FullName), a.sanitizer.Line(string(user.Role)))
	return nil
}

func (a *App) runRegister(ctx context.Context, args []string) error {
	fs := a.newFlagSet(CommandRegister)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	name := fs.String("name", "", "full name")
	role := fs.String("role", "", "student or teacher (default student)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.session.Register(ctx, model.RegisterRequest{
		Email:    strings.TrimSpace(*email),
		Password: *password,
		FullName: strings.TrimSpace(*name),
		Role:     model.Role(strings.ToLower(*role)),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (%s)\n", a.sanitizer.Line(user.FullName), a.sanitizer.Line(string(user.Role)))
	return nil
}

func (a *App) runLogout(ctx context.Context) error {
	a.session.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

// runStatus は確認済みのセッションとトークンの有効期限を表示する。
func (a *App) runStatus(ctx context.Context) error {
	sess := a.session.Current()
	if !sess.IsAuthenticated {
		fmt.Fprintln(a.out, "Not logged in")
		return nil
	}

	a.printUser(sess.User)

	info, err := a.session.TokenInfo(ctx)
	switch {
	case errors.Is(err, session.ErrNoToken):
		return nil
	case err != nil:
		// 不透明なトークンの場合もあるため表示しないだけにする
		a.logger.Debug("token claims unavailable")
		return nil
	}

	if !info.ExpiresAt.IsZero() {
		expires := info.ExpiresAt.Local().Format(time.RFC3339)
		if info.Expired(time.Now()) {
			expires += " (expired)"
		}
		fmt.Fprintf(a.out, "Token expires: %s\n", expires)
	}
	return nil
}
