package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/peerview/internal/metrics"
	"github.com/hitoshi/peerview/internal/middleware"
	"github.com/hitoshi/peerview/internal/model"
	"github.com/hitoshi/peerview/internal/session"
)

// feedWatcher はフィードをポーリングし、まだ表示していない質問だけを出力する。
type feedWatcher struct {
	app  *App
	v1   bool
	page model.Page
	seen map[string]bool
}

// poll はフィードを1回取得して新着の質問を表示する。
// 401を受け取った場合は保存済みセッションを確認し直す。
func (w *feedWatcher) poll(ctx context.Context) {
	questions, err := w.app.listQuestions(ctx, w.v1, w.page)
	if err != nil {
		if model.StatusOf(err) == http.StatusUnauthorized {
			w.app.session.Restore(ctx)
		}
		return
	}

	// フィードは新しい順に返るため、古いものから表示する
	for i := len(questions) - 1; i >= 0; i-- {
		q := questions[i]
		if w.seen[q.ID] {
			continue
		}
		w.seen[q.ID] = true
		w.app.printQuestionLine(q)
	}
}

// runWatch はフィードを定期的に取得し、新しい質問を表示し続ける。
// シグナルでコンテキストがキャンセルされるか、セッションが失効するまで終了しない。
// PEERVIEW_METRICS_ADDRが設定されている場合は/metricsと/healthを公開する。
func (a *App) runWatch(ctx context.Context, args []string) error {
	fs := a.newFlagSet(CommandWatch)
	v1 := fs.Bool("v1", false, "use the versioned API")
	interval := fs.Duration("interval", a.cfg.WatchInterval, "polling interval")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *interval <= 0 {
		*interval = time.Minute
	}
	if _, err := a.session.RequireAuth(); err != nil {
		return err
	}

	sessions, unsubscribe := a.session.Subscribe()
	defer unsubscribe()

	if a.cfg.MetricsAddr != "" {
		stop := a.serveMetrics(a.cfg.MetricsAddr)
		defer stop()
	}

	a.logger.Info("watching feed",
		slog.Bool("v1", *v1),
		slog.Duration("interval", *interval),
	)

	w := &feedWatcher{
		app:  a,
		v1:   *v1,
		page: model.Page{}.Normalize(),
		seen: make(map[string]bool),
	}
	w.poll(ctx)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("watch stopped")
			return nil
		case sess, ok := <-sessions:
			if !ok {
				return nil
			}
			a.logger.Info("session changed", slog.String("state", string(sess.State)))
			if sess.State == model.SessionAnonymous {
				if ctx.Err() != nil {
					a.logger.Info("watch stopped")
					return nil
				}
				return session.ErrNotAuthenticated
			}
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// metricsHandler は/metricsと/healthのハンドラーにログとpanicからの復旧を組み合わせる。
func (a *App) metricsHandler() http.Handler {
	return metrics.SetupMetricsRoute(a.registry,
		middleware.NewRecoveryMiddleware(a.logger),
		middleware.NewLoggingMiddleware(a.logger),
		middleware.NewSecurityHeadersMiddleware(),
	)
}

// serveMetrics はメトリクス用のHTTPサーバーをバックグラウンドで起動し、停止用の関数を返す。
func (a *App) serveMetrics(addr string) func() {
	server := &http.Server{
		Addr:              addr,
		Handler:           a.metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("metrics server starting", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics server shutdown failed", slog.String("error", err.Error()))
		}
	}
}
