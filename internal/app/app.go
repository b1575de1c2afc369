// Package app はPeerViewクライアントのCLIを提供する。
// 設定の読み込み、ストレージ・APIクライアント・SessionStoreのワイヤリング、サブコマンドの実行を行う。
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/peerview/internal/api"
	"github.com/hitoshi/peerview/internal/config"
	"github.com/hitoshi/peerview/internal/database"
	"github.com/hitoshi/peerview/internal/logger"
	"github.com/hitoshi/peerview/internal/metrics"
	"github.com/hitoshi/peerview/internal/security"
	"github.com/hitoshi/peerview/internal/session"
	"github.com/hitoshi/peerview/internal/storage"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、設定されたレベルでJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, logger.SetupDefault(w, cfg.LogLevel), nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析して実行する。
// outには利用者向けの出力、logwにはログを書き込む。argsにはos.Args[1:]を渡す。
func Run(out, logw io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// help は設定なしで動かせるよう初期化前に処理する
	if cmd == CommandHelp {
		fmt.Fprint(out, usage)
		if len(args) > 0 && !isHelpArg(args[0]) {
			return fmt.Errorf("unknown command: %q", args[0])
		}
		return nil
	}

	cfg, log, err := Init(logw)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cmd == CommandMigrate {
		return runMigrate(cfg, log)
	}

	a, err := New(ctx, cfg, log, out)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Execute(ctx, cmd, args[1:])
}

func isHelpArg(arg string) bool {
	switch arg {
	case string(CommandHelp), "-h", "-help", "--help":
		return true
	default:
		return false
	}
}

// App はワイヤリング済みの依存関係を保持し、サブコマンドを実行する。
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	out       io.Writer
	store     storage.Store
	client    *api.Client
	session   *session.Store
	sanitizer *security.ContentSanitizer
	registry  *prometheus.Registry
	closers   []func() error
}

// Option はAppの任意設定。主にテストで依存関係を差し替えるために使う。
type Option func(*options)

type options struct {
	httpClient   *http.Client
	uploadClient *http.Client
	uploadGuard  api.UploadGuard
	uploadSet    bool
	store        storage.Store
}

// WithHTTPClient はバックエンドへの通信に使うHTTPクライアントを設定する。
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithUploadTransport はアップロード先への直接PUTに使うHTTPクライアントとURL検証を設定する。
func WithUploadTransport(c *http.Client, guard api.UploadGuard) Option {
	return func(o *options) {
		o.uploadClient = c
		o.uploadGuard = guard
		o.uploadSet = true
	}
}

// WithStorage は設定のストレージバックエンドの代わりに使うStoreを設定する。
func WithStorage(s storage.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// New は設定に従って依存関係を構築し、Appを生成する。
// 戻り値のAppは使用後にCloseを呼び出すこと。
func New(ctx context.Context, cfg *config.Config, log *slog.Logger, out io.Writer, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{
		cfg:       cfg,
		logger:    log,
		out:       out,
		sanitizer: security.NewContentSanitizer(),
		registry:  prometheus.NewRegistry(),
	}

	// 1. ストレージ
	a.store = o.store
	if a.store == nil {
		store, closer, err := openStorage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.store = store
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
	}

	// 2. メトリクス
	collector := metrics.NewCollector(a.registry)

	// 3. APIクライアント
	httpClient := o.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	uploadClient, uploadGuard := o.uploadClient, o.uploadGuard
	if !o.uploadSet {
		guard := security.NewUploadGuard(cfg.UploadHosts...)
		uploadClient, uploadGuard = guard.NewSafeClient(cfg.HTTPTimeout), guard
	}

	apiOpts := []api.Option{
		api.WithMetrics(collector),
		api.WithUploadTransport(uploadClient, uploadGuard),
	}
	if cfg.RateLimit > 0 {
		apiOpts = append(apiOpts, api.WithRateLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)))
	}
	a.client = api.NewClient(cfg.APIURL, httpClient, storage.NewTokenReader(a.store), log, apiOpts...)

	// 4. セッション
	a.session = session.New(a.client, a.store, log, session.WithMetrics(collector))

	return a, nil
}

// Close はストレージの接続などを解放する。
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Execute はサブコマンドを実行する。argsにはサブコマンド名より後ろの引数を渡す。
// セッションが必要なコマンドは実行前に保存済みセッションを復元する。
func (a *App) Execute(ctx context.Context, cmd Command, args []string) error {
	if cmd.needsSession() {
		sess := a.session.Restore(ctx)
		a.logger.Debug("session restored",
			slog.String("command", string(cmd)),
			slog.String("state", string(sess.State)),
		)
	}

	switch cmd {
	case CommandLogin:
		return a.runLogin(ctx, args)
	case CommandRegister:
		return a.runRegister(ctx, args)
	case CommandLogout:
		return a.runLogout(ctx)
	case CommandStatus:
		return a.runStatus(ctx)
	case CommandFeed:
		return a.runFeed(ctx, args)
	case CommandQuestion:
		return a.runQuestion(ctx, args)
	case CommandAsk:
		return a.runAsk(ctx, args)
	case CommandAnswer:
		return a.runAnswer(ctx, args)
	case CommandEditQuestion:
		return a.runEditQuestion(ctx, args)
	case CommandDeleteQuestion:
		return a.runDeleteQuestion(ctx, args)
	case CommandEditAnswer:
		return a.runEditAnswer(ctx, args)
	case CommandDeleteAnswer:
		return a.runDeleteAnswer(ctx, args)
	case CommandAdmin:
		return a.runAdmin(ctx, args)
	case CommandWatch:
		return a.runWatch(ctx, args)
	case CommandHelp:
		fmt.Fprint(a.out, usage)
		return nil
	default:
		return fmt.Errorf("unsupported command: %q", cmd)
	}
}

// openStorage は設定されたバックエンドのStoreを開く。
// 接続を持つバックエンドは解放用の関数も返す。
func openStorage(ctx context.Context, cfg *config.Config) (storage.Store, func() error, error) {
	switch cfg.Storage {
	case config.StorageFile, "":
		return storage.NewFileStore(cfg.StoragePath), nil, nil

	case config.StorageMemory:
		return storage.NewMemoryStore(), nil, nil

	case config.StoragePostgres:
		db, err := database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return storage.NewPostgresStore(db, cfg.Profile), db.Close, nil

	case config.StorageRedis:
		rdb := storage.NewRedisClient(storage.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := storage.NewRedisStore(rdb, cfg.Profile)
		if err := store.Ping(ctx); err != nil {
			rdb.Close()
			return nil, nil, err
		}
		return store, rdb.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", storage.ErrUnknownBackend, cfg.Storage)
	}
}

// runMigrate はpostgresストレージのマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config, log *slog.Logger) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

	log.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info("database migrations completed successfully")
	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
