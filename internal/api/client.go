// Package api はPeerViewバックエンドのHTTP APIクライアントを提供する。
// レガシー（{base}/api）とバージョン付き（{base}/v1）の2系統のエンドポイントを扱い、
// 認証ヘッダーの付与、1回限りの自動リトライ、エラーの正規化を行う。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/hitoshi/peerview/internal/metrics"
	"github.com/hitoshi/peerview/internal/model"
)

const (
	// defaultUserAgent はリクエストに付与するUser-Agent。
	defaultUserAgent = "PeerView-CLI/1.0"
	// retryAttempts はリトライ対象の操作の最大試行回数（初回 + 再試行1回）。
	retryAttempts = 2
	// maxErrorBodySize はエラーレスポンスから読み取る最大バイト数。
	maxErrorBodySize = 1 << 20
	// contentTypeJSON はJSONリクエストのContent-Type。
	contentTypeJSON = "application/json"
)

// TokenSource はベアラートークンの取得元。
// 呼び出しのたびに永続ストレージから読み直すため、キャッシュしない実装を渡す。
type TokenSource interface {
	// Token は保存済みのトークンを返す。未保存の場合は空文字列を返す。
	Token(ctx context.Context) (string, error)
}

// UploadGuard はサーバーが返したアップロード先URLを送信前に検証する。
type UploadGuard interface {
	ValidateURL(rawURL string) error
}

// Client はPeerViewバックエンドのAPIクライアント。
// 状態を持たないため複数goroutineから同時に利用できる。
type Client struct {
	httpClient   *http.Client
	uploadClient *http.Client
	uploadGuard  UploadGuard
	logger       *slog.Logger
	tokens       TokenSource
	limiter      *rate.Limiter
	metrics      metrics.MetricsCollector
	validate     *validator.Validate
	userAgent    string

	baseURL   string
	legacyURL string
	v1URL     string
}

// Option はClientの任意設定。
type Option func(*Client)

// WithRateLimiter は試行ごとにリミッターで送信間隔を制御する。
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(m metrics.MetricsCollector) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithUserAgent はUser-Agentを上書きする。
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithUploadTransport はアップロード先への直接PUTに使うHTTPクライアントとURL検証を設定する。
// アップロード先URLはサーバーのレスポンスで指定されるため、SSRF対策済みのクライアントを渡す。
func WithUploadTransport(client *http.Client, guard UploadGuard) Option {
	return func(c *Client) {
		if client != nil {
			c.uploadClient = client
		}
		c.uploadGuard = guard
	}
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURLの末尾のスラッシュは取り除き、{base}/api と {base}/v1 を導出する。
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource, logger *slog.Logger, opts ...Option) *Client {
	base := strings.TrimRight(baseURL, "/")
	c := &Client{
		httpClient:   httpClient,
		uploadClient: httpClient,
		logger:       logger,
		tokens:       tokens,
		metrics:      metrics.NopCollector{},
		validate:     newValidator(),
		userAgent:    defaultUserAgent,
		baseURL:      base,
		legacyURL:    base + "/api",
		v1URL:        base + "/v1",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL はAPIのベースURLを返す。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request は1回のAPI呼び出しの内容。リトライ時も同じ内容で再送できるようボディはバイト列で保持する。
type request struct {
	op          string // ログとメトリクスに使う操作名
	method      string
	url         string
	body        []byte
	contentType string
	auth        bool // Authorizationヘッダーを付与するか
	retry       bool // 失敗時に1回だけ自動リトライするか
	external    bool // バックエンド外のアップロード先へ送るか
	header      http.Header
}

// jsonRequest はJSONボディのrequestを構築する。payloadがnilの場合はボディなし。
func jsonRequest(op, method, url string, payload any, auth, retry bool) (request, error) {
	req := request{
		op:          op,
		method:      method,
		url:         url,
		contentType: contentTypeJSON,
		auth:        auth,
		retry:       retry,
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return request{}, fmt.Errorf("failed to encode request body: %w", err)
		}
		req.body = data
	}
	return req, nil
}

// send はJSONリクエストを構築して送信する。
func (c *Client) send(ctx context.Context, op, method, url string, payload any, auth, retry bool, out any) error {
	req, err := jsonRequest(op, method, url, payload, auth, retry)
	if err != nil {
		return c.fail(op, model.NewTransportError(err))
	}
	return c.do(ctx, req, out)
}

// do はリクエストを送信し、成功時はレスポンスをoutにデコードする。
// retryが指定されている場合は失敗時に1回だけ再試行する。コンテキストがキャンセルされた場合は再試行しない。
// 呼び出し元には正規化済みの*model.APIErrorのみを返す。
func (c *Client) do(ctx context.Context, req request, out any) error {
	attempts := 1
	if req.retry {
		attempts = retryAttempts
	}

	var lastErr *model.APIError
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			c.metrics.RecordRetry(req.op)
			c.logger.Warn("API呼び出しを再試行します",
				slog.String("operation", req.op),
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Message),
			)
		}

		apiErr := c.attempt(ctx, req, out)
		if apiErr == nil {
			return nil
		}
		lastErr = apiErr

		if ctx.Err() != nil {
			break
		}
	}

	return c.fail(req.op, lastErr)
}

// fail は最終的な失敗をログに記録して返す。
func (c *Client) fail(op string, apiErr *model.APIError) error {
	c.logger.Error("API Error",
		slog.String("operation", op),
		slog.String("kind", string(apiErr.Kind)),
		slog.Int("http_status", apiErr.Status),
		slog.String("error", apiErr.Message),
	)
	return apiErr
}

// attempt はリクエストを1回送信する。
func (c *Client) attempt(ctx context.Context, req request, out any) *model.APIError {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.NewTransportError(err)
		}
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return model.NewTransportError(err)
	}
	for key, values := range req.header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", uuid.NewString())
	if !req.external {
		httpReq.Header.Set("Accept", contentTypeJSON)
	}

	if req.auth && c.tokens != nil {
		// トークンはキャッシュせず試行ごとに読み直す
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return model.NewTransportError(err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	client := c.httpClient
	if req.external {
		client = c.uploadClient
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		c.metrics.RecordRequest(req.op, 0, time.Since(start))
		return model.NewTransportError(err)
	}
	defer resp.Body.Close()
	c.metrics.RecordRequest(req.op, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return serverError(resp)
	}

	return decodeResponse(resp, out)
}

// decodeResponse は成功レスポンスのボディをoutにデコードする。
// outがnilまたはボディが空の場合は読み捨てる。
func decodeResponse(resp *http.Response, out any) *model.APIError {
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewTransportError(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return model.NewParseError(resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// serverError は2xx以外のレスポンスを正規化する。
// ボディのerrorフィールドが文字列であればそれをメッセージとして優先する。
func serverError(resp *http.Response) *model.APIError {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))

	var body struct {
		Error any `json:"error"`
	}
	msg := ""
	if err := json.Unmarshal(data, &body); err == nil {
		if s, ok := body.Error.(string); ok {
			msg = s
		}
	}

	return model.NewServerError(resp.StatusCode, msg)
}

// invalid は送信前の入力検証エラーを正規化して返す。
func (c *Client) invalid(op string, err error) error {
	return c.fail(op, model.NewTransportError(err))
}
