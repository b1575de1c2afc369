// Package security はクライアントのセキュリティ機能を提供する。
//
// ContentSanitizer はバックエンドから受け取ったユーザー投稿のテキストを
// 端末に表示できるプレーンテキストに変換する。
// UploadGuard はサーバーが指定したアップロード先URLを検証する。
package security

import (
	"html"
	"net/url"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はユーザー投稿のタイトル・キャプション・回答を表示用に整形する。
// 複数goroutineから同時に利用できる。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はすべてのHTMLタグを除去するポリシーでContentSanitizerを生成する。
func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{policy: bluemonday.StrictPolicy()}
}

// PlainText はHTMLタグを除去し、エスケープを戻したうえで端末制御文字を取り除く。
// 改行とタブは残す。同じ入力には常に同じ結果を返す。
func (s *ContentSanitizer) PlainText(raw string) string {
	if raw == "" {
		return ""
	}
	text := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.TrimSpace(stripControl(text))
}

// Line はPlainTextの結果を1行にまとめる。一覧表示に使う。
func (s *ContentSanitizer) Line(raw string) string {
	return strings.Join(strings.Fields(s.PlainText(raw)), " ")
}

// MediaURL はhttp/httpsの絶対URLのみを返す。それ以外は空文字列を返す。
func (s *ContentSanitizer) MediaURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return stripControl(u.String())
	default:
		return ""
	}
}

// stripControl はANSIエスケープシーケンスなどの制御文字を取り除く。
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
