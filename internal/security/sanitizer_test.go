package security

import (
	"strings"
	"testing"
)

// TestPlainText_StripsTags はHTMLタグが除去されテキストだけが残ることを検証する。
func TestPlainText_StripsTags(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"タグなし", "光合成とは何ですか？", "光合成とは何ですか？"},
		{"段落タグ", "<p>テスト段落</p>", "テスト段落"},
		{"強調タグ", "これは<strong>重要</strong>です", "これは重要です"},
		{"リンク", `<a href="https://example.com">リンク</a>`, "リンク"},
		{"scriptは中身ごと除去", "<script>alert('xss')</script>本文", "本文"},
		{"styleは中身ごと除去", "<style>body{}</style>本文", "本文"},
		{"エスケープを戻す", "Tom &amp; Jerry", "Tom & Jerry"},
		{"不等号", "a < b", "a < b"},
		{"前後の空白", "  caption  ", "caption"},
		{"空文字列", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.PlainText(tt.input)
			if got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestPlainText_OnEventAttributes はイベント属性が出力に残らないことを検証する。
func TestPlainText_OnEventAttributes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	inputs := []string{
		`<img src="x" onerror="alert(1)">`,
		`<div onclick="steal()">クリック</div>`,
		`<svg onload="alert(1)">`,
	}
	for _, input := range inputs {
		got := sanitizer.PlainText(input)
		if strings.Contains(got, "alert") || strings.Contains(got, "steal") {
			t.Errorf("PlainText(%q) = %q, イベント属性が残っている", input, got)
		}
	}
}

// TestPlainText_StripsTerminalEscapes は端末を操作する制御文字が除去されることを検証する。
func TestPlainText_StripsTerminalEscapes(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.PlainText("\x1b[31m赤字\x1b[0m\x07")
	if strings.ContainsRune(got, '\x1b') || strings.ContainsRune(got, '\x07') {
		t.Errorf("制御文字が残っている: %q", got)
	}
	if !strings.Contains(got, "赤字") {
		t.Errorf("本文が失われた: %q", got)
	}
}

// TestPlainText_KeepsNewlines は改行とタブが保持されることを検証する。
func TestPlainText_KeepsNewlines(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.PlainText("1行目\n2行目\tタブ")
	if got != "1行目\n2行目\tタブ" {
		t.Errorf("PlainText = %q", got)
	}
}

// TestPlainText_Idempotent は同じ入力に同じ結果を返すことを検証する。
func TestPlainText_Idempotent(t *testing.T) {
	sanitizer := NewContentSanitizer()
	input := `<p>質問 <em>本文</em></p><script>x()</script>`

	first := sanitizer.PlainText(input)
	for i := 0; i < 3; i++ {
		if got := sanitizer.PlainText(input); got != first {
			t.Errorf("呼び出し %d: %q != %q", i, got, first)
		}
	}
}

// TestLine は改行と連続空白が1つの空白にまとめられることを検証する。
func TestLine(t *testing.T) {
	sanitizer := NewContentSanitizer()

	got := sanitizer.Line("<p>1行目</p>\n\n<p>2行目   です</p>")
	if got != "1行目 2行目 です" {
		t.Errorf("Line = %q", got)
	}
}

// TestMediaURL はhttp/httpsの絶対URLのみが通過することを検証する。
func TestMediaURL(t *testing.T) {
	sanitizer := NewContentSanitizer()

	tests := []struct {
		input string
		want  string
	}{
		{"https://cdn.example.com/media/a.mp4", "https://cdn.example.com/media/a.mp4"},
		{"http://cdn.example.com/a.png", "http://cdn.example.com/a.png"},
		{"  https://cdn.example.com/b.png  ", "https://cdn.example.com/b.png"},
		{"javascript:alert(1)", ""},
		{"data:image/png;base64,AAAA", ""},
		{"/relative/path.png", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizer.MediaURL(tt.input); got != tt.want {
			t.Errorf("MediaURL(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
