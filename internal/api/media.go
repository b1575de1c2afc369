package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/hitoshi/peerview/internal/model"
)

const (
	// uploadFormField はレガシーアップロードのマルチパートフィールド名。
	uploadFormField = "file"
	// defaultMediaType は拡張子からメディアタイプを判定できない場合の値。
	defaultMediaType = "application/octet-stream"
	// MaxUploadSize はアップロードできるファイルの最大バイト数。
	MaxUploadSize = 100 << 20
)

// GenerateUploadURL は直接アップロード用の期限付きURLを発行する。
// POST {base}/v1/media/upload-url。リトライしない。
func (c *Client) GenerateUploadURL(ctx context.Context, fileName, fileType string) (*model.UploadTarget, error) {
	req := model.UploadURLRequest{FileName: fileName, FileType: fileType}
	if err := c.validateRequest(req); err != nil {
		return nil, c.invalid("generate_upload_url", err)
	}

	var target model.UploadTarget
	if err := c.send(ctx, "generate_upload_url", http.MethodPost, c.v1URL+"/media/upload-url", req, true, false, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// UploadFile はファイルをマルチパート形式でアップロードし、公開URLを返す。
// POST {base}/api/upload。失敗時は1回リトライする。
// 再送できるようボディはメモリ上に組み立てる。
func (c *Client) UploadFile(ctx context.Context, fileName string, content io.Reader) (*model.UploadResult, error) {
	body, contentType, err := multipartBody(fileName, content)
	if err != nil {
		return nil, c.invalid("upload_file", err)
	}

	req := request{
		op:          "upload_file",
		method:      http.MethodPost,
		url:         c.legacyURL + "/upload",
		body:        body,
		contentType: contentType,
		retry:       true,
	}

	var result model.UploadResult
	if err := c.do(ctx, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PutToUploadTarget はGenerateUploadURLで発行されたURLへファイルを直接PUTする。
// URLはサーバーのレスポンスに含まれる値のため、送信前に検証してSSRF対策済みのクライアントで送る。
func (c *Client) PutToUploadTarget(ctx context.Context, target model.UploadTarget, contentType string, content []byte) error {
	if target.UploadURL == "" {
		return c.invalid("put_upload_target", fmt.Errorf("upload URL is empty"))
	}
	if c.uploadGuard != nil {
		if err := c.uploadGuard.ValidateURL(target.UploadURL); err != nil {
			return c.invalid("put_upload_target", fmt.Errorf("upload URL rejected: %w", err))
		}
	}
	if len(content) > MaxUploadSize {
		return c.invalid("put_upload_target", fmt.Errorf("file exceeds %d bytes", MaxUploadSize))
	}
	if contentType == "" {
		contentType = defaultMediaType
	}

	req := request{
		op:          "put_upload_target",
		method:      http.MethodPut,
		url:         target.UploadURL,
		body:        content,
		contentType: contentType,
		external:    true,
		header:      http.Header{"X-Ms-Blob-Type": []string{"BlockBlob"}},
	}
	return c.do(ctx, req, nil)
}

// multipartBody はfileフィールドにファイルを格納したマルチパートボディを組み立てる。
func multipartBody(fileName string, content io.Reader) ([]byte, string, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, "", fmt.Errorf("file name is required")
	}
	if content == nil {
		return nil, "", fmt.Errorf("file content is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadFormField, filepath.Base(fileName)))
	h.Set("Content-Type", MediaTypeOf(fileName))
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create multipart part: %w", err)
	}

	n, err := io.Copy(part, io.LimitReader(content, MaxUploadSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read file: %w", err)
	}
	if n > MaxUploadSize {
		return nil, "", fmt.Errorf("file exceeds %d bytes", MaxUploadSize)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

// mediaTypes は質問に添付できる主なメディアの拡張子。
// 環境のmime.typesに依存せず判定できるようにする。
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// MediaTypeOf はファイル名の拡張子からMIMEタイプを判定する。
func MediaTypeOf(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if t, ok := mediaTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return defaultMediaType
}

// QuestionMediaType はMIMEタイプから質問のメディア種別を判定する。
// video/image/audio以外はfalseを返す。
func QuestionMediaType(contentType string) (model.MediaType, bool) {
	major, _, _ := strings.Cut(contentType, "/")
	switch model.MediaType(major) {
	case model.MediaTypeVideo, model.MediaTypeImage, model.MediaTypeAudio:
		return model.MediaType(major), true
	default:
		return "", false
	}
}
