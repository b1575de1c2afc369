// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrorKind はAPI呼び出しエラーの分類。閉じた列挙であり、これ以外の値は使わない。
type ErrorKind string

const (
	// ErrorKindTransport はネットワーク不達などクライアント側で発生したエラー。
	ErrorKindTransport ErrorKind = "transport"
	// ErrorKindServer はバックエンドが2xx以外のステータスを返したエラー。
	ErrorKindServer ErrorKind = "server"
	// ErrorKindParse はレスポンスや保存済みセッションの解析に失敗したエラー。
	ErrorKindParse ErrorKind = "parse"
	// ErrorKindUnknown は分類できなかったエラー。
	ErrorKindUnknown ErrorKind = "unknown"
)

// UnknownErrorMessage は原因を特定できない場合のメッセージ。
const UnknownErrorMessage = "An unknown error occurred"

// APIError はクライアントが呼び出し元に返す統一エラーフォーマットを表す。
// Messageはユーザーにそのまま表示できる文字列で、Error()はMessageのみを返す。
type APIError struct {
	Kind    ErrorKind // エラー分類
	Status  int       // HTTPステータス（レスポンスがない場合は0）
	Message string    // 正規化済みメッセージ
	Err     error     // 元のエラー（errors.Is/As用）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap は元のエラーを返す。context.Canceledの判定などに使う。
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewServerError はサーバーエラーを生成する。
// レスポンスボディにerrorフィールドがあればそれを優先し、なければステータスコードから生成する。
func NewServerError(status int, serverMessage string) *APIError {
	msg := serverMessage
	if msg == "" {
		msg = fmt.Sprintf("Server returned code %d", status)
	}
	return &APIError{
		Kind:    ErrorKindServer,
		Status:  status,
		Message: msg,
	}
}

// NewTransportError はクライアント側エラーを生成する。
// *url.Errorの場合はメソッドとURLを除いた原因部分をメッセージに使う。
func NewTransportError(err error) *APIError {
	if err == nil {
		return NewUnknownError(nil)
	}
	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		cause = urlErr.Err
	}
	return &APIError{
		Kind:    ErrorKindTransport,
		Message: fmt.Sprintf("Error: %s", cause.Error()),
		Err:     err,
	}
}

// NewParseError は解析失敗エラーを生成する。
// statusには解析対象のレスポンスのステータスを渡す（保存済みデータの場合は0）。
func NewParseError(status int, err error) *APIError {
	if err == nil {
		return NewUnknownError(nil)
	}
	return &APIError{
		Kind:    ErrorKindParse,
		Status:  status,
		Message: fmt.Sprintf("Error: %s", err.Error()),
		Err:     err,
	}
}

// NewUnknownError は分類できないエラーを生成する。
func NewUnknownError(err error) *APIError {
	return &APIError{
		Kind:    ErrorKindUnknown,
		Message: UnknownErrorMessage,
		Err:     err,
	}
}

// KindOf はエラーの分類を返す。APIError以外はErrorKindUnknownとなる。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrorKindUnknown
}

// StatusOf はエラーに紐づくHTTPステータスを返す。ない場合は0。
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
