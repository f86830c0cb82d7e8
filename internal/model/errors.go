package model

import (
	"errors"
	"fmt"
)

// ErrAuthenticationRequired は有効なセッションが必要な操作をセッションなしで呼んだことを表す。
// HTTP層では401に変換され、サーバー側での自動リトライは行わない。
var ErrAuthenticationRequired = errors.New("authentication required")

// APIError は統一エラーフォーマットを表す。
// Messageはそのままクライアントに返すため、内部情報を含めてはならない。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, upstream, system
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeCityRequired   = "CITY_REQUIRED"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeUpstream       = "UPSTREAM_ERROR"
	ErrCodeInternal       = "INTERNAL_ERROR"
)

// NewUnauthorizedError は認証要求エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Unauthorized",
		Category: "auth",
	}
}

// NewCityRequiredError は都市名未指定エラーを生成する。
func NewCityRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeCityRequired,
		Message:  "City parameter is required",
		Category: "validation",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
	}
}

// NewInternalError は内部エラーを生成する。
// messageには操作ごとの一般的な文言を渡し、詳細はログにのみ残す。
func NewInternalError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  message,
		Category: "system",
	}
}

// IsValidationError はerrがバリデーションカテゴリのAPIErrorかどうかを判定する。
func IsValidationError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Category == "validation"
}
