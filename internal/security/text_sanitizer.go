// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザー入力のプレーンテキストからマークアップを取り除く。
// OutboundClient は外部API（天気プロバイダ、認証サービス）向けの
// SSRF防止付きHTTPクライアントを生成する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト入力のサニタイズ機能のインターフェースを定義する。
// 検索履歴の都市名を保存する前に使用される。
type TextSanitizer interface {
	// Sanitize は全てのHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフなので、1インスタンスを共有してよい。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はStrictPolicy（タグを一切許可しない）ベースのサニタイザを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は全てのタグを除去する。
// StrictPolicyはエンティティをエスケープして返すため、保存用にプレーンテキストへ戻す。
// 表示時のエスケープはテンプレートとJSONエンコーダが行う。
func (s *textSanitizer) Sanitize(raw string) string {
	stripped := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
