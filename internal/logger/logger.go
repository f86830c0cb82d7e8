// Package logger はslogのJSON構造化ログを設定する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// redacted はマスク後に出力される値。
const redacted = "[REDACTED]"

// sensitiveKeys はログに値を出さない属性キー（小文字で比較）。
var sensitiveKeys = map[string]struct{}{
	"api_key":       {},
	"apikey":        {},
	"access_token":  {},
	"authorization": {},
	"password":      {},
	"secret":        {},
	"session":       {},
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
func Setup(w io.Writer) *slog.Logger {
	return SetupWithLevel(w, slog.LevelInfo)
}

// SetupWithLevel は出力レベルを指定してJSON構造化ログのslog.Loggerを生成する。
// 秘密情報を示すキーの属性は値をマスクする。
func SetupWithLevel(w io.Writer, level slog.Leveler) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactSensitive,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// wがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer) {
	SetupDefaultWithLevel(w, slog.LevelInfo)
}

// SetupDefaultWithLevel はレベル指定付きでグローバルロガーを設定する。
// 設定読み込み後にLOG_LEVELを反映するために使う。
func SetupDefaultWithLevel(w io.Writer, level slog.Leveler) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(SetupWithLevel(w, level))
}

func redactSensitive(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}
