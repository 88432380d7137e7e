// Package logger はポータル全体で使うJSON構造化ロガーを構成する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ServiceName はすべてのログ行に付与されるサービス名。
const ServiceName = "cloudhms"

const redacted = "[REDACTED]"

// sensitiveKeys はログに値を残してはならない属性キー。
var sensitiveKeys = map[string]struct{}{
	"password":         {},
	"confirm_password": {},
	"access_token":     {},
	"refresh_token":    {},
	"session_id":       {},
	"authorization":    {},
	"cookie":           {},
}

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 資格情報やトークンを表すキーの値はマスクされる。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: redactSensitive,
	})
	return slog.New(handler).With(slog.String("service", ServiceName))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// wがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}

func redactSensitive(_ []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}
