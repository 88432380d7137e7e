// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は利用者が入力した自由記述（氏名、住所、来院理由など）から
// HTMLを取り除き、プレーンテキストとして保存できる形に整える。
// bluemondayのStrictPolicyを使用し、すべてのタグと属性を除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト入力のサニタイズ機能のインターフェースを定義する。
type TextSanitizer interface {
	// Sanitize はタグを除去し、前後の空白を取り除いたテキストを返す。
	// 出力を再度渡しても変化しない（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのPolicyはゴルーチンセーフなため共有して使用する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses は多重にエスケープされた入力を展開する回数の上限。
const maxSanitizePasses = 8

// Sanitize はタグを除去したテキストを返す。
// StrictPolicyはエスケープ済みの文字列を返すため、保存前に実体参照を元に戻す。
// 戻した結果に再びタグや実体参照が現れる入力（&amp;lt;b&amp;gt; など）があるため、
// 出力が変化しなくなるまで繰り返す。
func (s *textSanitizer) Sanitize(raw string) string {
	text := raw
	for i := 0; i < maxSanitizePasses; i++ {
		next := s.pass(text)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func (s *textSanitizer) pass(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}
