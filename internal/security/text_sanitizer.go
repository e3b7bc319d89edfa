// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はタスクのタイトル・説明文からHTMLを除去し、
// 格納型XSSからユーザーを保護する。bluemondayのStrictPolicyにより
// すべてのタグと属性を落とし、プレーンテキストのみを通過させる。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキスト入力のサニタイズ機能のインターフェースを定義する。
// タスクの保存前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグ・属性を除去し、
	// 前後の空白をトリムしたプレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(input string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはいかなるタグも許可しないため、scriptやimgを含む入力は
// テキスト部分だけが残る。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(input string) string {
	return strings.TrimSpace(s.policy.Sanitize(input))
}

// compile-time interface check
var _ TextSanitizerService = (*textSanitizer)(nil)
