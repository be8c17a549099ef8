// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザーが投稿したレビュー本文からHTMLを取り除き、
// プレーンテキストとして保存できる形に正規化する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// maxSanitizePasses はエンティティ展開後の再サニタイズ回数の上限。
const maxSanitizePasses = 5

// ContentSanitizerService はユーザー入力テキストのサニタイズ機能のインターフェースを定義する。
// レビュー本文の保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeText はHTMLタグをすべて除去したプレーンテキストを返す。
	// HTMLエンティティは文字に戻し、改行はLFに統一し、前後の空白を除去する。
	// 同一入力に対して常に同一出力を返し、出力を再度渡しても変化しない（冪等）。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフであり、共有して使用する。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 許可タグを持たないStrictPolicyを使用する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はHTMLタグを除去したプレーンテキストを返す。
// "&lt;script&gt;"のようにエスケープされたタグも、展開後に再度除去される。
func (s *contentSanitizer) SanitizeText(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(text))
		if next == text {
			break
		}
		text = next
	}
	return strings.TrimSpace(text)
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
