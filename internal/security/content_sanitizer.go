// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はチャットメッセージの本文をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayのStrictPolicyを使用し、HTMLタグを一切許可しない。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はメッセージ本文のサニタイズ機能のインターフェースを定義する。
// メッセージの保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize はメッセージ本文からHTMLタグを全て除去したテキストを返す。
	// チャットのメッセージはプレーンテキストとして扱うため許可タグはない。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのHTML要素と属性を除去し、テキストのみを残す。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はメッセージ本文からHTMLタグを全て除去したテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	return s.policy.Sanitize(raw)
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
