// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, chat, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeIdentityCreationFailed = "IDENTITY_CREATION_FAILED"
	ErrCodeProfileCreationFailed  = "PROFILE_CREATION_FAILED"
	ErrCodeEmptyMessage           = "EMPTY_MESSAGE"
	ErrCodePersistenceFailed      = "PERSISTENCE_FAILED"
	ErrCodeCompletionFailed       = "COMPLETION_FAILED"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
)

// NewValidationError は入力検証エラーを生成する。
// reasonには不足・不正なフィールドの説明を指定する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に不備があります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewConsentRequiredError は同意チェックが未完了の場合のエラーを生成する。
// 年齢確認と開発データ利用への同意は必須の業務要件であり、
// どちらかが欠けている場合はアカウント作成自体を拒否する。
func NewConsentRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "年齢確認と開発データ利用への同意が必要です。",
		Category: "validation",
		Action:   "両方の同意チェックボックスをオンにしてから再度お試しください。",
	}
}

// NewIdentityCreationError は認証アカウント作成失敗エラーを生成する。
// detailには認証ストアからのエラー内容をそのまま含める。
func NewIdentityCreationError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeIdentityCreationFailed,
		Message:  fmt.Sprintf("アカウントの作成に失敗しました: %s", detail),
		Category: "auth",
		Action:   "メールアドレスが既に登録されていないか確認してください。",
	}
}

// NewProfileCreationError はプロフィール作成失敗エラーを生成する。
// detailにはプロフィールストアからのエラー内容をそのまま含める。
func NewProfileCreationError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeProfileCreationFailed,
		Message:  fmt.Sprintf("プロフィールの作成に失敗しました: %s", detail),
		Category: "auth",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewEmptyMessageError は空メッセージエラーを生成する。
func NewEmptyMessageError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyMessage,
		Message:  "メッセージが空です。",
		Category: "validation",
		Action:   "メッセージを入力してから送信してください。",
	}
}

// NewPersistenceError はメッセージログへの書き込み失敗エラーを生成する。
func NewPersistenceError() *APIError {
	return &APIError{
		Code:     ErrCodePersistenceFailed,
		Message:  "メッセージの保存に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewCompletionError は言語モデルからの応答取得失敗エラーを生成する。
// 応答が空の場合も失敗として扱う（空応答は有効な返信ではない）。
func NewCompletionError() *APIError {
	return &APIError{
		Code:     ErrCodeCompletionFailed,
		Message:  "アシスタントからの応答を取得できませんでした。",
		Category: "chat",
		Action:   "しばらく待ってから再度送信してください。",
	}
}

// NewInvalidCredentialsError は認証情報不一致エラーを生成する。
// ユーザー不存在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
