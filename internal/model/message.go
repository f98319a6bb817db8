package model

import "time"

// MessageRole はメッセージの発話者区分を表す。
type MessageRole string

const (
	// MessageRoleUser はユーザーが送信したメッセージを示す。
	MessageRoleUser MessageRole = "user"
	// MessageRoleAssistant はアシスタント（言語モデル）の応答を示す。
	MessageRoleAssistant MessageRole = "assistant"
)

// Message はチャットログの1件のメッセージを表す。
// 追記専用であり、このシステムから更新・削除されることはない。
// 1回の送受信サイクルでuserとassistantのペアが作成される。
type Message struct {
	ID        string
	UserID    string
	Role      MessageRole
	Content   string
	CreatedAt time.Time
}
