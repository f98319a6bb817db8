// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/hanashi/internal/model"
)

// IdentityRepository は認証本人情報の永続化インターフェース。
// サインアップの補償削除（DeleteByID）を含む。
type IdentityRepository interface {
	// Create はIdentityを作成する。メールアドレス重複の場合はエラーを返す。
	Create(ctx context.Context, identity *model.Identity) error

	// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Identity, error)

	// FindByEmail はメールアドレスでIdentityを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Identity, error)

	// DeleteByID は指定IDのIdentityを削除する。
	// プロフィール作成失敗時の補償削除として呼ばれる。
	DeleteByID(ctx context.Context, id string) error
}

// ProfileRepository はユーザープロフィールの永続化インターフェース。
type ProfileRepository interface {
	// Create はプロフィールを作成する。ConsentTimestampは呼び出し側が設定する。
	Create(ctx context.Context, profile *model.Profile) error

	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// MessageRepository はチャットメッセージの永続化インターフェース。
// メッセージは追記専用で、更新・削除操作は提供しない。
type MessageRepository interface {
	// Create はメッセージを作成する。IDとCreatedAtは呼び出し側が設定する。
	Create(ctx context.Context, message *model.Message) error

	// ListByUserID は指定ユーザーの全メッセージをcreated_at昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Message, error)

	// ListRecentByUserID は指定ユーザーの直近limit件のメッセージをcreated_at昇順で返す。
	// 補完リクエストに含める会話履歴の取得に使用する。
	ListRecentByUserID(ctx context.Context, userID string, limit int) ([]*model.Message, error)
}
