// Package model はドメインモデルを定義する。
package model

import "time"

// UserRole はプロフィールの利用者区分を表す。
type UserRole string

const (
	// UserRolePrimary は保護者（主利用者）アカウントを示す。
	UserRolePrimary UserRole = "primary"
	// UserRoleChild は子どもアカウントを示す。
	UserRoleChild UserRole = "child"
)

// IsValid は利用者区分が定義済みの値かどうかを判定する。
func (r UserRole) IsValid() bool {
	return r == UserRolePrimary || r == UserRoleChild
}

// Identity は認証上の本人情報を表す。
// メールアドレスとパスワードハッシュを保持し、identitiesテーブルが所有する。
// プロフィールとは独立したストアで管理されるため、サインアップ時の整合性は
// トランザクションではなく補償削除で担保する（auth.Service.SignUp参照）。
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Profile は同意情報を含むユーザープロフィールを表す。
// IDは対応するIdentityのIDと常に一致する。
type Profile struct {
	ID                 string
	FullName           string
	UserRole           UserRole
	AgeVerification    bool
	DevelopmentConsent bool
	ConsentTimestamp   time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
