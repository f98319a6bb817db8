package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/hanashi/internal/model"
)

// ErrDuplicateEmail は既に登録済みのメールアドレスでIdentityを作成しようとした場合のエラー。
var ErrDuplicateEmail = errors.New("email is already registered")

// uniqueViolationCode はPostgreSQLの一意制約違反のSQLSTATEコード。
const uniqueViolationCode = "23505"

// PostgresIdentityRepo はPostgreSQLを使用した認証本人情報リポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// Create はIdentityを作成する。メールアドレス重複の場合はErrDuplicateEmailを返す。
func (r *PostgresIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO identities (id, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)`,
		identity.ID, identity.Email, identity.PasswordHash, identity.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolationCode {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	return nil
}

// FindByID は指定IDのIdentityを取得する。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	identity := &model.Identity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM identities WHERE id = $1`,
		id,
	).Scan(&identity.ID, &identity.Email, &identity.PasswordHash, &identity.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity by ID: %w", err)
	}

	return identity, nil
}

// FindByEmail はメールアドレスでIdentityを検索する。見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	identity := &model.Identity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, created_at FROM identities WHERE email = $1`,
		email,
	).Scan(&identity.ID, &identity.Email, &identity.PasswordHash, &identity.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity by email: %w", err)
	}

	return identity, nil
}

// DeleteByID は指定IDのIdentityを削除する。
// 対象が存在しない場合もエラーとしない（補償削除の冪等性のため）。
func (r *PostgresIdentityRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM identities WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	return nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
