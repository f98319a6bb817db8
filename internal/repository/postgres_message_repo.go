package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hanashi/internal/model"
)

// PostgresMessageRepo はPostgreSQLを使用したメッセージリポジトリ。
// メッセージは追記専用のため、INSERTとSELECTのみを発行する。
type PostgresMessageRepo struct {
	db *sql.DB
}

// NewPostgresMessageRepo はPostgresMessageRepoを生成する。
func NewPostgresMessageRepo(db *sql.DB) *PostgresMessageRepo {
	return &PostgresMessageRepo{db: db}
}

// Create はメッセージを作成する。
func (r *PostgresMessageRepo) Create(ctx context.Context, message *model.Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		message.ID, message.UserID, string(message.Role), message.Content, message.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// ListByUserID は指定ユーザーの全メッセージをcreated_at昇順で返す。
func (r *PostgresMessageRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, role, content, created_at
		 FROM messages
		 WHERE user_id = $1
		 ORDER BY created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListRecentByUserID は指定ユーザーの直近limit件のメッセージをcreated_at昇順で返す。
// 降順でlimit件取り出してから昇順に並べ直す。
func (r *PostgresMessageRepo) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]*model.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, role, content, created_at
		 FROM (
		     SELECT id, user_id, role, content, created_at
		     FROM messages
		     WHERE user_id = $1
		     ORDER BY created_at DESC
		     LIMIT $2
		 ) recent
		 ORDER BY created_at ASC`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

// scanMessages は行セットをmodel.Messageのスライスに変換する。
func scanMessages(rows *sql.Rows) ([]*model.Message, error) {
	var messages []*model.Message
	for rows.Next() {
		msg := &model.Message{}
		var role string
		if err := rows.Scan(&msg.ID, &msg.UserID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = model.MessageRole(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// compile-time interface check
var _ MessageRepository = (*PostgresMessageRepo)(nil)
