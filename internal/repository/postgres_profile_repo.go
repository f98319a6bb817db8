package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/hanashi/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// Create はプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, full_name, user_role, age_verification, development_consent, consent_timestamp, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		profile.ID, profile.FullName, string(profile.UserRole),
		profile.AgeVerification, profile.DevelopmentConsent, profile.ConsentTimestamp,
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}

	return nil
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	profile := &model.Profile{}
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, full_name, user_role, age_verification, development_consent, consent_timestamp, created_at, updated_at
		 FROM profiles WHERE id = $1`,
		id,
	).Scan(
		&profile.ID, &profile.FullName, &role,
		&profile.AgeVerification, &profile.DevelopmentConsent, &profile.ConsentTimestamp,
		&profile.CreatedAt, &profile.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by ID: %w", err)
	}

	profile.UserRole = model.UserRole(role)
	return profile, nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
