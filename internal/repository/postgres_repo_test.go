package repository

import (
	"context"
	"testing"
)

// PostgresIdentityRepoはIdentityRepositoryインターフェースを満たすことを検証
func TestPostgresIdentityRepo_ImplementsInterface(t *testing.T) {
	var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
}

// PostgresProfileRepoはProfileRepositoryインターフェースを満たすことを検証
func TestPostgresProfileRepo_ImplementsInterface(t *testing.T) {
	var _ ProfileRepository = (*PostgresProfileRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// PostgresMessageRepoはMessageRepositoryインターフェースを満たすことを検証
func TestPostgresMessageRepo_ImplementsInterface(t *testing.T) {
	var _ MessageRepository = (*PostgresMessageRepo)(nil)
}

// NewPostgresIdentityRepoが正しく初期化されることを検証
func TestNewPostgresIdentityRepo_Initializes(t *testing.T) {
	repo := NewPostgresIdentityRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresProfileRepoが正しく初期化されることを検証
func TestNewPostgresProfileRepo_Initializes(t *testing.T) {
	repo := NewPostgresProfileRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresMessageRepoが正しく初期化されることを検証
func TestNewPostgresMessageRepo_Initializes(t *testing.T) {
	repo := NewPostgresMessageRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// ListRecentByUserIDはlimit 0の場合にDBへ問い合わせず空を返すことを検証
func TestPostgresMessageRepo_ListRecent_ZeroLimit_ReturnsEmpty(t *testing.T) {
	repo := NewPostgresMessageRepo(nil)

	// db=nilでもlimit<=0の早期リターンによりクエリは発行されない
	messages, err := repo.ListRecentByUserID(context.Background(), "user-1", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("expected empty result, got %d messages", len(messages))
	}
}
