package auth

import (
	"strings"
	"testing"
)

// ハッシュ化したパスワードが元のパスワードで検証できることを検証
func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	encoded, err := HashPassword("Xx123456!")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if !strings.HasPrefix(encoded, "$argon2id$") {
		t.Errorf("encoded hash should use argon2id format, got %q", encoded)
	}

	ok, err := VerifyPassword("Xx123456!", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Error("expected password to verify against its own hash")
	}
}

// 異なるパスワードでは検証が失敗することを検証
func TestVerifyPassword_WrongPassword_Fails(t *testing.T) {
	encoded, err := HashPassword("correct-password")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	ok, err := VerifyPassword("wrong-password", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Error("expected verification to fail for wrong password")
	}
}

// 同じパスワードでもソルトによりハッシュが毎回異なることを検証
func TestHashPassword_UniqueSalt(t *testing.T) {
	first, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password should differ due to random salt")
	}
}

// 不正なフォーマットのハッシュはエラーを返すことを検証
func TestVerifyPassword_InvalidFormat_ReturnsError(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"空文字列", ""},
		{"bcrypt形式", "$2a$10$abcdefghijklmnopqrstuv"},
		{"セグメント不足", "$argon2id$v=19$m=65536,t=1,p=4"},
		{"不正なbase64", "$argon2id$v=19$m=65536,t=1,p=4$!!!$!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := VerifyPassword("password", tt.encoded); err == nil {
				t.Error("expected error for invalid hash format")
			}
		})
	}
}
