package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/hanashi/internal/model"
	"github.com/hitoshi/hanashi/internal/repository"
)

// --- モック定義 ---

type mockIdentityRepo struct {
	createFn      func(ctx context.Context, identity *model.Identity) error
	findByIDFn    func(ctx context.Context, id string) (*model.Identity, error)
	findByEmailFn func(ctx context.Context, email string) (*model.Identity, error)
	deleteByIDFn  func(ctx context.Context, id string) error

	createCalls []string // 作成されたIdentityのID
	deleteCalls []string // 削除要求されたID
}

func (m *mockIdentityRepo) Create(ctx context.Context, identity *model.Identity) error {
	m.createCalls = append(m.createCalls, identity.ID)
	if m.createFn != nil {
		return m.createFn(ctx, identity)
	}
	return nil
}

func (m *mockIdentityRepo) FindByID(ctx context.Context, id string) (*model.Identity, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockIdentityRepo) FindByEmail(ctx context.Context, email string) (*model.Identity, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockIdentityRepo) DeleteByID(ctx context.Context, id string) error {
	m.deleteCalls = append(m.deleteCalls, id)
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

type mockProfileRepo struct {
	createFn   func(ctx context.Context, profile *model.Profile) error
	findByIDFn func(ctx context.Context, id string) (*model.Profile, error)

	created []*model.Profile
}

func (m *mockProfileRepo) Create(ctx context.Context, profile *model.Profile) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, profile); err != nil {
			return err
		}
	}
	m.created = append(m.created, profile)
	return nil
}

func (m *mockProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.IdentityRepository = (*mockIdentityRepo)(nil)
var _ repository.ProfileRepository = (*mockProfileRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

func validInput() SignUpInput {
	return SignUpInput{
		Email:              "a@b.com",
		Password:           "Xx123456!",
		FullName:           "A B",
		AgeVerification:    true,
		DevelopmentConsent: true,
	}
}

func newTestService(identRepo *mockIdentityRepo, profileRepo *mockProfileRepo, sessionRepo *mockSessionRepo) *Service {
	return NewService(identRepo, profileRepo, sessionRepo, nil, ServiceConfig{SessionMaxAge: 86400})
}

// --- サインアップのテスト ---

func TestSignUp_Success_ProfileIDMatchesIdentityID(t *testing.T) {
	identRepo := &mockIdentityRepo{}
	profileRepo := &mockProfileRepo{}
	sessionRepo := &mockSessionRepo{}
	svc := newTestService(identRepo, profileRepo, sessionRepo)

	result, err := svc.SignUp(context.Background(), validInput())
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if result.IdentityID == "" {
		t.Fatal("expected non-empty identity ID")
	}
	if result.Profile.ID != result.IdentityID {
		t.Errorf("profile ID = %q, want identity ID %q", result.Profile.ID, result.IdentityID)
	}
	if result.Email != "a@b.com" {
		t.Errorf("email = %q, want %q", result.Email, "a@b.com")
	}
	if result.Profile.UserRole != model.UserRolePrimary {
		t.Errorf("role = %q, want default %q", result.Profile.UserRole, model.UserRolePrimary)
	}
	if result.Session == nil {
		t.Error("expected a session to be issued on signup")
	}
}

func TestSignUp_SetsServerSideConsentTimestamp(t *testing.T) {
	identRepo := &mockIdentityRepo{}
	profileRepo := &mockProfileRepo{}
	svc := newTestService(identRepo, profileRepo, &mockSessionRepo{})

	before := time.Now()
	result, err := svc.SignUp(context.Background(), validInput())
	after := time.Now()
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	ts := result.Profile.ConsentTimestamp
	if ts.Before(before) || ts.After(after) {
		t.Errorf("consent timestamp %v should be set server-side between %v and %v", ts, before, after)
	}
}

func TestSignUp_MissingFields_ReturnsValidationError(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SignUpInput)
	}{
		{"メールアドレスなし", func(in *SignUpInput) { in.Email = "" }},
		{"パスワードなし", func(in *SignUpInput) { in.Password = "" }},
		{"氏名なし", func(in *SignUpInput) { in.FullName = "" }},
		{"氏名が空白のみ", func(in *SignUpInput) { in.FullName = "   " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identRepo := &mockIdentityRepo{}
			svc := newTestService(identRepo, &mockProfileRepo{}, &mockSessionRepo{})

			input := validInput()
			tt.mutate(&input)

			_, err := svc.SignUp(context.Background(), input)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
				t.Fatalf("expected VALIDATION_FAILED, got %v", err)
			}
			if len(identRepo.createCalls) != 0 {
				t.Errorf("identity creation should not be attempted, got %d calls", len(identRepo.createCalls))
			}
		})
	}
}

// 同意フラグは必須の業務要件。どちらかがfalseならIdentityは一切作成されない。
func TestSignUp_ConsentNotGiven_NoIdentityCreated(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SignUpInput)
	}{
		{"年齢確認なし", func(in *SignUpInput) { in.AgeVerification = false }},
		{"開発同意なし", func(in *SignUpInput) { in.DevelopmentConsent = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identRepo := &mockIdentityRepo{}
			svc := newTestService(identRepo, &mockProfileRepo{}, &mockSessionRepo{})

			input := validInput()
			tt.mutate(&input)

			_, err := svc.SignUp(context.Background(), input)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
				t.Fatalf("expected VALIDATION_FAILED, got %v", err)
			}
			if len(identRepo.createCalls) != 0 {
				t.Errorf("identity creation should not be attempted, got %d calls", len(identRepo.createCalls))
			}
		})
	}
}

func TestSignUp_InvalidRole_ReturnsValidationError(t *testing.T) {
	identRepo := &mockIdentityRepo{}
	svc := newTestService(identRepo, &mockProfileRepo{}, &mockSessionRepo{})

	input := validInput()
	input.Role = model.UserRole("admin")

	_, err := svc.SignUp(context.Background(), input)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeValidationFailed {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestSignUp_DuplicateEmail_ReturnsIdentityCreationError(t *testing.T) {
	identRepo := &mockIdentityRepo{
		createFn: func(ctx context.Context, identity *model.Identity) error {
			return repository.ErrDuplicateEmail
		},
	}
	svc := newTestService(identRepo, &mockProfileRepo{}, &mockSessionRepo{})

	_, err := svc.SignUp(context.Background(), validInput())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeIdentityCreationFailed {
		t.Fatalf("expected IDENTITY_CREATION_FAILED, got %v", err)
	}
	// Identityが作成されていないためロールバックは不要
	if len(identRepo.deleteCalls) != 0 {
		t.Errorf("no rollback expected, got %d delete calls", len(identRepo.deleteCalls))
	}
}

// プロフィール作成失敗時は作成済みIdentityがちょうど1回補償削除されること
func TestSignUp_ProfileCreationFails_RollsBackIdentity(t *testing.T) {
	identRepo := &mockIdentityRepo{}
	profileRepo := &mockProfileRepo{
		createFn: func(ctx context.Context, profile *model.Profile) error {
			return errors.New("insert failed")
		},
	}
	svc := newTestService(identRepo, profileRepo, &mockSessionRepo{})

	_, err := svc.SignUp(context.Background(), validInput())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeProfileCreationFailed {
		t.Fatalf("expected PROFILE_CREATION_FAILED, got %v", err)
	}

	if len(identRepo.createCalls) != 1 {
		t.Fatalf("expected exactly 1 identity creation, got %d", len(identRepo.createCalls))
	}
	if len(identRepo.deleteCalls) != 1 {
		t.Fatalf("expected exactly 1 rollback delete, got %d", len(identRepo.deleteCalls))
	}
	if identRepo.deleteCalls[0] != identRepo.createCalls[0] {
		t.Errorf("rollback deleted %q, want created identity %q", identRepo.deleteCalls[0], identRepo.createCalls[0])
	}
}

// 補償削除の失敗はログのみで、呼び出し元には元のProfileCreationErrorが返ること
func TestSignUp_RollbackFails_StillReturnsProfileCreationError(t *testing.T) {
	identRepo := &mockIdentityRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			return errors.New("delete failed")
		},
	}
	profileRepo := &mockProfileRepo{
		createFn: func(ctx context.Context, profile *model.Profile) error {
			return errors.New("insert failed")
		},
	}
	svc := newTestService(identRepo, profileRepo, &mockSessionRepo{})

	_, err := svc.SignUp(context.Background(), validInput())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeProfileCreationFailed {
		t.Fatalf("expected PROFILE_CREATION_FAILED even when rollback fails, got %v", err)
	}
	if len(identRepo.deleteCalls) != 1 {
		t.Errorf("expected rollback to be attempted once, got %d", len(identRepo.deleteCalls))
	}
}

func TestSignUp_NormalizesEmail(t *testing.T) {
	identRepo := &mockIdentityRepo{}
	var createdEmail string
	identRepo.createFn = func(ctx context.Context, identity *model.Identity) error {
		createdEmail = identity.Email
		return nil
	}
	svc := newTestService(identRepo, &mockProfileRepo{}, &mockSessionRepo{})

	input := validInput()
	input.Email = "  User@Example.COM  "

	result, err := svc.SignUp(context.Background(), input)
	if err != nil {
		t.Fatalf("SignUp returned error: %v", err)
	}

	if createdEmail != "user@example.com" {
		t.Errorf("stored email = %q, want normalized %q", createdEmail, "user@example.com")
	}
	if result.Email != "user@example.com" {
		t.Errorf("result email = %q, want %q", result.Email, "user@example.com")
	}
}

// --- ログインのテスト ---

func TestLogin_Success_IssuesSession(t *testing.T) {
	hash, err := HashPassword("Xx123456!")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	identRepo := &mockIdentityRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Identity, error) {
			return &model.Identity{ID: "U1", Email: email, PasswordHash: hash}, nil
		},
	}
	var createdSession *model.Session
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}
	svc := newTestService(identRepo, &mockProfileRepo{}, sessionRepo)

	session, err := svc.Login(context.Background(), "a@b.com", "Xx123456!")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	if session.UserID != "U1" {
		t.Errorf("session user ID = %q, want %q", session.UserID, "U1")
	}
	if createdSession == nil {
		t.Fatal("expected session to be persisted")
	}
	if !createdSession.ExpiresAt.After(time.Now()) {
		t.Error("session should expire in the future")
	}
}

func TestLogin_UnknownEmail_ReturnsInvalidCredentials(t *testing.T) {
	svc := newTestService(&mockIdentityRepo{}, &mockProfileRepo{}, &mockSessionRepo{})

	_, err := svc.Login(context.Background(), "nobody@example.com", "password")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
	}
}

func TestLogin_WrongPassword_ReturnsInvalidCredentials(t *testing.T) {
	hash, err := HashPassword("correct-password")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	identRepo := &mockIdentityRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.Identity, error) {
			return &model.Identity{ID: "U1", Email: email, PasswordHash: hash}, nil
		},
	}
	svc := newTestService(identRepo, &mockProfileRepo{}, &mockSessionRepo{})

	_, err = svc.Login(context.Background(), "a@b.com", "wrong-password")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Fatalf("expected INVALID_CREDENTIALS, got %v", err)
	}
}

// --- セッション関連のテスト ---

func TestCurrentUser_ValidSession_ReturnsIdentityAndProfile(t *testing.T) {
	identRepo := &mockIdentityRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Identity, error) {
			return &model.Identity{ID: id, Email: "a@b.com"}, nil
		},
	}
	profileRepo := &mockProfileRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Profile, error) {
			return &model.Profile{ID: id, FullName: "A B", UserRole: model.UserRolePrimary}, nil
		},
	}
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "U1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	svc := newTestService(identRepo, profileRepo, sessionRepo)

	identity, profile, err := svc.CurrentUser(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("CurrentUser returned error: %v", err)
	}
	if identity.ID != "U1" {
		t.Errorf("identity ID = %q, want %q", identity.ID, "U1")
	}
	if profile.ID != "U1" {
		t.Errorf("profile ID = %q, want %q", profile.ID, "U1")
	}
}

func TestCurrentUser_ExpiredSession_ReturnsUnauthorized(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return nil, nil // 期限切れはnilで返る
		},
	}
	svc := newTestService(&mockIdentityRepo{}, &mockProfileRepo{}, sessionRepo)

	_, _, err := svc.CurrentUser(context.Background(), "expired-session")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthorized {
		t.Fatalf("expected UNAUTHORIZED, got %v", err)
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	var deletedID string
	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc := newTestService(&mockIdentityRepo{}, &mockProfileRepo{}, sessionRepo)

	if err := svc.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if deletedID != "session-1" {
		t.Errorf("deleted session = %q, want %q", deletedID, "session-1")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := newTestService(&mockIdentityRepo{}, &mockProfileRepo{}, &mockSessionRepo{})

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Error("expected error for empty session ID")
	}
}
