// Package auth はサインアップ、ログイン、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/hanashi/internal/model"
	"github.com/hitoshi/hanashi/internal/repository"
)

// SignUpInput はサインアップリクエストの入力を表す。
type SignUpInput struct {
	Email              string
	Password           string
	FullName           string
	AgeVerification    bool
	DevelopmentConsent bool
	Role               model.UserRole // 省略時はprimary
}

// SignUpResult はサインアップ成功時の結果を表す。
type SignUpResult struct {
	IdentityID string
	Email      string
	Profile    *model.Profile
	Session    *model.Session
}

// MetricsRecorder はサインアップ処理のメトリクス記録インターフェース。
// nilの場合は記録をスキップする。
type MetricsRecorder interface {
	RecordSignUpSuccess()
	RecordSignUpFailure(reason string)
	RecordSignUpRollback()
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
// サインアップはIdentityストアとProfileストアの2箇所への書き込みにまたがるため、
// 分散トランザクションの代わりにベストエフォートの補償削除で整合性を担保する。
type Service struct {
	identRepo   repository.IdentityRepository
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	metrics     MetricsRecorder
	config      ServiceConfig
}

// NewService はServiceを生成する。metricsはnilを許容する。
func NewService(
	identRepo repository.IdentityRepository,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		identRepo:   identRepo,
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		metrics:     metrics,
		config:      config,
	}
}

// SignUp はアカウントを作成する。
// 処理は Validate → CreateIdentity → CreateProfile → Success の直列フローで、
// プロフィール作成に失敗した場合は作成済みIdentityを補償削除してから
// ProfileCreationErrorを返す。補償削除自体の失敗はログに記録するのみで、
// 呼び出し元には元のエラーを返す（孤児Identityが残るリスクは許容済み）。
func (s *Service) SignUp(ctx context.Context, input SignUpInput) (*SignUpResult, error) {
	// 1. 入力検証。違反時はコラボレータへの呼び出しを一切行わない。
	if err := validateSignUpInput(&input); err != nil {
		if s.metrics != nil {
			s.metrics.RecordSignUpFailure("validation")
		}
		return nil, err
	}

	// 2. Identityの作成。メール確認のラウンドトリップは行わない。
	identity := &model.Identity{
		ID:        uuid.New().String(),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		CreatedAt: time.Now(),
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordSignUpFailure("identity")
		}
		return nil, model.NewIdentityCreationError(err.Error())
	}
	identity.PasswordHash = hash

	if err := s.identRepo.Create(ctx, identity); err != nil {
		// 作成されたものがないためロールバック不要
		if s.metrics != nil {
			s.metrics.RecordSignUpFailure("identity")
		}
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, model.NewIdentityCreationError("メールアドレスは既に登録されています")
		}
		return nil, model.NewIdentityCreationError(err.Error())
	}

	slog.Info("identity created",
		slog.String("identity_id", identity.ID),
	)

	// 3. Profileの作成。consent_timestampはクライアント値ではなく
	// 挿入時点のサーバー時刻を使用する。
	now := time.Now()
	profile := &model.Profile{
		ID:                 identity.ID,
		FullName:           strings.TrimSpace(input.FullName),
		UserRole:           input.Role,
		AgeVerification:    input.AgeVerification,
		DevelopmentConsent: input.DevelopmentConsent,
		ConsentTimestamp:   now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.profileRepo.Create(ctx, profile); err != nil {
		slog.Error("profile creation failed",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)

		// 補償削除: プロフィールのないIdentityを残さない。
		// 削除の失敗はログのみで、呼び出し元には元のエラーを返す。
		if delErr := s.identRepo.DeleteByID(ctx, identity.ID); delErr != nil {
			slog.Error("identity rollback failed, orphaned identity remains",
				slog.String("identity_id", identity.ID),
				slog.String("error", delErr.Error()),
			)
		} else {
			slog.Info("identity rolled back",
				slog.String("identity_id", identity.ID),
			)
		}

		if s.metrics != nil {
			s.metrics.RecordSignUpFailure("profile")
			s.metrics.RecordSignUpRollback()
		}
		return nil, model.NewProfileCreationError(err.Error())
	}

	// 4. セッションを発行してサインイン済み状態にする
	session, err := s.createSession(ctx, identity.ID)
	if err != nil {
		// アカウント自体は作成済みのため、セッション発行失敗は致命的ではない。
		// 呼び出し元はログインし直せる。
		slog.Warn("failed to create session after signup",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
		session = nil
	}

	if s.metrics != nil {
		s.metrics.RecordSignUpSuccess()
	}

	slog.Info("signup completed",
		slog.String("identity_id", identity.ID),
		slog.String("user_role", string(profile.UserRole)),
	)

	return &SignUpResult{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Profile:    profile,
		Session:    session,
	}, nil
}

// Login はメールアドレスとパスワードで認証し、セッションを発行する。
// ユーザー不存在とパスワード不一致は区別せず同一のエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, model.NewInvalidCredentialsError()
	}

	identity, err := s.identRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := VerifyPassword(password, identity.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, identity.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("identity_id", identity.ID),
	)

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// CurrentUser はセッションから現在のユーザーのIdentityとProfileを取得する。
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*model.Identity, *model.Profile, error) {
	if sessionID == "" {
		return nil, nil, model.NewUnauthorizedError()
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil, model.NewUnauthorizedError()
	}

	identity, err := s.identRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if identity == nil {
		return nil, nil, model.NewUserNotFoundError()
	}

	profile, err := s.profileRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find profile: %w", err)
	}
	if profile == nil {
		return nil, nil, model.NewUserNotFoundError()
	}

	return identity, profile, nil
}

// validateSignUpInput はサインアップ入力を検証し、roleのデフォルトを補完する。
// 同意フラグは任意項目ではなく必須の業務要件のため、明示的にtrueでなければ拒否する。
func validateSignUpInput(input *SignUpInput) error {
	var missing []string
	if strings.TrimSpace(input.Email) == "" {
		missing = append(missing, "email")
	}
	if input.Password == "" {
		missing = append(missing, "password")
	}
	if strings.TrimSpace(input.FullName) == "" {
		missing = append(missing, "fullName")
	}
	if len(missing) > 0 {
		return model.NewValidationError(fmt.Sprintf("必須フィールドが不足しています: %s", strings.Join(missing, ", ")))
	}

	if !input.AgeVerification || !input.DevelopmentConsent {
		return model.NewConsentRequiredError()
	}

	if input.Role == "" {
		input.Role = model.UserRolePrimary
	}
	if !input.Role.IsValid() {
		return model.NewValidationError(fmt.Sprintf("不正な利用者区分です: %s", input.Role))
	}

	return nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
