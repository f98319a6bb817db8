// Package chat はメッセージ交換のビジネスロジックを提供する。
//
// ユーザーのメッセージを保存し、会話履歴を添えて言語モデルに補完を依頼し、
// 得られた返信を保存して両方を返す。ユーザーメッセージの保存後に補完が
// 失敗した場合でも、保存済みのユーザーメッセージはそのまま残る。
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/hanashi/internal/llm"
	"github.com/hitoshi/hanashi/internal/model"
	"github.com/hitoshi/hanashi/internal/repository"
	"github.com/hitoshi/hanashi/internal/security"
)

// MetricsRecorder はチャット処理のメトリクス記録のインターフェース。
// nilの場合は記録をスキップする。
type MetricsRecorder interface {
	// RecordMessagePersisted はメッセージ保存成功をロール別に記録する。
	RecordMessagePersisted(role string)
	// RecordCompletionDuration は補完APIの処理時間（秒）を記録する。
	RecordCompletionDuration(seconds float64)
	// RecordCompletionFailure は補完APIの失敗を記録する。
	RecordCompletionFailure()
}

// ServiceConfig はチャットサービスの設定。
type ServiceConfig struct {
	// HistoryLimit は補完リクエストに含める直近メッセージ数。
	// 0の場合は今回のメッセージのみを送信する。
	HistoryLimit int
}

// SendMessageResult はメッセージ送信の結果。
// 保存されたユーザーメッセージとアシスタントの返信を含む。
type SendMessageResult struct {
	UserMessage      *model.Message
	AssistantMessage *model.Message
}

// Service はメッセージ交換のビジネスロジックを実装する。
type Service struct {
	messageRepo repository.MessageRepository
	completer   llm.Completer
	sanitizer   security.ContentSanitizerService
	metrics     MetricsRecorder
	config      ServiceConfig
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewService(
	messageRepo repository.MessageRepository,
	completer llm.Completer,
	sanitizer security.ContentSanitizerService,
	metrics MetricsRecorder,
	config ServiceConfig,
) *Service {
	return &Service{
		messageRepo: messageRepo,
		completer:   completer,
		sanitizer:   sanitizer,
		metrics:     metrics,
		config:      config,
	}
}

// SendMessage はユーザーのメッセージを処理して返信を生成する。
//
// 処理の流れ:
//  1. 本文の検証（空白のみの本文はエラー）とサニタイズ
//  2. ユーザーメッセージの保存
//  3. 直近の会話履歴を添えて補完APIを呼び出す
//  4. 返信をアシスタントメッセージとして保存
//  5. 両方のメッセージを返す
//
// 手順3以降で失敗しても、手順2で保存したユーザーメッセージは削除しない。
func (s *Service) SendMessage(ctx context.Context, userID string, content string) (*SendMessageResult, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, model.NewEmptyMessageError()
	}

	sanitized := s.sanitizer.Sanitize(trimmed)
	if strings.TrimSpace(sanitized) == "" {
		// サニタイズで本文が消えた場合も空メッセージとして扱う
		return nil, model.NewEmptyMessageError()
	}

	userMessage := &model.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      model.MessageRoleUser,
		Content:   sanitized,
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.Create(ctx, userMessage); err != nil {
		slog.Error("failed to persist user message",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}
	s.recordMessagePersisted(string(model.MessageRoleUser))

	history, err := s.buildHistory(ctx, userID, userMessage)
	if err != nil {
		// 履歴取得に失敗しても今回のメッセージのみで補完は継続できる
		slog.Warn("failed to load conversation history, falling back to current message only",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		history = []llm.Message{{Role: string(model.MessageRoleUser), Content: userMessage.Content}}
	}

	start := time.Now()
	replyText, err := s.completer.Complete(ctx, history)
	if err != nil {
		s.recordCompletionFailure()
		slog.Error("completion failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewCompletionError()
	}
	s.recordCompletionDuration(time.Since(start).Seconds())

	assistantMessage := &model.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      model.MessageRoleAssistant,
		Content:   replyText,
		CreatedAt: time.Now(),
	}
	if err := s.messageRepo.Create(ctx, assistantMessage); err != nil {
		slog.Error("failed to persist assistant message",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}
	s.recordMessagePersisted(string(model.MessageRoleAssistant))

	return &SendMessageResult{
		UserMessage:      userMessage,
		AssistantMessage: assistantMessage,
	}, nil
}

// ListMessages はユーザーの全メッセージを作成日時の昇順で返す。
func (s *Service) ListMessages(ctx context.Context, userID string) ([]*model.Message, error) {
	messages, err := s.messageRepo.ListByUserID(ctx, userID)
	if err != nil {
		slog.Error("failed to list messages",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewPersistenceError()
	}
	return messages, nil
}

// buildHistory は補完リクエストに渡す会話履歴を構築する。
// HistoryLimitが0の場合は今回のメッセージのみを返す。
// 直近の履歴には保存済みの今回のメッセージ自身も含まれる。
func (s *Service) buildHistory(ctx context.Context, userID string, current *model.Message) ([]llm.Message, error) {
	if s.config.HistoryLimit <= 0 {
		return []llm.Message{{Role: string(current.Role), Content: current.Content}}, nil
	}

	recent, err := s.messageRepo.ListRecentByUserID(ctx, userID, s.config.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent messages: %w", err)
	}

	history := make([]llm.Message, 0, len(recent)+1)
	for _, m := range recent {
		history = append(history, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	// 保存直後の読み取りで今回のメッセージが取得できていない場合に備える
	if len(recent) == 0 || recent[len(recent)-1].ID != current.ID {
		history = append(history, llm.Message{Role: string(current.Role), Content: current.Content})
	}
	return history, nil
}

func (s *Service) recordMessagePersisted(role string) {
	if s.metrics != nil {
		s.metrics.RecordMessagePersisted(role)
	}
}

func (s *Service) recordCompletionDuration(seconds float64) {
	if s.metrics != nil {
		s.metrics.RecordCompletionDuration(seconds)
	}
}

func (s *Service) recordCompletionFailure() {
	if s.metrics != nil {
		s.metrics.RecordCompletionFailure()
	}
}
