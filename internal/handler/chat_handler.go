package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/hanashi/internal/chat"
	"github.com/hitoshi/hanashi/internal/middleware"
	"github.com/hitoshi/hanashi/internal/model"
)

// ChatServiceInterface はチャットハンドラーが必要とするサービスインターフェース。
type ChatServiceInterface interface {
	// SendMessage はユーザーのメッセージを保存し、返信を生成して保存する。
	SendMessage(ctx context.Context, userID string, content string) (*chat.SendMessageResult, error)
	// ListMessages はユーザーの全メッセージを作成日時の昇順で返す。
	ListMessages(ctx context.Context, userID string) ([]*model.Message, error)
}

// ChatHandler はメッセージ交換のHTTPハンドラー。
type ChatHandler struct {
	service ChatServiceInterface
}

// NewChatHandler はChatHandlerを生成する。
func NewChatHandler(service ChatServiceInterface) *ChatHandler {
	return &ChatHandler{
		service: service,
	}
}

// sendMessageRequest はメッセージ送信リクエストのボディ。
type sendMessageRequest struct {
	Content string `json:"content"`
}

// messageResponse はメッセージ1件のAPIレスポンス。
type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// sendMessageResponse はメッセージ送信のAPIレスポンス。
// 保存されたユーザーメッセージとアシスタントの返信を含む。
type sendMessageResponse struct {
	UserMessage      messageResponse `json:"user_message"`
	AssistantMessage messageResponse `json:"assistant_message"`
}

// listMessagesResponse はメッセージ一覧のAPIレスポンス。
type listMessagesResponse struct {
	Messages []messageResponse `json:"messages"`
}

// SendMessage はメッセージ送信を処理する。
// POST /api/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	result, err := h.service.SendMessage(r.Context(), userID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sendMessageResponse{
		UserMessage:      toMessageResponse(result.UserMessage),
		AssistantMessage: toMessageResponse(result.AssistantMessage),
	})
}

// ListMessages はメッセージ一覧取得を処理する。
// GET /api/messages
// メッセージは作成日時の昇順で返す。
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	messages, err := h.service.ListMessages(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := listMessagesResponse{
		Messages: make([]messageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, toMessageResponse(m))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// toMessageResponse はmodel.MessageからAPIレスポンスに変換する。
func toMessageResponse(message *model.Message) messageResponse {
	return messageResponse{
		ID:        message.ID,
		Role:      string(message.Role),
		Content:   message.Content,
		CreatedAt: message.CreatedAt,
	}
}
