// Package llm はOpenAI互換のchat completions APIクライアントを提供する。
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// defaultBaseURL はOpenAI APIのデフォルトのベースURL。
const defaultBaseURL = "https://api.openai.com/v1"

// Message は補完リクエストに含める1件の発話を表す。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer は言語モデルへの補完リクエストのインターフェース。
// チャットサービスからはこの抽象を通じて利用する。
type Completer interface {
	// Complete は会話履歴を渡して応答テキストを取得する。
	// 応答が空の場合はエラーを返す（空応答は有効な返信として扱わない）。
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	APIKey  string
	BaseURL string // 空の場合はOpenAIの本番エンドポイント
	Model   string
}

// Client はOpenAI互換のchat completions APIを呼び出すクライアント。
// ストリーミングは使用せず、応答全体を1レスポンスで受け取る。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     ClientConfig
}

// NewClient はClientの新しいインスタンスを生成する。
// タイムアウトはhttpClient側で設定する。
func NewClient(httpClient *http.Client, logger *slog.Logger, config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
	}
}

// chatCompletionRequest はchat completions APIのリクエストボディ。
type chatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// chatCompletionResponse はchat completions APIのレスポンスボディ。
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// apiError はchat completions APIが返すエラーオブジェクト。
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete は会話履歴を渡して応答テキストを取得する。
// HTTPエラー、APIエラー、空応答はいずれもエラーとして返す。
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages must not be empty")
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model:    c.config.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("completion API call failed",
			slog.String("error", err.Error()),
			slog.Int("message_count", len(messages)),
		)
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("completion API returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("completion API returned status %d", resp.StatusCode)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("completion API error: %s", parsed.Error.Message)
	}

	// 空応答は有効な返信ではなく失敗として扱う
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("completion API returned no usable response text")
	}

	return parsed.Choices[0].Message.Content, nil
}

// compile-time interface check
var _ Completer = (*Client)(nil)
