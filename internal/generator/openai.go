package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/horobot/horobot/internal/model"
)

const (
	// defaultOpenAIBaseURL はOpenAI互換APIの既定エンドポイント。
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	// maxCompletionBody はレスポンスボディの読み取り上限（1MB）。
	maxCompletionBody = 1 << 20
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// OpenAIConfig はチャット補完APIの呼び出しパラメータ。
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// OpenAIClient はOpenAI互換のチャット補完APIクライアント。
type OpenAIClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     OpenAIConfig
}

// NewOpenAIClient はOpenAIClientを生成する。
func NewOpenAIClient(httpClient *http.Client, logger *slog.Logger, config OpenAIConfig) *OpenAIClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = defaultOpenAIBaseURL
	}
	config.BaseURL = strings.TrimRight(strings.TrimSpace(config.BaseURL), "/")
	return &OpenAIClient{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
	}
}

// Complete はプロンプトを1件のユーザーメッセージとして送り、応答本文を返す。
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	payload := chatCompletionRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.config.MaxTokens,
		Temperature: c.config.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("リクエストの構築に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "horobot/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("チャット補完APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxCompletionBody))
	if err != nil {
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var completion chatCompletionResponse
	decodeErr := json.Unmarshal(respBody, &completion)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := strings.TrimSpace(completion.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		c.logger.Error("チャット補完APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("message", msg),
		)
		return "", fmt.Errorf("チャット補完APIがステータス %d を返しました: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", decodeErr)
	}
	if len(completion.Choices) == 0 {
		return "", model.ErrEmptyResponse
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", model.ErrEmptyResponse
	}
	return content, nil
}
