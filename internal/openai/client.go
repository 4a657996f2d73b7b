// Package openai はOpenAI Chat Completions APIのクライアントを提供する。
// 字幕抽出（画像認識）とテキスト補完の2操作を含む。
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const (
	// defaultEndpoint はOpenAI Chat Completions APIのエンドポイント。
	defaultEndpoint = "https://api.openai.com/v1/chat/completions"

	// subtitleModel は字幕抽出に使用するモデル。
	subtitleModel = "gpt-4o-mini"
	// completionModel は補完のデフォルトモデル。
	completionModel = "gpt-4o"

	// subtitleMaxTokens は字幕抽出の出力上限。字幕は短いテキストのため小さく抑える。
	subtitleMaxTokens = 100
)

// subtitlePrompt は画像底部の日本語字幕のみを抽出させる指示。
const subtitlePrompt = "画像の下部にある日本語字幕のテキストだけを認識して出力してください。他の内容は出力しないでください。字幕がない場合は空文字列を返してください。"

// Client はOpenAI APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
	}
}

// Configured はAPIキーが設定されているかを返す。
// 未設定の場合、OpenAI依存のエンドポイントは利用不可になる。
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractSubtitles は画像から字幕テキストを抽出する。
// imageBase64はJPEG画像のbase64エンコード文字列。
// 戻り値は抽出テキストとOpenAIレスポンスID（利用記録の参照用）。
// 字幕が見つからない場合は空文字列を返す（エラーではない）。
func (c *Client) ExtractSubtitles(ctx context.Context, imageBase64 string) (string, string, error) {
	req := chatRequest{
		Model: subtitleModel,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: subtitlePrompt},
					{Type: "image_url", ImageURL: &imageURL{
						URL: "data:image/jpeg;base64," + imageBase64,
					}},
				},
			},
		},
		MaxTokens: subtitleMaxTokens,
	}
	return c.chat(ctx, req)
}

// Completion はプロンプトに対する補完テキストを返す。
// 戻り値は補完テキストとOpenAIレスポンスID（利用記録の参照用）。
// modelが空の場合はデフォルトモデルを使用する。
func (c *Client) Completion(ctx context.Context, prompt, model string) (string, string, error) {
	if model == "" {
		model = completionModel
	}
	req := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
	}
	return c.chat(ctx, req)
}

// chat はChat Completions APIを呼び出し、最初のchoiceの本文とレスポンスIDを返す。
func (c *Client) chat(ctx context.Context, chatReq chatRequest) (string, string, error) {
	payload, err := json.Marshal(chatReq)
	if err != nil {
		return "", "", fmt.Errorf("リクエストのJSONエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("OpenAI APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("model", chatReq.Model),
		)
		return "", "", fmt.Errorf("OpenAI APIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", "", fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := "unknown error"
		if chatResp.Error != nil {
			msg = chatResp.Error.Message
		}
		c.logger.Error("OpenAI APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("model", chatReq.Model),
		)
		return "", "", fmt.Errorf("OpenAI APIエラー: %s", msg)
	}

	if len(chatResp.Choices) == 0 {
		return "", chatResp.ID, nil
	}
	return chatResp.Choices[0].Message.Content, chatResp.ID, nil
}
