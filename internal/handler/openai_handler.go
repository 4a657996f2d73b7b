package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bunn/internal/middleware"
	"github.com/hitoshi/bunn/internal/model"
)

// maxImageSize はアップロード画像の上限サイズ（10MB）。
const maxImageSize = 10 << 20

// OpenAIClientInterface はOpenAIハンドラーが必要とするクライアントインターフェース。
// 各操作は結果本文とOpenAIレスポンスIDを返す。
type OpenAIClientInterface interface {
	Configured() bool
	ExtractSubtitles(ctx context.Context, imageBase64 string) (string, string, error)
	Completion(ctx context.Context, prompt, model string) (string, string, error)
}

// QuotaGateInterface は従量制アクションの実行可否判定と記録のインターフェース。
// quota.Gateの部分集合として定義する。
type QuotaGateInterface interface {
	Check(ctx context.Context, userID string, action model.ActionType) error
	Record(ctx context.Context, userID string, action model.ActionType, relatedID, relatedType string) error
}

// QuotaMetrics はクォータ拒否のメトリクス記録に必要なインターフェース。
// metrics.Collectorの部分集合として定義する。
type QuotaMetrics interface {
	RecordQuotaDenial(action string)
}

// OpenAIHandler はOpenAI依存エンドポイントのHTTPハンドラー。
// すべてのエンドポイントがクォータゲートを通過する。
type OpenAIHandler struct {
	client  OpenAIClientInterface
	gate    QuotaGateInterface
	metrics QuotaMetrics
}

// NewOpenAIHandler はOpenAIHandlerを生成する。
func NewOpenAIHandler(client OpenAIClientInterface, gate QuotaGateInterface, metrics QuotaMetrics) *OpenAIHandler {
	return &OpenAIHandler{
		client:  client,
		gate:    gate,
		metrics: metrics,
	}
}

// checkQuota はクォータ判定を行い、拒否された場合はメトリクスに記録する。
func (h *OpenAIHandler) checkQuota(ctx context.Context, userID string, action model.ActionType) error {
	err := h.gate.Check(ctx, userID, action)
	if errors.Is(err, model.ErrQuotaExceeded) || errors.Is(err, model.ErrNoEntitlement) {
		h.metrics.RecordQuotaDenial(string(action))
	}
	return err
}

// ExtractSubtitles は画像から字幕テキストを抽出する。
// POST /api/openai/extract-subtitles（multipart/form-data、フィールド名: image）
// クォータ判定 → OpenAI呼び出し → 成功時のみ利用記録、の順で処理する。
func (h *OpenAIHandler) ExtractSubtitles(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.ClaimsFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, model.ErrUnauthenticated.Error())
		return
	}

	if !h.client.Configured() {
		middleware.WriteError(w, http.StatusBadRequest, "OpenAI APIキーが設定されていません")
		return
	}

	if err := h.checkQuota(r.Context(), claims.UserID, model.ActionImageOCR); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "リクエストの形式が不正です")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "画像ファイルが見つかりません")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "画像の読み取りに失敗しました")
		return
	}

	subtitles, responseID, err := h.client.ExtractSubtitles(r.Context(), base64.StdEncoding.EncodeToString(imageData))
	if err != nil {
		slog.Error("subtitle extraction failed",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	// 失敗した呼び出しは枠を消費しない。記録は成功後のみ。
	if err := h.gate.Record(r.Context(), claims.UserID, model.ActionImageOCR, responseID, model.RelatedTypeOpenAIResponse); err != nil {
		slog.Error("failed to record usage",
			slog.String("user_id", claims.UserID),
			slog.String("action", string(model.ActionImageOCR)),
			slog.String("error", err.Error()),
		)
	}

	writeSuccess(w, map[string]any{"subtitles": subtitles})
}

// completionRequest はPOST /api/openai/completionのリクエストボディ。
type completionRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

// Completion はプロンプトに対する補完テキストを返す。
// POST /api/openai/completion
func (h *OpenAIHandler) Completion(w http.ResponseWriter, r *http.Request) {
	claims, err := middleware.ClaimsFromContext(r.Context())
	if err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, model.ErrUnauthenticated.Error())
		return
	}

	if !h.client.Configured() {
		middleware.WriteError(w, http.StatusInternalServerError, "OpenAI APIキーが設定されていません")
		return
	}

	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "リクエストの形式が不正です")
		return
	}
	if req.Prompt == "" {
		middleware.WriteError(w, http.StatusBadRequest, "promptパラメータが必要です")
		return
	}

	if err := h.checkQuota(r.Context(), claims.UserID, model.ActionTextTranslation); err != nil {
		writeDomainError(w, err)
		return
	}

	result, responseID, err := h.client.Completion(r.Context(), req.Prompt, req.Model)
	if err != nil {
		slog.Error("completion failed",
			slog.String("user_id", claims.UserID),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
		return
	}

	if err := h.gate.Record(r.Context(), claims.UserID, model.ActionTextTranslation, responseID, model.RelatedTypeOpenAIResponse); err != nil {
		slog.Error("failed to record usage",
			slog.String("user_id", claims.UserID),
			slog.String("action", string(model.ActionTextTranslation)),
			slog.String("error", err.Error()),
		)
	}

	writeSuccess(w, map[string]any{"data": result})
}
