// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/bunn/internal/middleware"
	"github.com/hitoshi/bunn/internal/model"
)

// writeSuccess は{success: true}に任意のフィールドを合成したJSONレスポンスを書き込む。
func writeSuccess(w http.ResponseWriter, payload map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}

// writeJSON は任意のステータスとペイロードでJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// statusForError はドメインエラーをHTTPステータスコードに対応づける。
// 未知のエラーは500になる。
func statusForError(err error) int {
	switch {
	case errors.Is(err, model.ErrCSRFInvalid):
		return http.StatusForbidden
	case errors.Is(err, model.ErrMissingCode),
		errors.Is(err, model.ErrTokenExchangeFailed),
		errors.Is(err, model.ErrProfileFetchFailed):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthenticated),
		errors.Is(err, model.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrNoEntitlement):
		return http.StatusForbidden
	case errors.Is(err, model.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError はドメインエラーを統一フォーマットで書き込む。
// 500になるエラーは詳細を隠し、一般的なメッセージに置き換える。
func writeDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		middleware.WriteInternalServerError(w)
		return
	}
	middleware.WriteError(w, status, err.Error())
}
