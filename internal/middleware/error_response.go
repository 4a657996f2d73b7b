package middleware

import (
	"encoding/json"
	"net/http"
)

// errorBody はAPIエラーレスポンスの統一フォーマット。
// 成功レスポンスと対になる{success: false, error: メッセージ}の形。
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteError は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorBody{Success: false, Error: message})
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteError(w, http.StatusInternalServerError, "内部エラーが発生しました")
}
