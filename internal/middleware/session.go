// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hitoshi/bunn/internal/model"
	"github.com/hitoshi/bunn/internal/token"
)

// SessionCookieName はセッショントークンを格納するCookieの名前。
const SessionCookieName = "session"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// claimsContextKey はリクエストコンテキストにセッションクレームを格納するためのキー。
var claimsContextKey = contextKey("session_claims")

// SessionDecoder はセッショントークンの検証に必要なインターフェース。
// token.Codecの部分集合として定義する。
type SessionDecoder interface {
	Decode(tokenString string) (*token.SessionClaims, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッショントークンを読み取り、
// 署名と期限を検証するミドルウェアを返す。
// 検証済みクレームをリクエストコンテキストに注入する。
// Cookie不在と検証失敗はどちらも401だが、エラーメッセージは区別する。
func NewSessionMiddleware(decoder SessionDecoder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				// 接続再利用のため、拒否する前にボディを読み捨てる
				io.Copy(io.Discard, r.Body)
				WriteError(w, http.StatusUnauthorized, model.ErrUnauthenticated.Error())
				return
			}

			claims, err := decoder.Decode(cookie.Value)
			if err != nil {
				io.Copy(io.Discard, r.Body)
				WriteError(w, http.StatusUnauthorized, model.ErrInvalidSession.Error())
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext はリクエストコンテキストからセッションクレームを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func ClaimsFromContext(ctx context.Context) (*token.SessionClaims, error) {
	claims, ok := ctx.Value(claimsContextKey).(*token.SessionClaims)
	if !ok || claims == nil {
		return nil, errors.New("session claims not found in context")
	}
	return claims, nil
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	claims, err := ClaimsFromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("user ID not found in context: %w", err)
	}
	return claims.UserID, nil
}

// ContextWithClaims はコンテキストにセッションクレームを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithClaims(ctx context.Context, claims *token.SessionClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}
