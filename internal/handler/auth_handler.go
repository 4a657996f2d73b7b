package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bunn/internal/auth"
	"github.com/hitoshi/bunn/internal/middleware"
	"github.com/hitoshi/bunn/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Provider(name string) (auth.Provider, bool)
	HandleCallback(ctx context.Context, providerName, code string) (string, error)
}

// CSRFIssuer はCSRFトークンの発行と検証に必要なインターフェース。
// csrf.Issuerの部分集合として定義する。
type CSRFIssuer interface {
	Issue(w http.ResponseWriter) (string, error)
	Verify(w http.ResponseWriter, r *http.Request) error
}

// LoginMetrics はログイン結果のメトリクス記録に必要なインターフェース。
// metrics.Collectorの部分集合として定義する。
type LoginMetrics interface {
	RecordLoginSuccess(provider string)
	RecordLoginFailure(provider string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	FrontendBaseURL string // コールバック完了後のリダイレクト先
	CookieDomain    string
	CookieSecure    bool
	SessionMaxAge   int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	csrf    CSRFIssuer
	metrics LoginMetrics
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, csrf CSRFIssuer, metrics LoginMetrics, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		csrf:    csrf,
		metrics: metrics,
		config:  config,
	}
}

// CSRFToken はCSRFトークンを発行する。
// GET /auth/csrf-token
// トークンはCookie（httpOnly）とレスポンスボディの両方で返す。
// クライアントはボディの値をX-CSRF-Tokenヘッダーで送り返す。
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.csrf.Issue(w)
	if err != nil {
		slog.Error("failed to issue csrf token", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}

// BeginLogin はOAuthフローを開始し、認可URLをJSONで返す。
// GET /auth/{provider}/login
// CSRF検証が最初に走り、トークンは結果にかかわらずこの時点で消費される。
// リダイレクトはサーバーではなくクライアントが行う。
func (h *AuthHandler) BeginLogin(w http.ResponseWriter, r *http.Request) {
	if err := h.csrf.Verify(w, r); err != nil {
		middleware.WriteError(w, http.StatusForbidden, model.ErrCSRFInvalid.Error())
		return
	}

	providerName := chi.URLParam(r, "provider")
	provider, ok := h.service.Provider(providerName)
	if !ok {
		middleware.WriteError(w, http.StatusNotFound, "未対応のプロバイダーです")
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		slog.Error("failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeSuccess(w, map[string]any{
		"authUrl": provider.AuthorizeURL(state),
	})
}

// Callback はOAuthコールバックを処理する。
// GET /auth/{provider}/callback?code=xxx
// 成功するとセッションCookieを設定し、フロントエンドにリダイレクトする。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	providerName := chi.URLParam(r, "provider")
	if _, ok := h.service.Provider(providerName); !ok {
		middleware.WriteError(w, http.StatusNotFound, "未対応のプロバイダーです")
		return
	}
	code := r.URL.Query().Get("code")

	sessionToken, err := h.service.HandleCallback(r.Context(), providerName, code)
	if err != nil {
		slog.Error("oauth callback failed",
			slog.String("provider", providerName),
			slog.String("error", err.Error()),
		)
		h.metrics.RecordLoginFailure(providerName)
		writeDomainError(w, err)
		return
	}
	h.metrics.RecordLoginSuccess(providerName)

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sessionToken,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})

	http.Redirect(w, r, h.config.FrontendBaseURL, http.StatusFound)
}

// Logout はセッションCookieをクリアする。
// GET /api/user/logout
// トークン自体は期限が切れるまで有効なまま（失効機構は持たない）。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
	writeSuccess(w, map[string]any{"message": "ログアウトしました"})
}
