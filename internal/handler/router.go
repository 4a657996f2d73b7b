package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bunn/internal/middleware"
)

// HealthPinger はヘルスチェック時のDB疎通確認。*sql.DBの部分集合として定義する。
type HealthPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ヘルスチェック（nilの場合はDB疎通確認を省略する）
	HealthChecker HealthPinger

	// ミドルウェア依存
	SessionDecoder    middleware.SessionDecoder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HTTPMetrics       middleware.HTTPMetrics
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	CSRFIssuer  CSRFIssuer
	AuthMetrics LoginMetrics
	AuthConfig  AuthHandlerConfig

	// ユーザー情報
	Entitlements EntitlementChecker
	UsageCounter UsageCounter

	// OpenAI
	OpenAIClient OpenAIClientInterface
	QuotaGate    QuotaGateInterface
	QuotaMetrics QuotaMetrics

	// Prometheusスクレイプ用ハンドラー（nilの場合は/metricsを公開しない）
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → (Session → RateLimit)
//
// 認証ルート（/auth/*）はセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.CSRFIssuer, deps.AuthMetrics, deps.AuthConfig)
	userHandler := NewUserHandler(deps.Entitlements, deps.UsageCounter)
	openaiHandler := NewOpenAIHandler(deps.OpenAIClient, deps.QuotaGate, deps.QuotaMetrics)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(r.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/csrf-token", authHandler.CSRFToken)
		r.Get("/{provider}/login", authHandler.BeginLogin)
		r.Get("/{provider}/callback", authHandler.Callback)
	})

	// ログアウトはCookieの削除だけなので、セッションが期限切れでも成功させる
	r.Get("/api/user/logout", authHandler.Logout)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionDecoder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー情報
		r.Get("/api/user/info", userHandler.Info)

		// OpenAI依存エンドポイント（専用レート制限を追加）
		r.Route("/api/openai", func(r chi.Router) {
			r.Use(deps.RateLimiter.OpenAIMiddleware())
			r.Post("/extract-subtitles", openaiHandler.ExtractSubtitles)
			r.Post("/completion", openaiHandler.Completion)
		})
	})

	return r
}
