// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// OAuthProviderConfig は1つのOAuth2プロバイダーの設定を保持する。
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	Scope        string
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// コンポーネントはグローバル状態を参照せず、必要な値をコンストラクタで受け取る。
type Config struct {
	// Database
	DatabaseURL string

	// OAuth
	GitHub OAuthProviderConfig
	Google OAuthProviderConfig

	// Session
	JWTSecret     string
	SessionMaxAge int // セッショントークンとCookieの有効期間（秒）

	// CSRF
	CSRFTokenMaxAge int // CSRFトークンCookieの有効期間（秒）

	// Quota
	DailyFreeLimit int // 非課金ユーザーの1アクション種別あたりの日次無料枠

	// OpenAI
	OpenAIAPIKey  string
	OpenAITimeout time.Duration

	// Rate Limit
	RateLimitGeneral int // req/min/user

	// Server
	ServerPort string
	BaseURL    string // OAuthコールバックURLの組み立てに使うAPI自身のURL

	// Front-end
	FrontendBaseURL string // コールバック完了後のリダイレクト先

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.FrontendBaseURL = os.Getenv("FRONTEND_BASE_URL")
	if cfg.FrontendBaseURL == "" {
		missing = append(missing, "FRONTEND_BASE_URL")
	}

	cfg.GitHub = OAuthProviderConfig{
		ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		AuthorizeURL: getEnvString("GITHUB_AUTHORIZE_URL", "https://github.com/login/oauth/authorize"),
		TokenURL:     getEnvString("GITHUB_TOKEN_URL", "https://github.com/login/oauth/access_token"),
		UserInfoURL:  getEnvString("GITHUB_USERINFO_URL", "https://api.github.com/user"),
		Scope:        "read:user user:email",
	}
	if cfg.GitHub.ClientID == "" {
		missing = append(missing, "GITHUB_CLIENT_ID")
	}
	if cfg.GitHub.ClientSecret == "" {
		missing = append(missing, "GITHUB_CLIENT_SECRET")
	}

	cfg.Google = OAuthProviderConfig{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		AuthorizeURL: getEnvString("GOOGLE_AUTHORIZE_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
		TokenURL:     getEnvString("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
		UserInfoURL:  getEnvString("GOOGLE_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo"),
		Scope:        "openid email profile",
	}
	if cfg.Google.ClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if cfg.Google.ClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 7*24*60*60)
	cfg.CSRFTokenMaxAge = getEnvInt("CSRF_TOKEN_MAX_AGE", 60)
	cfg.DailyFreeLimit = getEnvInt("DAILY_FREE_LIMIT", 20)
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAITimeout = getEnvDuration("OPENAI_TIMEOUT", 60*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
