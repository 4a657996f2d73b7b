// Package auth はOAuth2認証フローとアイデンティティ解決を提供する。
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/bunn/internal/config"
	"github.com/hitoshi/bunn/internal/model"
)

// Profile はOAuthプロバイダーから取得し正規化したユーザー情報を表す。
type Profile struct {
	PlatformID string
	Email      string
	Name       string
	Image      string
}

// Provider はOAuth2プロバイダーの3操作を抽象化する。
// GitHub・Google等の閉じた集合がこのインターフェースを実装し、
// ルートパラメータで選択される。
type Provider interface {
	// Name はプロバイダー識別子（"github", "google"）を返す。
	Name() string
	// AuthorizeURL は認可エンドポイントのURLを生成する。
	// stateは呼び出し側が生成する。生成されたstateはサーバー側に
	// 保存されず、コールバック時に再検証されない（既知の弱点、§設計メモ）。
	AuthorizeURL(state string) string
	// ExchangeCode は認可コードをアクセストークンに交換する。
	ExchangeCode(ctx context.Context, code string) (string, error)
	// FetchProfile はアクセストークンでユーザー情報を取得し正規化する。
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// outboundTimeout はプロバイダーへの外向きHTTP呼び出しの上限時間。
const outboundTimeout = 10 * time.Second

// oauthClient はプロバイダー実装が共有するHTTP呼び出し部分。
type oauthClient struct {
	config     config.OAuthProviderConfig
	redirectURI string
	httpClient *http.Client
}

func newOAuthClient(cfg config.OAuthProviderConfig, redirectURI string) oauthClient {
	return oauthClient{
		config:      cfg,
		redirectURI: redirectURI,
		httpClient:  &http.Client{Timeout: outboundTimeout},
	}
}

// authorizeURL は共通のクエリパラメータで認可URLを組み立てる。
func (c *oauthClient) authorizeURL(state string) string {
	params := url.Values{
		"client_id":     {c.config.ClientID},
		"redirect_uri":  {c.redirectURI},
		"response_type": {"code"},
		"scope":         {c.config.Scope},
		"state":         {state},
	}
	return c.config.AuthorizeURL + "?" + params.Encode()
}

// exchangeCode は認可コードをアクセストークンに交換する。
// 非2xxレスポンスはmodel.ErrTokenExchangeFailedに対応づけられる。
func (c *oauthClient) exchangeCode(ctx context.Context, code string) (string, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"redirect_uri":  {c.redirectURI},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// GitHubはAcceptを指定しないとform-encodedで返す
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", model.ErrTokenExchangeFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", model.ErrTokenExchangeFailed)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("token endpoint returned status %d: %w", resp.StatusCode, model.ErrTokenExchangeFailed)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", model.ErrTokenExchangeFailed)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in response: %w", model.ErrTokenExchangeFailed)
	}

	return tokenResp.AccessToken, nil
}

// fetchUserInfo はユーザー情報エンドポイントを呼び出しボディを返す。
// 認可ヘッダーの形式はプロバイダーごとに異なるため引数で受け取る。
func (c *oauthClient) fetchUserInfo(ctx context.Context, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create user info request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("user info request failed: %w", model.ErrProfileFetchFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user info response: %w", model.ErrProfileFetchFailed)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("user info endpoint returned status %d: %w", resp.StatusCode, model.ErrProfileFetchFailed)
	}

	return body, nil
}

// NewProviders は設定からプロバイダーの閉じた集合を構築する。
// キーはルートパラメータ{provider}と一致する。
func NewProviders(cfg *config.Config) map[string]Provider {
	callback := func(name string) string {
		return cfg.BaseURL + "/auth/" + name + "/callback"
	}
	return map[string]Provider{
		"github": NewGitHubProvider(cfg.GitHub, callback("github")),
		"google": NewGoogleProvider(cfg.Google, callback("google")),
	}
}
