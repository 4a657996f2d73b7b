package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/hitoshi/bunn/internal/config"
	"github.com/hitoshi/bunn/internal/model"
)

// GitHubProvider はGitHub OAuth2による認証を提供する。
type GitHubProvider struct {
	client oauthClient
}

// NewGitHubProvider はGitHubProviderを生成する。
func NewGitHubProvider(cfg config.OAuthProviderConfig, redirectURI string) *GitHubProvider {
	return &GitHubProvider{client: newOAuthClient(cfg, redirectURI)}
}

// Name はプロバイダー識別子を返す。
func (p *GitHubProvider) Name() string { return "github" }

// AuthorizeURL はGitHubの認可URLを生成する。
func (p *GitHubProvider) AuthorizeURL(state string) string {
	return p.client.authorizeURL(state)
}

// ExchangeCode は認可コードをアクセストークンに交換する。
func (p *GitHubProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	return p.client.exchangeCode(ctx, code)
}

// githubUser はGitHubのユーザー情報エンドポイントのレスポンス。
type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// FetchProfile はGitHubのユーザー情報を取得し正規化する。
// GitHub APIはUser-Agentヘッダーを必須とし、認可は"token"スキームを使う。
func (p *GitHubProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, err := p.client.fetchUserInfo(ctx, map[string]string{
		"Authorization": "token " + accessToken,
		"User-Agent":    "bunn-auth-service",
		"Accept":        "application/vnd.github+json",
	})
	if err != nil {
		return nil, err
	}

	var user githubUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse github user: %w", model.ErrProfileFetchFailed)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("empty id in github user: %w", model.ErrProfileFetchFailed)
	}

	// 表示名未設定のアカウントはloginにフォールバックする
	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &Profile{
		PlatformID: strconv.FormatInt(user.ID, 10),
		Email:      user.Email,
		Name:       name,
		Image:      user.AvatarURL,
	}, nil
}

// compile-time interface check
var _ Provider = (*GitHubProvider)(nil)
