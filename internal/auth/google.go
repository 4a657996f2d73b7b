package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/bunn/internal/config"
	"github.com/hitoshi/bunn/internal/model"
)

// GoogleProvider はGoogle OAuth2（OpenID Connect）による認証を提供する。
type GoogleProvider struct {
	client oauthClient
}

// NewGoogleProvider はGoogleProviderを生成する。
func NewGoogleProvider(cfg config.OAuthProviderConfig, redirectURI string) *GoogleProvider {
	return &GoogleProvider{client: newOAuthClient(cfg, redirectURI)}
}

// Name はプロバイダー識別子を返す。
func (p *GoogleProvider) Name() string { return "google" }

// AuthorizeURL はGoogleの認可URLを生成する。
func (p *GoogleProvider) AuthorizeURL(state string) string {
	return p.client.authorizeURL(state)
}

// ExchangeCode は認可コードをアクセストークンに交換する。
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	return p.client.exchangeCode(ctx, code)
}

// googleUserInfo はGoogleのOpenID Connect userinfoエンドポイントのレスポンス。
type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// FetchProfile はGoogleのユーザー情報を取得し正規化する。
func (p *GoogleProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	body, err := p.client.fetchUserInfo(ctx, map[string]string{
		"Authorization": "Bearer " + accessToken,
	})
	if err != nil {
		return nil, err
	}

	var user googleUserInfo
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse google user info: %w", model.ErrProfileFetchFailed)
	}
	if user.Sub == "" {
		return nil, fmt.Errorf("empty sub in google user info: %w", model.ErrProfileFetchFailed)
	}

	return &Profile{
		PlatformID: user.Sub,
		Email:      user.Email,
		Name:       user.Name,
		Image:      user.Picture,
	}, nil
}

// compile-time interface check
var _ Provider = (*GoogleProvider)(nil)
