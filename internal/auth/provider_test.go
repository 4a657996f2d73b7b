package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/bunn/internal/config"
	"github.com/hitoshi/bunn/internal/model"
)

func TestGitHubProvider_AuthorizeURL_ContainsRequiredParams(t *testing.T) {
	provider := NewGitHubProvider(config.OAuthProviderConfig{
		ClientID:     "test-client-id",
		AuthorizeURL: "https://github.com/login/oauth/authorize",
		Scope:        "read:user user:email",
	}, "http://localhost:8080/auth/github/callback")

	u := provider.AuthorizeURL("test-state-value")

	if u == "" {
		t.Fatal("expected non-empty URL")
	}

	// 必須パラメータの存在を確認
	tests := []struct {
		name     string
		contains string
	}{
		{"client_id", "client_id=test-client-id"},
		{"redirect_uri", "redirect_uri="},
		{"state", "state=test-state-value"},
		{"response_type", "response_type=code"},
		{"scope", "scope="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(u, tt.contains) {
				t.Errorf("URL should contain %q, got %q", tt.contains, u)
			}
		})
	}
}

func TestGitHubProvider_ExchangeCodeAndFetchProfile_Success(t *testing.T) {
	// GitHub Token Endpoint
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		// GitHubはAcceptヘッダーがないとform-encodedで返すため必須
		if accept := r.Header.Get("Accept"); accept != "application/json" {
			t.Errorf("Accept = %q, want application/json", accept)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm() error = %v", err)
		}
		if grant := r.PostFormValue("grant_type"); grant != "authorization_code" {
			t.Errorf("grant_type = %q, want authorization_code", grant)
		}
		if code := r.PostFormValue("code"); code != "test-auth-code" {
			t.Errorf("code = %q, want test-auth-code", code)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "gh-access-token",
			"token_type":   "bearer",
		})
	}))
	defer tokenServer.Close()

	// GitHub User Endpoint
	userServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// GitHub APIは"token"スキームとUser-Agentを要求する
		if auth := r.Header.Get("Authorization"); auth != "token gh-access-token" {
			t.Errorf("Authorization = %q, want %q", auth, "token gh-access-token")
		}
		if ua := r.Header.Get("User-Agent"); ua == "" {
			t.Error("User-Agent header must be set for GitHub API")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         12345,
			"login":      "octocat",
			"name":       "The Octocat",
			"email":      "octocat@example.com",
			"avatar_url": "https://avatars.example.com/u/12345",
		})
	}))
	defer userServer.Close()

	provider := NewGitHubProvider(config.OAuthProviderConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		TokenURL:     tokenServer.URL,
		UserInfoURL:  userServer.URL,
	}, "http://localhost:8080/auth/github/callback")

	ctx := context.Background()
	accessToken, err := provider.ExchangeCode(ctx, "test-auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if accessToken != "gh-access-token" {
		t.Errorf("accessToken = %q, want %q", accessToken, "gh-access-token")
	}

	profile, err := provider.FetchProfile(ctx, accessToken)
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.PlatformID != "12345" {
		t.Errorf("platformID = %q, want %q", profile.PlatformID, "12345")
	}
	if profile.Name != "The Octocat" {
		t.Errorf("name = %q, want %q", profile.Name, "The Octocat")
	}
	if profile.Email != "octocat@example.com" {
		t.Errorf("email = %q, want %q", profile.Email, "octocat@example.com")
	}
}

func TestGitHubProvider_FetchProfile_FallsBackToLogin(t *testing.T) {
	userServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// 表示名未設定のアカウント
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    67890,
			"login": "nameless",
			"name":  "",
		})
	}))
	defer userServer.Close()

	provider := NewGitHubProvider(config.OAuthProviderConfig{
		UserInfoURL: userServer.URL,
	}, "http://localhost:8080/auth/github/callback")

	profile, err := provider.FetchProfile(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.Name != "nameless" {
		t.Errorf("name = %q, want login fallback %q", profile.Name, "nameless")
	}
}

func TestGitHubProvider_ExchangeCode_TokenError(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": "bad_verification_code",
		})
	}))
	defer tokenServer.Close()

	provider := NewGitHubProvider(config.OAuthProviderConfig{
		TokenURL: tokenServer.URL,
	}, "http://localhost:8080/auth/github/callback")

	_, err := provider.ExchangeCode(context.Background(), "expired-code")
	if err == nil {
		t.Fatal("expected error for non-2xx token response")
	}
	if !errors.Is(err, model.ErrTokenExchangeFailed) {
		t.Errorf("error = %v, want ErrTokenExchangeFailed", err)
	}
}

func TestGitHubProvider_ExchangeCode_EmptyAccessToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// 2xxだがaccess_tokenが欠けている
		json.NewEncoder(w).Encode(map[string]interface{}{
			"token_type": "bearer",
		})
	}))
	defer tokenServer.Close()

	provider := NewGitHubProvider(config.OAuthProviderConfig{
		TokenURL: tokenServer.URL,
	}, "http://localhost:8080/auth/github/callback")

	_, err := provider.ExchangeCode(context.Background(), "some-code")
	if !errors.Is(err, model.ErrTokenExchangeFailed) {
		t.Errorf("error = %v, want ErrTokenExchangeFailed", err)
	}
}

func TestGoogleProvider_ExchangeCodeAndFetchProfile_Success(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "google-access-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	}))
	defer tokenServer.Close()

	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer google-access-token" {
			t.Errorf("Authorization = %q, want %q", auth, "Bearer google-access-token")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"sub":     "google-sub-12345",
			"email":   "user@gmail.com",
			"name":    "Google User",
			"picture": "https://lh3.example.com/photo.jpg",
		})
	}))
	defer userInfoServer.Close()

	provider := NewGoogleProvider(config.OAuthProviderConfig{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		TokenURL:     tokenServer.URL,
		UserInfoURL:  userInfoServer.URL,
	}, "http://localhost:8080/auth/google/callback")

	ctx := context.Background()
	accessToken, err := provider.ExchangeCode(ctx, "test-auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}

	profile, err := provider.FetchProfile(ctx, accessToken)
	if err != nil {
		t.Fatalf("FetchProfile() error = %v", err)
	}
	if profile.PlatformID != "google-sub-12345" {
		t.Errorf("platformID = %q, want %q", profile.PlatformID, "google-sub-12345")
	}
	if profile.Email != "user@gmail.com" {
		t.Errorf("email = %q, want %q", profile.Email, "user@gmail.com")
	}
	if profile.Image != "https://lh3.example.com/photo.jpg" {
		t.Errorf("image = %q, want picture URL", profile.Image)
	}
}

func TestGoogleProvider_FetchProfile_MissingSub(t *testing.T) {
	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"email": "user@gmail.com",
		})
	}))
	defer userInfoServer.Close()

	provider := NewGoogleProvider(config.OAuthProviderConfig{
		UserInfoURL: userInfoServer.URL,
	}, "http://localhost:8080/auth/google/callback")

	_, err := provider.FetchProfile(context.Background(), "tok")
	if !errors.Is(err, model.ErrProfileFetchFailed) {
		t.Errorf("error = %v, want ErrProfileFetchFailed", err)
	}
}

func TestGoogleProvider_FetchProfile_ServerError(t *testing.T) {
	userInfoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer userInfoServer.Close()

	provider := NewGoogleProvider(config.OAuthProviderConfig{
		UserInfoURL: userInfoServer.URL,
	}, "http://localhost:8080/auth/google/callback")

	_, err := provider.FetchProfile(context.Background(), "tok")
	if !errors.Is(err, model.ErrProfileFetchFailed) {
		t.Errorf("error = %v, want ErrProfileFetchFailed", err)
	}
}
