package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bunn/internal/model"
	"github.com/hitoshi/bunn/internal/repository"
)

// SessionEncoder はセッショントークンの発行に必要なインターフェース。
// token.Codecの部分集合として定義する。
type SessionEncoder interface {
	Encode(user *model.ResolvedUser, now time.Time) (string, error)
}

// Service は認証フローのオーケストレーションとアイデンティティ解決を提供する。
type Service struct {
	providers map[string]Provider
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
	subRepo   repository.SubscriptionRepository
	encoder   SessionEncoder
}

// NewService はServiceを生成する。
func NewService(
	providers map[string]Provider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	subRepo repository.SubscriptionRepository,
	encoder SessionEncoder,
) *Service {
	return &Service{
		providers: providers,
		userRepo:  userRepo,
		identRepo: identRepo,
		subRepo:   subRepo,
		encoder:   encoder,
	}
}

// Provider は名前でプロバイダーを引く。未対応の名前はfalseを返す。
func (s *Service) Provider(name string) (Provider, bool) {
	p, ok := s.providers[name]
	return p, ok
}

// HandleCallback はOAuthコールバックを処理し、署名済みセッショントークンを返す。
// 状態遷移: CALLBACK → TOKEN_EXCHANGED → PROFILE_FETCHED → IDENTITY_RESOLVED
// → SESSION_ISSUED。どのステップも失敗すると型付きエラーで即座に中断し、
// リトライは行わない。ユーザー行の作成はトークン発行より必ず先に完了する。
func (s *Service) HandleCallback(ctx context.Context, providerName, code string) (string, error) {
	if code == "" {
		return "", model.ErrMissingCode
	}

	provider, ok := s.providers[providerName]
	if !ok {
		return "", fmt.Errorf("unsupported provider: %s", providerName)
	}

	accessToken, err := provider.ExchangeCode(ctx, code)
	if err != nil {
		return "", err
	}

	profile, err := provider.FetchProfile(ctx, accessToken)
	if err != nil {
		return "", err
	}

	resolved, err := s.Resolve(ctx, provider.Name(), profile)
	if err != nil {
		return "", err
	}

	sessionToken, err := s.encoder.Encode(resolved, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to encode session token: %w", err)
	}

	return sessionToken, nil
}

// Resolve は(provider, platform_id)からローカルユーザーをget-or-createし、
// 現時点のエンタイトルメントと合成して返す。
// 未登録の場合はユーザーとidentityを同一トランザクションで作成する。
// 同一プラットフォームIDの同時初回ログインが競合した場合、後着の挿入は
// ユニーク制約違反になるが、既存行の再読込で回復し、エラーは外に出さない。
func (s *Service) Resolve(ctx context.Context, providerName string, profile *Profile) (*model.ResolvedUser, error) {
	identity, err := s.identRepo.FindByProviderAndPlatformID(ctx, providerName, profile.PlatformID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var user *model.User

	if identity != nil {
		user, err = s.userRepo.FindByID(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("identity %s references missing user %s", identity.ID, identity.UserID)
		}
		slog.Info("existing user logged in",
			slog.String("user_id", user.ID),
			slog.String("provider", providerName),
		)
	} else {
		user, err = s.createUser(ctx, providerName, profile)
		if err != nil {
			return nil, err
		}
	}

	hasSubscription, err := s.subRepo.HasActiveSubscription(ctx, user.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to read subscription status: %w", err)
	}

	return &model.ResolvedUser{
		UserID:          user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Profile:         user.Profile,
		HasSubscription: hasSubscription,
	}, nil
}

// createUser は新規ユーザーとidentityを作成する。
// 挿入が(provider, platform_id)のユニーク制約に弾かれた場合は
// 並行する初回ログインに先を越されたということなので、既存行を読み直す。
func (s *Service) createUser(ctx context.Context, providerName string, profile *Profile) (*model.User, error) {
	now := time.Now()

	newUser := &model.User{
		ID:        uuid.New().String(),
		Email:     profile.Email,
		Name:      profile.Name,
		Image:     profile.Image,
		Profile:   defaultAvatar(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	newIdentity := &model.Identity{
		ID:         uuid.New().String(),
		UserID:     newUser.ID,
		Provider:   providerName,
		PlatformID: profile.PlatformID,
		CreatedAt:  now,
	}

	err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity)
	if err == nil {
		slog.Info("new user created",
			slog.String("user_id", newUser.ID),
			slog.String("provider", providerName),
		)
		return newUser, nil
	}

	if !errors.Is(err, repository.ErrDuplicateIdentity) {
		return nil, fmt.Errorf("failed to create user and identity: %w", err)
	}

	slog.Info("concurrent first login detected, re-reading existing user",
		slog.String("provider", providerName),
	)

	identity, err := s.identRepo.FindByProviderAndPlatformID(ctx, providerName, profile.PlatformID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read identity after conflict: %w", err)
	}
	if identity == nil {
		return nil, fmt.Errorf("identity missing after duplicate conflict")
	}

	user, err := s.userRepo.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read user after conflict: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user missing after duplicate conflict")
	}

	return user, nil
}

// GenerateState はCSRF対策用のランダムなstate値を生成する。
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// defaultAvatar は新規ユーザーのデフォルトアバター参照をランダムに選ぶ。
// /assets/profiles/01.png 〜 08.png のいずれか。
func defaultAvatar() string {
	n, err := rand.Int(rand.Reader, big.NewInt(8))
	if err != nil {
		return "/assets/profiles/01.png"
	}
	return fmt.Sprintf("/assets/profiles/0%d.png", n.Int64()+1)
}
