// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/bunn/internal/model"
)

// ErrDuplicateIdentity は(provider, platform_id)のユニーク制約違反を表す。
// 同一プラットフォームIDの同時初回ログインが競合した場合に返る。
// 呼び出し側は既存行を再読込して回復する。
var ErrDuplicateIdentity = errors.New("identity already exists")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// (provider, platform_id)のユニーク制約違反の場合はErrDuplicateIdentityを返す。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndPlatformID はproviderとplatform_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndPlatformID(ctx context.Context, provider, platformID string) (*model.Identity, error)
}

// SubscriptionRepository はサブスクリプションデータの読み取りインターフェース。
// 行の作成・更新は外部の課金コラボレーターが担う。
type SubscriptionRepository interface {
	// HasActiveSubscription はactiveかつend_timeが未来の行が存在するかを返す。
	HasActiveSubscription(ctx context.Context, userID string, now time.Time) (bool, error)

	// FindByUserID はユーザーの最新のサブスクリプション行を取得する。
	// 見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Subscription, error)
}

// UsageLogRepository は利用記録の永続化インターフェース。追記のみ。
type UsageLogRepository interface {
	// Create は利用記録を1行追加する。
	Create(ctx context.Context, entry *model.UsageLogEntry) error

	// CountSince は指定時刻以降の(user, action)の利用件数を返す。
	CountSince(ctx context.Context, userID string, action model.ActionType, since time.Time) (int, error)

	// CountsByActionSince は指定時刻以降のユーザーの利用件数をアクション種別ごとに返す。
	// 利用のないアクション種別はマップに含まれない。
	CountsByActionSince(ctx context.Context, userID string, since time.Time) (map[model.ActionType]int, error)
}
