package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/bunn/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用したサブスクリプションリポジトリ。
// 読み取り専用。行の作成・更新は課金コラボレーターが行う。
type PostgresSubscriptionRepo struct {
	db *sql.DB
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// HasActiveSubscription はactiveかつend_timeが未来の行が存在するかを返す。
func (r *PostgresSubscriptionRepo) HasActiveSubscription(ctx context.Context, userID string, now time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM user_subscriptions
		     WHERE user_id = $1 AND active = TRUE AND end_time > $2
		 )`,
		userID, now,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("サブスクリプション状態の取得に失敗しました: %w", err)
	}
	return exists, nil
}

// FindByUserID はユーザーの最新のサブスクリプション行を取得する。
// 見つからない場合はnilを返す。チェック時に参照される有効行は高々1つ。
func (r *PostgresSubscriptionRepo) FindByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	sub := &model.Subscription{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, start_time, end_time, active, created_at, updated_at
		 FROM user_subscriptions WHERE user_id = $1
		 ORDER BY end_time DESC LIMIT 1`,
		userID,
	).Scan(&sub.ID, &sub.UserID, &sub.StartTime, &sub.EndTime, &sub.Active, &sub.CreatedAt, &sub.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("サブスクリプションの取得に失敗しました: %w", err)
	}

	return sub, nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
