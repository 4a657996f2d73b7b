// Package quota は日次の無料利用枠とサブスクリプションによる
// エンタイトルメント判定を提供する。
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bunn/internal/model"
	"github.com/hitoshi/bunn/internal/repository"
)

// Gate は課金対象アクションの実行可否を判定する。
// 判定と記録は分離されており、Checkの通過後に実際の処理を行い、
// 成功した場合のみRecordを呼ぶ。判定と記録の間に他のリクエストが
// 割り込む可能性があるため、上限はソフトリミットである。
// 厳密な原子性よりも読み取りの軽さを優先している。
type Gate struct {
	subRepo   repository.SubscriptionRepository
	usageRepo repository.UsageLogRepository
	limit     int
}

// NewGate はGateを生成する。limitはアクション種別ごとの1日あたりの無料枠。
func NewGate(subRepo repository.SubscriptionRepository, usageRepo repository.UsageLogRepository, limit int) *Gate {
	return &Gate{
		subRepo:   subRepo,
		usageRepo: usageRepo,
		limit:     limit,
	}
}

// Check はユーザーがアクションを実行できるか判定する。
// 有効なサブスクリプション保持者は無制限。それ以外は当日の利用件数が
// 無料枠未満であること。枠が0に設定されている場合、サブスクリプション
// なしのユーザーは一律ErrNoEntitlementになる。
func (g *Gate) Check(ctx context.Context, userID string, action model.ActionType) error {
	now := time.Now()

	subscribed, err := g.subRepo.HasActiveSubscription(ctx, userID, now)
	if err != nil {
		return fmt.Errorf("サブスクリプション状態の取得に失敗: %w", err)
	}
	if subscribed {
		return nil
	}

	if g.limit <= 0 {
		return model.ErrNoEntitlement
	}

	count, err := g.usageRepo.CountSince(ctx, userID, action, startOfToday(now))
	if err != nil {
		return fmt.Errorf("利用件数の取得に失敗: %w", err)
	}

	if count >= g.limit {
		slog.Info("daily quota exceeded",
			slog.String("user_id", userID),
			slog.String("action", string(action)),
			slog.Int("count", count),
			slog.Int("limit", g.limit),
		)
		return model.ErrQuotaExceeded
	}

	return nil
}

// Record はアクションの実行を1件記録する。
// relatedID/relatedTypeはアクションが生成した対象への参照（例: OpenAIレスポンスID）。
// 実際の処理が成功した後にのみ呼ぶこと。失敗した処理は枠を消費しない。
func (g *Gate) Record(ctx context.Context, userID string, action model.ActionType, relatedID, relatedType string) error {
	entry := &model.UsageLogEntry{
		ID:          uuid.New().String(),
		UserID:      userID,
		ActionType:  action,
		RelatedID:   relatedID,
		RelatedType: relatedType,
		CreatedAt:   time.Now(),
	}
	if err := g.usageRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("利用記録の保存に失敗: %w", err)
	}
	return nil
}

// TodayCounts は当日のアクション種別ごとの利用件数を返す。
// 利用のない種別も0件としてマップに含める。
func (g *Gate) TodayCounts(ctx context.Context, userID string) (map[model.ActionType]int, error) {
	counts, err := g.usageRepo.CountsByActionSince(ctx, userID, startOfToday(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("利用件数の取得に失敗: %w", err)
	}

	result := make(map[model.ActionType]int, len(model.MeteredActions))
	for _, action := range model.MeteredActions {
		result[action] = counts[action]
	}
	return result, nil
}

// Limit は設定された1日あたりの無料枠を返す。
func (g *Gate) Limit() int { return g.limit }

// startOfToday はサーバーローカルタイムゾーンでの当日0時を返す。
// 日次枠のリセット境界はUTCではなくサーバーローカル時刻に従う。
func startOfToday(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
