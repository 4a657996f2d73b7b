package model

import "time"

// Subscription はユーザーの課金サブスクリプションを表す。
// 書き込みは外部の課金コラボレーター（Stripe webhook処理）が担い、
// 本サービスは読み取りのみを行う。更新は既存行のend_timeの延長であり、
// 新しい行の追加ではない。
type Subscription struct {
	ID        string
	UserID    string
	StartTime time.Time
	EndTime   time.Time
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsEffective はサブスクリプションが現在有効かどうかを返す。
// 有効 = activeかつend_timeが未来。
func (s *Subscription) IsEffective(now time.Time) bool {
	return s.Active && s.EndTime.After(now)
}
