// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// 初回ログイン成功時に遅延作成され、(provider, platform_id)ごとに必ず1行になる。
type User struct {
	ID        string
	Email     string
	Name      string
	Image     string
	Profile   string // デフォルトアバターへの参照（例: /assets/profiles/03.png）
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// (provider, platform_id)にユニーク制約を持ち、同一プラットフォームIDの
// 同時初回ログインの競合はこの制約で検出される。
type Identity struct {
	ID         string
	UserID     string
	Provider   string // "github", "google"
	PlatformID string // プロバイダー側のユーザーID
	CreatedAt  time.Time
}

// ResolvedUser はIdentity Resolverの結果。
// セッショントークンに焼き込まれるユーザー情報と、発行時点の
// エンタイトルメントのスナップショットを持つ。
type ResolvedUser struct {
	UserID          string
	Name            string
	Email           string
	Profile         string
	HasSubscription bool
}
