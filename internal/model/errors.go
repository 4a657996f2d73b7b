package model

import "errors"

// 認証・エンタイトルメント関連のエラー。
// 外部に見えるエラーはすべてJSONの{success:false, error}ボディと
// 明示的なHTTPステータスに対応づけられる。
var (
	// ErrCSRFInvalid はCSRFトークンの検証失敗を表す。
	ErrCSRFInvalid = errors.New("CSRFトークンが無効か期限切れです")

	// ErrMissingCode はOAuthコールバックにcodeクエリがないことを表す。
	ErrMissingCode = errors.New("認可コードがありません")

	// ErrTokenExchangeFailed は認可コードのトークン交換失敗を表す。
	ErrTokenExchangeFailed = errors.New("アクセストークンの取得に失敗しました")

	// ErrProfileFetchFailed はプロバイダーからのプロフィール取得失敗を表す。
	ErrProfileFetchFailed = errors.New("ユーザー情報の取得に失敗しました")

	// ErrUnauthenticated はセッションCookie不在を表す。
	ErrUnauthenticated = errors.New("未ログインです")

	// ErrInvalidSession はセッショントークンの検証失敗を表す。
	// 署名・期限切れ・構造不正は区別せずすべてこのエラーに畳み込む
	// （どの検証に失敗したかを外部に漏らさないため）。
	ErrInvalidSession = errors.New("無効なセッションです")

	// ErrQuotaExceeded は無料枠の日次上限超過を表す。
	ErrQuotaExceeded = errors.New("本日の無料利用枠を使い切りました")

	// ErrNoEntitlement は従量制アクションへのアクセス権がないことを表す。
	ErrNoEntitlement = errors.New("この機能を利用する権限がありません")
)
