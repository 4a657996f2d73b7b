package model

import "time"

// ActionType は従量制アクションの種別を表す。
type ActionType string

const (
	// ActionImageOCR は画像からの字幕抽出。
	ActionImageOCR ActionType = "IMAGE_OCR"
	// ActionTextTranslation はテキスト翻訳。
	ActionTextTranslation ActionType = "TEXT_TRANSLATION"
)

// MeteredActions はクォータ集計の対象となる全アクション種別。
var MeteredActions = []ActionType{ActionImageOCR, ActionTextTranslation}

// RelatedTypeOpenAIResponse は利用記録がOpenAIレスポンスを参照することを示す。
const RelatedTypeOpenAIResponse = "openai_response"

// UsageLogEntry は完了した従量制アクション1件の利用記録を表す。
// 追記のみで、成功したアクションに対して1行記録される。
type UsageLogEntry struct {
	ID          string
	UserID      string
	ActionType  ActionType
	RelatedID   string
	RelatedType string
	CreatedAt   time.Time
}
