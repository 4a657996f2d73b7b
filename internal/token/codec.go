// Package token はステートレスなセッショントークンの署名・検証を提供する。
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/bunn/internal/model"
)

// SessionClaims はセッショントークンに署名されるクレーム。
// 固定フィールドのみを持ち、形の合わないトークンは受理しない。
// has_subscriptionは発行時点のスナップショットであり、
// エンタイトルメントの実時間チェックには使わないこと。
type SessionClaims struct {
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Profile         string `json:"profile"`
	HasSubscription bool   `json:"has_subscription"`
	jwt.RegisteredClaims
}

// Codec はHMAC署名によるセッショントークンのエンコード・デコードを行う。
// 失効リストは持たない。ログアウトはクライアント側Cookieの削除のみで、
// トークン自体は期限まで有効というステートレスセッションのトレードオフを採る。
type Codec struct {
	secret []byte
	maxAge time.Duration
}

// NewCodec はCodecを生成する。maxAgeは発行からの有効期間。
func NewCodec(secret string, maxAge time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		maxAge: maxAge,
	}
}

// Encode はResolvedUserからセッショントークンを発行する。
// 有効期限は発行時刻 + maxAge。
func (c *Codec) Encode(user *model.ResolvedUser, now time.Time) (string, error) {
	claims := &SessionClaims{
		UserID:          user.UserID,
		Name:            user.Name,
		Email:           user.Email,
		Profile:         user.Profile,
		HasSubscription: user.HasSubscription,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode はセッショントークンを検証しクレームを返す。
// 署名不正・期限切れ・構造不正はすべてmodel.ErrInvalidSessionに畳み込む。
// どの検証に失敗したかを呼び出し側が区別できてはならない。
func (c *Codec) Decode(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, model.ErrInvalidSession
	}

	if claims.UserID == "" {
		return nil, model.ErrInvalidSession
	}

	return claims, nil
}
