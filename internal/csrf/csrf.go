// Package csrf はdouble-submit cookie方式のCSRFトークンを提供する。
// トークンはCookieとレスポンスボディの両方でクライアントに渡り、
// クライアントはヘッダーで同じ値を送り返すことで同一オリジンを証明する。
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/hitoshi/bunn/internal/model"
)

const (
	// CookieName はCSRFトークンを保持するCookieの名前。
	CookieName = "csrf_token"

	// HeaderName はリクエストヘッダーからCSRFトークンを読み取る際のヘッダー名。
	HeaderName = "X-CSRF-Token"
)

// Config はCSRF Issuerの設定。
type Config struct {
	CookieSecure bool
	CookieDomain string
	MaxAge       int // トークンCookieの有効期間（秒）
}

// Issuer はCSRFトークンの発行と検証を行う。
// トークンはサーバー側に保存されず、Cookieとヘッダーの一致のみで検証される。
type Issuer struct {
	config Config
}

// NewIssuer はIssuerを生成する。
func NewIssuer(config Config) *Issuer {
	return &Issuer{config: config}
}

// Issue は新しいCSRFトークンを生成し、Cookieとして設定して値を返す。
// Cookieは短命（既定60秒）でhttpOnly。クライアントはレスポンスボディで
// 受け取った値をヘッダーで送り返す。
func (i *Issuer) Issue(w http.ResponseWriter) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Domain:   i.config.CookieDomain,
		MaxAge:   i.config.MaxAge,
		HttpOnly: true,
		Secure:   i.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})

	return token, nil
}

// Verify はCookieとヘッダーのトークンを照合する。
// 両方が存在して一致した場合のみ成功し、それ以外はmodel.ErrCSRFInvalidを返す。
// 検証の成否によらずCookieは即座に消費（削除）される。トークンは単回使用であり、
// 検証成功後の再利用もできない。
func (i *Issuer) Verify(w http.ResponseWriter, r *http.Request) error {
	cookie, cookieErr := r.Cookie(CookieName)

	// 先にCookieを消費する。後続のOAuthフローは独自のstateを持つ
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Domain:   i.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   i.config.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})

	if cookieErr != nil || cookie.Value == "" {
		return model.ErrCSRFInvalid
	}

	headerToken := r.Header.Get(HeaderName)
	if headerToken == "" {
		return model.ErrCSRFInvalid
	}

	if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(headerToken)) != 1 {
		return model.ErrCSRFInvalid
	}

	return nil
}

// generateToken は暗号的に安全なCSRFトークンを生成する。
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
