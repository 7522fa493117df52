package credential

import (
	"fmt"
	"net/http"
	"net/url"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookieMirror copies the credential into an http.CookieJar so plain
// http.Client calls to the backend origin carry it too.
type CookieMirror struct {
	jar    http.CookieJar
	origin *url.URL
}

func NewCookieMirror(jar http.CookieJar, origin string) (*CookieMirror, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse cookie origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("cookie origin %q must be absolute", origin)
	}
	return &CookieMirror{jar: jar, origin: u}, nil
}

func (m *CookieMirror) set(c *Credential) {
	m.jar.SetCookies(m.origin, []*http.Cookie{
		m.cookie(AccessTokenCookie, c.AccessToken, 0),
		m.cookie(RefreshTokenCookie, c.RefreshToken, 0),
	})
}

func (m *CookieMirror) clear() {
	m.jar.SetCookies(m.origin, []*http.Cookie{
		m.cookie(AccessTokenCookie, "", -1),
		m.cookie(RefreshTokenCookie, "", -1),
	})
}

func (m *CookieMirror) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Secure:   m.origin.Scheme == "https",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	}
}
