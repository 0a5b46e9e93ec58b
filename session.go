package dispatch

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"golang.org/x/net/publicsuffix"
)

// SessionCookieName is the cookie a go-dispatch server reads the credential from.
const SessionCookieName = "session-token"

// SessionBinder keeps the session credential in a cookie jar so the
// WebSocket handshake carries it like a browser would.
type SessionBinder struct {
	jar http.CookieJar
}

// NewSessionBinder creates a binder with an empty jar.
func NewSessionBinder() *SessionBinder {
	// cookiejar.New never returns an error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &SessionBinder{jar: jar}
}

// Bind stores token as the session cookie for endpoint's host and path.
func (b *SessionBinder) Bind(endpoint *url.URL, token string) {
	u := jarURL(endpoint)
	b.jar.SetCookies(u, []*http.Cookie{{
		Name:     SessionCookieName,
		Value:    token,
		Path:     u.Path,
		MaxAge:   int(CredentialTTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
	}})
}

// Header returns the handshake headers carrying every live cookie for endpoint.
func (b *SessionBinder) Header(endpoint *url.URL) http.Header {
	h := http.Header{}
	req := &http.Request{Header: h}
	for _, c := range b.jar.Cookies(jarURL(endpoint)) {
		req.AddCookie(c)
	}
	return h
}

// Token returns the bound credential, or "" when none is live.
func (b *SessionBinder) Token(endpoint *url.URL) string {
	for _, c := range b.jar.Cookies(jarURL(endpoint)) {
		if c.Name == SessionCookieName {
			return c.Value
		}
	}
	return ""
}

// jarURL maps ws/wss onto the http schemes cookie jars understand.
func jarURL(endpoint *url.URL) *url.URL {
	u := *endpoint
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return &u
}
