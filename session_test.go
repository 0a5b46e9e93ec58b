package dispatch

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestSessionBinder_HeaderCarriesCookie(t *testing.T) {
	b := NewSessionBinder()
	endpoint := mustURL(t, "ws://127.0.0.1:8080/ws")

	assert.Empty(t, b.Token(endpoint))
	assert.Empty(t, b.Header(endpoint).Get("Cookie"))

	b.Bind(endpoint, "header.payload.sig")

	req := &http.Request{Header: b.Header(endpoint)}
	cookie, err := req.Cookie(SessionCookieName)
	require.NoError(t, err)
	assert.Equal(t, "header.payload.sig", cookie.Value)
	assert.Equal(t, "header.payload.sig", b.Token(endpoint))
}

func TestSessionBinder_RebindReplaces(t *testing.T) {
	b := NewSessionBinder()
	endpoint := mustURL(t, "ws://127.0.0.1:8080/ws")

	b.Bind(endpoint, "first")
	b.Bind(endpoint, "second")

	req := &http.Request{Header: b.Header(endpoint)}
	assert.Len(t, req.Cookies(), 1)
	assert.Equal(t, "second", b.Token(endpoint))
}

func TestSessionBinder_Scope(t *testing.T) {
	b := NewSessionBinder()
	b.Bind(mustURL(t, "ws://127.0.0.1:8080/ws"), "tok")

	assert.Equal(t, "tok", b.Token(mustURL(t, "wss://127.0.0.1:8080/ws")), "secure scheme sees non-secure cookie")
	assert.Empty(t, b.Token(mustURL(t, "ws://127.0.0.1:8080/other")), "cookie is path scoped")
	assert.Empty(t, b.Token(mustURL(t, "ws://10.0.0.1:8080/ws")), "cookie is host scoped")
}

func TestJarURL(t *testing.T) {
	assert.Equal(t, "http://h/ws", jarURL(mustURL(t, "ws://h/ws")).String())
	assert.Equal(t, "https://h/ws", jarURL(mustURL(t, "wss://h/ws")).String())
	assert.Equal(t, "http://h/", jarURL(mustURL(t, "ws://h")).String())
}
