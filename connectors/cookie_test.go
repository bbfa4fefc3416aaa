package connectors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOAuthCookie_RoundTrip(t *testing.T) {
	signingKey := []byte("test-signing-key")

	rec := httptest.NewRecorder()
	require.NoError(t, setOAuthCookie(rec, signingKey, "slack", "organization", "acme", "state-1"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}

	claims, err := readOAuthCookie(r, signingKey, "slack")
	require.NoError(t, err)
	assert.Equal(t, "organization", claims.Scope)
	assert.Equal(t, "acme", claims.Identity)
	assert.Equal(t, "state-1", claims.State)
}

func TestOAuthCookie_WrongSigningKeyFails(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, setOAuthCookie(rec, []byte("key-a"), "slack", "organization", "acme", "state-1"))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		r.AddCookie(c)
	}

	_, err := readOAuthCookie(r, []byte("key-b"), "slack")
	assert.Error(t, err)
}

func TestOAuthCookie_MissingCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := readOAuthCookie(r, []byte("key"), "slack")
	assert.Error(t, err)
}

func TestClearOAuthCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	clearOAuthCookie(rec, "slack")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, oauthCookieName("slack"), cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}
