package security

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing", "", ""},
		{"bearer", "Bearer abc.def", "abc.def"},
		{"case insensitive", "bearer abc", "abc"},
		{"other scheme", "Basic dXNlcjpwYXNz", ""},
		{"no token", "Bearer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/update_lookaway", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			require.Equal(t, tt.want, BearerToken(r))
		})
	}
}

func TestSessionCookieSecureFlag(t *testing.T) {
	plain := httptest.NewRequest("GET", "/", nil)
	require.False(t, CreateSessionCookie(plain, "session_id", "v", time.Now()).Secure)

	proxied := httptest.NewRequest("GET", "/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "https")
	require.True(t, CreateSessionCookie(proxied, "session_id", "v", time.Now()).Secure)

	direct := httptest.NewRequest("GET", "/", nil)
	direct.TLS = &tls.ConnectionState{}
	c := CreateDeleteCookie(direct, "session_id")
	require.True(t, c.Secure)
	require.Equal(t, -1, c.MaxAge)
}

func TestGenerateSessionIDUnique(t *testing.T) {
	require.NotEqual(t, GenerateSessionID(), GenerateSessionID())
	require.Len(t, GenerateSessionID(), 36)
}
