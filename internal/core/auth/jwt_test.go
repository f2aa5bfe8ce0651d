package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueParse(t *testing.T) {
	j := &JWTer{Secret: []byte("s1"), Issuer: "siteforge", TTL: time.Hour}

	tok, err := j.Issue("user-1")
	require.NoError(t, err)

	claims, err := j.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UID)
	require.Equal(t, "siteforge", claims.Issuer)
}

func TestParseWrongSecret(t *testing.T) {
	j := &JWTer{Secret: []byte("s1"), Issuer: "siteforge", TTL: time.Hour}
	tok, err := j.Issue("user-1")
	require.NoError(t, err)

	other := &JWTer{Secret: []byte("s2"), Issuer: "siteforge", TTL: time.Hour}
	_, err = other.Parse(tok)
	require.Error(t, err)
}

func TestParseExpired(t *testing.T) {
	j := &JWTer{Secret: []byte("s1"), Issuer: "siteforge", TTL: -time.Hour}
	tok, err := j.Issue("user-1")
	require.NoError(t, err)

	_, err = j.Parse(tok)
	require.Error(t, err)
}

func TestParseGarbage(t *testing.T) {
	j := &JWTer{Secret: []byte("s1"), Issuer: "siteforge", TTL: time.Hour}
	_, err := j.Parse("not-a-token")
	require.Error(t, err)
}
