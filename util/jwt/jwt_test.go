package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	tok, err := Issue("s3cret", 42, "Writer", 1)
	require.NoError(t, err)

	claims, err := ParseAuth("Bearer "+tok, "s3cret")
	require.NoError(t, err)
	require.Equal(t, "Writer", claims["role"])

	uid, err := Subject(claims)
	require.NoError(t, err)
	require.Equal(t, int64(42), uid)

	// bare token works too
	_, err = ParseAuth(tok, "s3cret")
	require.NoError(t, err)
}

func TestParseAuth_Rejects(t *testing.T) {
	_, err := ParseAuth("", "s3cret")
	require.ErrorIs(t, err, ErrMissingToken)

	for _, h := range []string{"Bearer   ", "Bearer", "bearer", "  BEARER  "} {
		_, err = ParseAuth(h, "s3cret")
		require.ErrorIs(t, err, ErrMissingToken, "header %q", h)
	}

	tok, err := Issue("s3cret", 1, "Regular", 1)
	require.NoError(t, err)
	_, err = ParseAuth(tok, "other")
	require.Error(t, err)

	expired := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"sub": 1,
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	s, err := expired.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = ParseAuth(s, "s3cret")
	require.Error(t, err)
}

func TestParseAuth_SchemeIsCaseInsensitive(t *testing.T) {
	tok, err := Issue("s3cret", 5, "Regular", 1)
	require.NoError(t, err)

	for _, h := range []string{"Bearer " + tok, "bearer  " + tok, tok} {
		claims, err := ParseAuth(h, "s3cret")
		require.NoError(t, err, h)
		id, err := Subject(claims)
		require.NoError(t, err)
		require.Equal(t, int64(5), id)
	}
}

func TestSubject_Missing(t *testing.T) {
	_, err := Subject(gojwt.MapClaims{})
	require.Error(t, err)
}
