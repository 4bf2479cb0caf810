package jwtutil

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestAccessTokenRoundTrip(t *testing.T) {
	key := newKey(t)

	token, err := GenerateAccessToken(NewClaims("u1", "admin", time.Hour), key)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, &key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	key := newKey(t)
	other := newKey(t)

	expired, err := GenerateAccessToken(NewClaims("u1", "user", -time.Minute), key)
	require.NoError(t, err)
	_, err = ParseAccessToken(expired, &key.PublicKey)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	foreign, err := GenerateAccessToken(NewClaims("u1", "user", time.Hour), other)
	require.NoError(t, err)
	_, err = ParseAccessToken(foreign, &key.PublicKey)
	assert.Error(t, err)

	anonymous, err := GenerateAccessToken(NewClaims("", "user", time.Hour), key)
	require.NoError(t, err)
	_, err = ParseAccessToken(anonymous, &key.PublicKey)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidClaims)
}

func TestParseAccessToken_LegacyUserID(t *testing.T) {
	key := newKey(t)
	claims := &Claims{
		LegacyUserID: "legacy-1",
		Role:         "user",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := GenerateAccessToken(claims, key)
	require.NoError(t, err)

	parsed, err := ParseAccessToken(token, &key.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "legacy-1", parsed.UserID)
}

func TestLoadKeys(t *testing.T) {
	key := newKey(t)
	privatePEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	publicDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	path := filepath.Join(t.TempDir(), "public.pem")
	require.NoError(t, os.WriteFile(path, publicPEM, 0o600))

	loadedPrivate, err := LoadPrivateKey(string(privatePEM), "")
	require.NoError(t, err)
	loadedPublic, err := LoadPublicKey("", path)
	require.NoError(t, err)
	assert.True(t, loadedPrivate.PublicKey.Equal(loadedPublic))

	_, err = LoadPublicKey(" ", "")
	assert.ErrorIs(t, err, ErrKeyNotConfigured)
}
