package jwtutil

import (
	"crypto/rsa"
	"errors"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

var ErrKeyNotConfigured = errors.New("jwt key not configured")

// Claims carry the session of the user platform that fronts this service.
type Claims struct {
	UserID       string `json:"uid"`
	Role         string `json:"role"`
	LegacyUserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

func NewClaims(userID, role string, expiry time.Duration) *Claims {
	now := time.Now().UTC()
	return &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
}

func GenerateAccessToken(claims *Claims, privateKey *rsa.PrivateKey) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(privateKey)
}

func ParseAccessToken(tokenStr string, publicKey *rsa.PublicKey) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	claims.normalize()
	if claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// LoadPrivateKey reads a PEM key from inline text or, when that is empty, from path.
func LoadPrivateKey(inline, path string) (*rsa.PrivateKey, error) {
	pem, err := readPEM(inline, path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPrivateKeyFromPEM(pem)
}

func LoadPublicKey(inline, path string) (*rsa.PublicKey, error) {
	pem, err := readPEM(inline, path)
	if err != nil {
		return nil, err
	}
	return jwt.ParseRSAPublicKeyFromPEM(pem)
}

func readPEM(inline, path string) ([]byte, error) {
	if pem := strings.TrimSpace(inline); pem != "" {
		return []byte(pem), nil
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrKeyNotConfigured
	}
	// #nosec G304 -- path comes from operator configuration.
	return os.ReadFile(path)
}

func (c *Claims) normalize() {
	if c.UserID == "" {
		c.UserID = c.LegacyUserID
	}
	if c.UserID == "" {
		c.UserID = c.Subject
	}
}
