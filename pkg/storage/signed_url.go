package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DownloadClaims identifies a stored file a download token grants access to.
type DownloadClaims struct {
	MaterialID string `json:"mid"`
	Key        string `json:"key"`
	jwt.RegisteredClaims
}

// SignedURLSigner creates and validates short-lived download tokens.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Generate returns a signed token for the material's storage key.
func (s *SignedURLSigner) Generate(materialID, key string) (string, time.Time, error) {
	if materialID == "" || key == "" {
		return "", time.Time{}, fmt.Errorf("material id and storage key required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := DownloadClaims{
		MaterialID: materialID,
		Key:        key,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   materialID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return token, expiresAt, nil
}

// Parse validates a token and returns the embedded claims.
func (s *SignedURLSigner) Parse(token string) (*DownloadClaims, error) {
	claims := &DownloadClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("download token expired: %w", err)
		}
		return nil, fmt.Errorf("invalid download token: %w", err)
	}
	if !parsed.Valid || claims.Key == "" {
		return nil, fmt.Errorf("invalid download token")
	}
	return claims, nil
}
