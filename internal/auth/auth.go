package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidAPIKey = errors.New("invalid api key")
)

// Claims is the payload carried by progress-stream access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Auth issues and validates the short-lived tokens that gate the progress
// websocket, and checks the operator API key for manual triggers.
type Auth struct {
	secret     []byte
	apiKeyHash string
	tokenTTL   time.Duration
}

func New(secret, apiKeyHash string) *Auth {
	return &Auth{
		secret:     []byte(secret),
		apiKeyHash: apiKeyHash,
		tokenTTL:   24 * time.Hour,
	}
}

// IssueToken signs a token identifying userID.
func (a *Auth) IssueToken(userID string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning its claims.
func (a *Auth) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashAPIKey produces the bcrypt hash stored in API_KEY_HASH.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckAPIKey verifies a presented key against the configured hash. An empty
// configured hash disables the check (local development).
func (a *Auth) CheckAPIKey(key string) error {
	if a.apiKeyHash == "" {
		return nil
	}
	if bcrypt.CompareHashAndPassword([]byte(a.apiKeyHash), []byte(key)) != nil {
		return ErrInvalidAPIKey
	}
	return nil
}
