package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller as issued by the identity provider.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// Provider validates session credentials.
type Provider interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// Claims mirror the session tokens Supabase Auth issues: the user id in sub.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService verifies HS256 session tokens signed with the project's JWT secret.
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// GenerateAccessToken issues a token in the same shape as the identity provider.
// Used by tests and local tooling.
func (s *TokenService) GenerateAccessToken(userID, email string, ttl time.Duration) (string, error) {
	claims := Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "filedrop",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.Subject == "" {
			return nil, errors.New("token has no subject")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

func (s *TokenService) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}
