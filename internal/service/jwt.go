package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("jwt secret is not set")
)

// TokenTTL is the lifetime of issued tokens.
const TokenTTL = 24 * time.Hour

var jwtSecret []byte

// InitJWT sets the HMAC secret used to sign and verify tokens.
func InitJWT(secret string) {
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	jwtSecret = []byte(secret)
}

// GenerateJWT issues a token for userID. Only dev tooling issues tokens;
// the API itself just verifies them.
func GenerateJWT(userID int64) (string, error) {
	if len(jwtSecret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(TokenTTL).Unix(),
		"iat":     now.Unix(),
		"nbf":     now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseJWT verifies the token and returns its user id.
func ParseJWT(tokenString string) (int64, error) {
	if len(jwtSecret) == 0 {
		return 0, ErrNoSecret
	}
	// exp/nbf are checked by the parser
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok || userID <= 0 {
		return 0, errors.New("user_id not found")
	}
	return int64(userID), nil
}
