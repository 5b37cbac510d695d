package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// OwnerClaims is the contract with the external identity provider: owner
// tokens are minted elsewhere and only verified here.
type OwnerClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwtlib.RegisteredClaims
}

// SessionClaims describes one established viewing session. The token itself
// is the proof that the session's view has already been counted.
type SessionClaims struct {
	SessionID     string `json:"session_id"`
	ShareKey      string `json:"share_key"`
	DocumentID    string `json:"document_id"`
	ViewerEmail   string `json:"viewer_email,omitempty"`
	AllowDownload bool   `json:"allow_download"`
	jwtlib.RegisteredClaims
}

func GenerateSessionToken(claims SessionClaims, secret []byte, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwtlib.RegisteredClaims{
		ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwtlib.NewNumericDate(time.Now()),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func ParseSessionToken(tokenString string, secret []byte) (*SessionClaims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &SessionClaims{}, keyFunc(secret))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

func ParseOwnerToken(tokenString string, secret []byte) (*OwnerClaims, error) {
	token, err := jwtlib.ParseWithClaims(tokenString, &OwnerClaims{}, keyFunc(secret))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*OwnerClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func GenerateOwnerToken(userID, email string, secret []byte, ttl time.Duration) (string, error) {
	claims := OwnerClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func keyFunc(secret []byte) jwtlib.Keyfunc {
	return func(token *jwtlib.Token) (interface{}, error) {
		if token.Method.Alg() != jwtlib.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}
}
