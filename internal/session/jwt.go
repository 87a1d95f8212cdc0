package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// claims is the token shape the Session Gate issues and verifies: sub,
// userId, userName, iat, exp, iss.
type claims struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	jwt.RegisteredClaims
}

// jwtVerifier signs and verifies the HS256 bearer tokens the gate issues.
type jwtVerifier struct {
	secret []byte
	issuer string
	expiry time.Duration
}

func newJWTVerifier(secret, issuer string, expiry time.Duration) *jwtVerifier {
	return &jwtVerifier{secret: []byte(secret), issuer: issuer, expiry: expiry}
}

// issue mints a signed token for userID/userName, expiring after v.expiry.
func (v *jwtVerifier) issue(userID, userName string) (string, error) {
	now := time.Now()
	c := claims{
		UserID:   userID,
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// verify checks the token's signature, issuer and expiry, returning its claims.
func (v *jwtVerifier) verify(tokenString string) (*claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithIssuer(v.issuer))
	if err != nil {
		return nil, fmt.Errorf("token invalid: %w", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("token invalid")
	}
	return c, nil
}
