// Package authn implements the AuthService port the room consumes to turn
// an opaque bearer token into an authenticated account identity. Account
// issuance and password verification live outside this module; authn only
// decodes tokens that some other service has already signed.
package authn

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// ErrInvalidToken is returned for any token that fails to decode or
// validate, without distinguishing the reason to the caller — the gateway
// always maps it to close code 4001.
var ErrInvalidToken = errors.New("authn: invalid token")

// Claims is the account identity carried by a bearer token.
type Claims struct {
	AccountID string
	Email     string
}

// Service decodes bearer tokens issued by the external AuthService.
type Service interface {
	DecodeToken(token string) (Claims, error)
}

// jwtClaims is the wire shape of the token payload.
type jwtClaims struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

// JWTService validates HMAC-signed tokens against a shared signing key.
// It is a thin verifier, not an issuer: token creation is the external
// AuthService's responsibility.
type JWTService struct {
	signingKey []byte
}

// NewJWTService constructs a JWTService. An empty signingKey is only valid
// in development mode and is rejected at config validation time in
// production.
func NewJWTService(signingKey string) *JWTService {
	return &JWTService{signingKey: []byte(signingKey)}
}

// DecodeToken parses and validates token, returning the account identity it
// carries. Expired, malformed, or mis-signed tokens all collapse to
// ErrInvalidToken.
func (s *JWTService) DecodeToken(token string) (Claims, error) {
	logger := logrus.WithField("function", "DecodeToken")

	parsed, err := jwt.ParseWithClaims(token, &jwtClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		logger.WithError(err).Warn("token decode failed")
		return Claims{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwtClaims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.AccountID == "" {
		return Claims{}, ErrInvalidToken
	}

	return Claims{AccountID: claims.AccountID, Email: claims.Email}, nil
}

// IssueDevToken mints a short-lived token signed with the service's key.
// Intended only for local development and integration tests that need a
// token without running the real external AuthService.
func (s *JWTService) IssueDevToken(accountID, email string, ttl time.Duration) (string, error) {
	claims := jwtClaims{
		AccountID: accountID,
		Email:     email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}
