package utils

import (
	"crypto/subtle"
	"errors"
	"time"

	"posevault/internal/errs"

	"github.com/golang-jwt/jwt/v4"
)

// Verifier identifies the caller behind a credential. Implementations
// return the subject id or an AuthError.
type Verifier interface {
	Verify(credential string) (string, error)
}

// JWTVerifier checks HS256-signed owner tokens and trusts their subject
// only after the signature and time claims validate.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// GenerateToken signs an owner token for subject.
func GenerateToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Verify parses and validates a JWT.
func (v *JWTVerifier) Verify(credential string) (string, error) {
	if len(v.secret) == 0 {
		return "", errs.Auth("owner authentication is not configured")
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errs.Auth("invalid credential")
	}
	if claims.Subject == "" {
		return "", errs.Auth("credential has no subject")
	}
	return claims.Subject, nil
}

// ServiceSubject is the subject reported for the service credential.
const ServiceSubject = "service"

// ServiceVerifier accepts exactly one shared service token.
type ServiceVerifier struct {
	token []byte
}

func NewServiceVerifier(token string) *ServiceVerifier {
	return &ServiceVerifier{token: []byte(token)}
}

func (v *ServiceVerifier) Verify(credential string) (string, error) {
	if len(v.token) == 0 {
		return "", errs.Auth("service authentication is not configured")
	}
	if subtle.ConstantTimeCompare([]byte(credential), v.token) != 1 {
		return "", errs.Auth("invalid service credential")
	}
	return ServiceSubject, nil
}

// ErrNoBearer is returned when the Authorization header is not a bearer token.
var ErrNoBearer = errors.New("missing bearer credential")
