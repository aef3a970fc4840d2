// Package auth validates bearer credentials against the external identity
// issuer's signing key. Verification happens once at the boundary; the
// resulting Identity is threaded explicitly through every service call.
package auth

import (
	"crypto/rsa"
	"errors"
	"os"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voxsynq/realtime/internal/apperr"
)

// Identity is the stable external user identity established at handshake.
type Identity struct {
	UserID   string
	Username string
}

type Verifier struct {
	method string
	secret []byte
	pub    *rsa.PublicKey
}

func NewVerifierHS256(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("empty HS256 secret")
	}
	return &Verifier{method: "HS256", secret: []byte(secret)}, nil
}

func NewVerifierRS256(pubKeyPath string) (*Verifier, error) {
	b, err := os.ReadFile(pubKeyPath)
	if err != nil {
		return nil, err
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
	if err != nil {
		return nil, err
	}
	return &Verifier{method: "RS256", pub: pub}, nil
}

// Verify parses and validates tokenStr and returns the identity it asserts.
// Any defect (bad signature, expiry, wrong method, missing subject) is an
// UNAUTHENTICATED error.
func (v *Verifier) Verify(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, apperr.Unauthenticated("missing token")
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if v.method == "RS256" {
			return v.pub, nil
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{v.method}))
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.CodeUnauthenticated, "invalid token", err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, apperr.Unauthenticated("token missing subject")
	}
	username, _ := claims["username"].(string)
	return Identity{UserID: sub, Username: username}, nil
}
