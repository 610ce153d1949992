package jwtx

import (
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrUnknownKID = errors.New("jwtx: unknown kid")
	ErrInvalidSig = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// KeySetVerifier validates JWTs against the issuer's published key set.
// It accepts RS256 and EdDSA signed tokens, resolving the verification key
// by the "kid" header.
type KeySetVerifier struct {
	keys   *KeySet
	issuer string
	aud    []string

	// Now is the clock used for expiry checks; defaults to time.Now.
	// Tests pin this to exercise expiry boundaries.
	Now func() time.Time
}

// NewKeySetVerifier creates a verifier bound to a KeySet, expected issuer
// and audience values.
func NewKeySetVerifier(keys *KeySet, issuer string, aud []string) *KeySetVerifier {
	return &KeySetVerifier{keys: keys, issuer: issuer, aud: aud, Now: time.Now}
}

// Verify validates the JWT string and returns its parsed Claims.
//
// Expiry is validated here via claims validation (not the parser) so callers
// can distinguish ErrExpired from a bad signature and decide whether a
// silent refresh is worth attempting.
func (v *KeySetVerifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{
			jwt.SigningMethodRS256.Alg(),
			jwt.SigningMethodEdDSA.Alg(),
		}),
		// exp/nbf are checked against v.Now below
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		// Need the kid to know which key to use
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("jwtx: missing kid")
		}

		pub, err := v.keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}

		// The key type must match the token's algorithm
		switch t.Method.Alg() {
		case jwt.SigningMethodRS256.Alg():
			rsaPub, ok := pub.(*rsa.PublicKey)
			if !ok {
				return nil, errors.New("jwtx: key is not RSA")
			}
			return rsaPub, nil
		case jwt.SigningMethodEdDSA.Alg():
			edPub, ok := pub.(ed25519.PublicKey)
			if !ok {
				return nil, errors.New("jwtx: key is not Ed25519")
			}
			return edPub, nil
		default:
			return nil, errors.New("jwtx: unexpected signing method " + t.Method.Alg())
		}
	})
	if err != nil {
		if errors.Is(err, ErrUnknownKID) {
			return Claims{}, err
		}
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidSig, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	// Now check all the claim requirements
	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.aud); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(v.Now().UTC()); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}
