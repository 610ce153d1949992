package authsdk

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/mediplan/mediplan/pkg/cryptox"
)

// PKCEChallenge holds a generated PKCE verifier/challenge pair for the
// S256 code challenge method.
type PKCEChallenge struct {
	Verifier  string // kept client-side, sent on the code exchange
	Challenge string // sent on the authorize redirect
	Method    string // always "S256"
}

// GeneratePKCE creates a fresh PKCE pair. The verifier is 32 random bytes
// rendered as 64 lowercase hex characters; the challenge is the unpadded
// base64url encoding of the verifier's SHA-256 digest.
func GeneratePKCE() (PKCEChallenge, error) {
	verifier, err := cryptox.GenerateHexToken(cryptox.TokenSize256)
	if err != nil {
		return PKCEChallenge{}, fmt.Errorf("failed to generate verifier: %w", err)
	}

	return PKCEChallenge{
		Verifier:  verifier,
		Challenge: ChallengeFromVerifier(verifier),
		Method:    "S256",
	}, nil
}

// ChallengeFromVerifier derives the S256 code challenge for a verifier.
func ChallengeFromVerifier(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
