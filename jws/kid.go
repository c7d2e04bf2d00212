package jws

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"fmt"

	"github.com/vintasoftware/kill-the-clipboard/codec"
)

const (
	curveName = "P-256"
	keyType   = "EC"
)

// Thumbprint derives a kid from the public half of key as the base64url
// SHA-256 digest of its canonical JWK representation, per RFC 7638. spec.md
// §9 permits either a caller-supplied kid or a derived one; this is the
// SHOULD-recommended default, and the teacher's jws.kid did the same thing
// for its fixed ES256 key type.
func Thumbprint(key *ecdsa.PublicKey) string {
	// RFC 7638 §3.2 requires the JWK member names in lexicographic order:
	// crv, kty, x, y.
	canonical := fmt.Sprintf(
		`{"crv":"%s","kty":"%s","x":"%s","y":"%s"}`,
		curveName,
		keyType,
		coordToString(key.X),
		coordToString(key.Y),
	)
	digest := sha256.Sum256([]byte(canonical))
	return codec.EncodeBase64URL(digest[:])
}

func coordToString(coord interface{ FillBytes([]byte) []byte }) string {
	return codec.EncodeBase64URL(coord.FillBytes(make([]byte, curveByteSize)))
}

// JWKS is a minimal JSON Web Key Set containing a single EC public key, in
// the shape consumers fetch from an issuer's /.well-known/jwks.json per
// spec.md §1's "discovering public keys" external collaborator.
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK is a single JSON Web Key entry for an ECDSA P-256 public key.
type JWK struct {
	KeyType   string `json:"kty"`
	KeyID     string `json:"kid"`
	Use       string `json:"use"`
	Algorithm string `json:"alg"`
	Curve     string `json:"crv"`
	X         string `json:"x"`
	Y         string `json:"y"`
}

// PublicJWKS builds a JWKS exposing the public half of key.
func PublicJWKS(key *ecdsa.PublicKey) JWKS {
	return JWKS{
		Keys: []JWK{
			{
				KeyType:   keyType,
				KeyID:     Thumbprint(key),
				Use:       "sig",
				Algorithm: algorithm,
				Curve:     curveName,
				X:         coordToString(key.X),
				Y:         coordToString(key.Y),
			},
		},
	}
}
