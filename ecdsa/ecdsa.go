// Package ecdsa loads and generates the ECDSA P-256 keys that sign and
// verify SMART Health Cards. See
// https://spec.smarthealth.cards/#generating-and-resolving-cryptographic-keys.
package ecdsa

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"math/big"

	"github.com/vintasoftware/kill-the-clipboard/shcerr"
)

const (
	pkcs8PrivateKeyBlockType = "PRIVATE KEY"
	spkiPublicKeyBlockType   = "PUBLIC KEY"
)

// GenerateKey creates a new ECDSA P-256 private key, for use in key setup
// tooling (spec.md §1 treats long-lived issuer key generation as an external
// collaborator, out of the library's runtime scope).
func GenerateKey() (*ecdsa.PrivateKey, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, shcerr.Wrap(shcerr.Jws, "failed to generate ECDSA key", err)
	}
	return key, nil
}

// LoadKey reconstructs an ECDSA P-256 private key from its raw d, x, y
// parameters, each the base-10 string form of a math/big.Int. The teacher's
// ecdsa.LoadKey took exactly this shape, for keys stored as environment
// variables; kept as the lowest-ceremony load path alongside the PEM-based
// ones below.
func LoadKey(d, x, y string) (*ecdsa.PrivateKey, error) {
	dInt := new(big.Int)
	if err := dInt.UnmarshalText([]byte(d)); err != nil {
		return nil, shcerr.Wrap(shcerr.Jws, "invalid key parameter d", err)
	}

	xInt := new(big.Int)
	if err := xInt.UnmarshalText([]byte(x)); err != nil {
		return nil, shcerr.Wrap(shcerr.Jws, "invalid key parameter x", err)
	}

	yInt := new(big.Int)
	if err := yInt.UnmarshalText([]byte(y)); err != nil {
		return nil, shcerr.Wrap(shcerr.Jws, "invalid key parameter y", err)
	}

	return &ecdsa.PrivateKey{
		D: dInt,
		PublicKey: ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     xInt,
			Y:     yInt,
		},
	}, nil
}

// LoadPrivateKeyPEM parses a PEM-encoded PKCS#8 private key, per spec.md §2's
// external-collaborator interface (a): "an ES256 signer/verifier accepting
// keys in PKCS#8/SPKI or native form."
func LoadPrivateKeyPEM(pemBytes []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, shcerr.New(shcerr.Jws, "no PEM block found in private key")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, shcerr.Wrap(shcerr.Jws, "failed to parse PKCS#8 private key", err)
	}

	key, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, shcerr.New(shcerr.Jws, "PEM block does not contain an ECDSA private key")
	}
	if key.Curve != elliptic.P256() {
		return nil, shcerr.New(shcerr.Jws, "private key is not on curve P-256")
	}
	return key, nil
}

// LoadPublicKeyPEM parses a PEM-encoded SPKI public key.
func LoadPublicKeyPEM(pemBytes []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, shcerr.New(shcerr.Jws, "no PEM block found in public key")
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, shcerr.Wrap(shcerr.Jws, "failed to parse SPKI public key", err)
	}

	key, ok := parsed.(*ecdsa.PublicKey)
	if !ok {
		return nil, shcerr.New(shcerr.Jws, "PEM block does not contain an ECDSA public key")
	}
	if key.Curve != elliptic.P256() {
		return nil, shcerr.New(shcerr.Jws, "public key is not on curve P-256")
	}
	return key, nil
}

// MarshalPrivateKeyPEM encodes key as a PEM-wrapped PKCS#8 private key, the
// inverse of LoadPrivateKeyPEM.
func MarshalPrivateKeyPEM(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, shcerr.Wrap(shcerr.Jws, "failed to marshal PKCS#8 private key", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: pkcs8PrivateKeyBlockType, Bytes: der}), nil
}

// MarshalPublicKeyPEM encodes key as a PEM-wrapped SPKI public key.
func MarshalPublicKeyPEM(key *ecdsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, shcerr.Wrap(shcerr.Jws, "failed to marshal SPKI public key", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: spkiPublicKeyBlockType, Bytes: der}), nil
}
