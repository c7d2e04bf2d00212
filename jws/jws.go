// Package jws builds and verifies the compact-serialization JSON Web
// Signature that carries a SMART Health Card's JWT payload: ES256 over a
// raw-DEFLATE-compressed payload, signatures in fixed-length P1363 form.
// See https://spec.smarthealth.cards/#health-cards-are-encoded-as-compact-serialization-json-web-signatures-jws
// and https://datatracker.ietf.org/doc/html/rfc7515.
package jws

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"math/big"
	"strings"

	"github.com/vintasoftware/kill-the-clipboard/codec"
	"github.com/vintasoftware/kill-the-clipboard/shcerr"
)

const (
	algorithm = "ES256"
	// curveByteSize is the P-256 coordinate width in bytes. The teacher
	// hard-codes 32 inline at each FillBytes call; this is pulled out since
	// it is also the unit the signature-splitting logic in Verify needs.
	curveByteSize = 32
)

// Header is the protected JWS header. Zip is "DEF" when the payload was
// raw-DEFLATE compressed before signing, and omitted otherwise; it is the
// sole authority for whether Verify/Decode must inflate the payload.
type Header struct {
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid"`
	Type      string `json:"typ"`
	Zip       string `json:"zip,omitempty"`
}

// Payload is the JWT claims set signed inside the JWS: issuer, not-before,
// optional expiry, and the vc.vc claims body.
type Payload struct {
	Issuer    string          `json:"iss"`
	NotBefore int64           `json:"nbf"`
	Expiry    *int64          `json:"exp,omitempty"`
	VC        json.RawMessage `json:"vc"`
}

func (p Payload) validate() error {
	if strings.TrimSpace(p.Issuer) == "" {
		return shcerr.New(shcerr.Jws, "iss must be non-empty")
	}
	if p.Expiry != nil && *p.Expiry <= p.NotBefore {
		return shcerr.New(shcerr.Jws, "exp must be greater than nbf")
	}
	if len(p.VC) == 0 || string(p.VC) == "null" {
		return shcerr.New(shcerr.Jws, "vc must be present")
	}
	var asObject map[string]interface{}
	if err := json.Unmarshal(p.VC, &asObject); err != nil {
		return shcerr.New(shcerr.Jws, "vc must be a JSON object")
	}
	return nil
}

// Sign builds the protected header, optionally raw-DEFLATEs the payload,
// and signs the resulting compact JWS with ECDSA P-256/SHA-256, returning
// the signature in fixed-length (P1363) form. Compression happens before
// signing and verification happens before decompression — this ordering
// is security-relevant per spec.md §5 and must not be reversed.
func Sign(payload Payload, key *ecdsa.PrivateKey, kid string, enableCompression bool) (string, error) {
	if err := payload.validate(); err != nil {
		return "", err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", shcerr.Wrap(shcerr.Jws, "failed to serialize payload", err)
	}

	header := Header{Algorithm: algorithm, KeyID: kid, Type: "JWT"}

	payloadBytes := payloadJSON
	if enableCompression {
		header.Zip = "DEF"
		payloadBytes, err = codec.Deflate(payloadJSON)
		if err != nil {
			return "", shcerr.Wrap(shcerr.Jws, "failed to compress payload", err)
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", shcerr.Wrap(shcerr.Jws, "failed to serialize header", err)
	}

	headerB64 := codec.EncodeBase64URL(headerJSON)
	payloadB64 := codec.EncodeBase64URL(payloadBytes)

	signature, err := sign(key, headerB64+"."+payloadB64)
	if err != nil {
		return "", shcerr.Wrap(shcerr.Jws, "failed to sign", err)
	}

	return headerB64 + "." + payloadB64 + "." + codec.EncodeBase64URL(signature), nil
}

func sign(key *ecdsa.PrivateKey, signingInput string) ([]byte, error) {
	hash := sha256.Sum256([]byte(signingInput))
	r, s, err := ecdsa.Sign(rand.Reader, key, hash[:])
	if err != nil {
		return nil, err
	}
	sig := make([]byte, 2*curveByteSize)
	r.FillBytes(sig[:curveByteSize])
	s.FillBytes(sig[curveByteSize:])
	return sig, nil
}

// Verify checks the compact JWS's signature, decompresses the payload if
// the header says to, and returns the validated Payload.
func Verify(token string, key *ecdsa.PublicKey) (Payload, error) {
	headerB64, payloadB64, sigB64, err := splitCompact(token)
	if err != nil {
		return Payload{}, err
	}

	headerJSON, err := codec.DecodeBase64URL(headerB64)
	if err != nil {
		return Payload{}, shcerr.Wrap(shcerr.Jws, "invalid header encoding", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Payload{}, shcerr.Wrap(shcerr.Jws, "invalid header JSON", err)
	}
	if header.Algorithm != algorithm {
		return Payload{}, shcerr.Newf(shcerr.Jws, "unsupported alg %q", header.Algorithm)
	}

	signature, err := codec.DecodeBase64URL(sigB64)
	if err != nil {
		return Payload{}, shcerr.Wrap(shcerr.Jws, "invalid signature encoding", err)
	}
	if len(signature) != 2*curveByteSize {
		return Payload{}, shcerr.Newf(shcerr.Jws, "signature must be %d bytes in P1363 form, got %d", 2*curveByteSize, len(signature))
	}

	if err := verifySignature(key, headerB64+"."+payloadB64, signature); err != nil {
		return Payload{}, shcerr.Wrap(shcerr.Jws, "signature verification failed", err)
	}

	payloadBytes, err := codec.DecodeBase64URL(payloadB64)
	if err != nil {
		return Payload{}, shcerr.Wrap(shcerr.Jws, "invalid payload encoding", err)
	}

	return decodePayloadBytes(header, payloadBytes)
}

// Decode parses header and payload without checking the signature, for
// diagnostics. It applies the same decompression rule as Verify and still
// enforces payload structural invariants.
func Decode(token string) (Header, Payload, error) {
	headerB64, payloadB64, _, err := splitCompact(token)
	if err != nil {
		return Header{}, Payload{}, err
	}

	headerJSON, err := codec.DecodeBase64URL(headerB64)
	if err != nil {
		return Header{}, Payload{}, shcerr.Wrap(shcerr.Jws, "invalid header encoding", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Header{}, Payload{}, shcerr.Wrap(shcerr.Jws, "invalid header JSON", err)
	}

	payloadBytes, err := codec.DecodeBase64URL(payloadB64)
	if err != nil {
		return Header{}, Payload{}, shcerr.Wrap(shcerr.Jws, "invalid payload encoding", err)
	}

	payload, err := decodePayloadBytes(header, payloadBytes)
	return header, payload, err
}

func decodePayloadBytes(header Header, payloadBytes []byte) (Payload, error) {
	if header.Zip == "DEF" {
		inflated, err := codec.Inflate(payloadBytes)
		if err != nil {
			return Payload{}, shcerr.Wrap(shcerr.Jws, "failed to decompress payload", err)
		}
		payloadBytes = inflated
	}

	var payload Payload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return Payload{}, shcerr.Wrap(shcerr.Jws, "invalid payload JSON", err)
	}
	if err := payload.validate(); err != nil {
		return Payload{}, err
	}
	return payload, nil
}

func splitCompact(token string) (header, payload, signature string, err error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", "", "", shcerr.New(shcerr.Jws, "compact JWS must have exactly three dot-separated parts")
	}
	for _, p := range parts {
		if p == "" {
			return "", "", "", shcerr.New(shcerr.Jws, "compact JWS parts must be non-empty")
		}
	}
	return parts[0], parts[1], parts[2], nil
}

func verifySignature(key *ecdsa.PublicKey, signingInput string, signature []byte) error {
	r := new(big.Int).SetBytes(signature[:curveByteSize])
	s := new(big.Int).SetBytes(signature[curveByteSize:])

	hash := sha256.Sum256([]byte(signingInput))
	if !ecdsa.Verify(key, hash[:], r, s) {
		return shcerr.New(shcerr.Jws, "invalid signature")
	}
	return nil
}
