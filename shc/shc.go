// Package shc provides the SmartHealthCard facade: the single entry point
// that orchestrates Bundle normalization, VC wrapping, JWS signing/
// verification, and the .smart-health-card file wrapper. See
// https://spec.smarthealth.cards/.
package shc

import (
	"crypto/ecdsa"
	"encoding/json"
	"strings"
	"time"

	"github.com/vintasoftware/kill-the-clipboard/fhirbundle"
	"github.com/vintasoftware/kill-the-clipboard/jws"
	"github.com/vintasoftware/kill-the-clipboard/shcerr"
	"github.com/vintasoftware/kill-the-clipboard/vc"
)

// FileMIMEType is the MIME type of a .smart-health-card file, per spec.md
// §3's File wrapper data model.
const FileMIMEType = "application/smart-health-card"

// Config holds a SmartHealthCard instance's immutable, per-instance
// settings. Grounded on the teacher's webhandlers.Handlers, which likewise
// closes over a private key and issuer string for the lifetime of the
// handler; generalized here to the full set of facade-level knobs spec.md
// §4.6 names.
type Config struct {
	Issuer     string
	PrivateKey *ecdsa.PrivateKey
	PublicKey  *ecdsa.PublicKey
	// KeyID is used as the JWS "kid" header. If empty, Create derives one as
	// the RFC 7638 thumbprint of PrivateKey's public half.
	KeyID string
	// ExpirationSeconds, when non-zero, sets payload.exp = nbf +
	// ExpirationSeconds.
	ExpirationSeconds int64
	// EnableQROptimization selects fhirbundle.ProcessForQR over
	// fhirbundle.Process during Create.
	EnableQROptimization bool
	// EnableCompression defaults to true; set explicitly via
	// NewWithCompressionDisabled.
	enableCompression *bool
}

func (c Config) compressionEnabled() bool {
	if c.enableCompression == nil {
		return true
	}
	return *c.enableCompression
}

// SmartHealthCard is the immutable facade described by spec.md §4.6. A
// value is safe for concurrent read-only use (Create, Verify, file
// operations) from multiple goroutines, since it holds no mutable state
// after construction.
type SmartHealthCard struct {
	cfg Config
}

// New constructs a SmartHealthCard with EnableCompression defaulted to true.
func New(cfg Config) SmartHealthCard {
	return SmartHealthCard{cfg: cfg}
}

// NewWithCompressionDisabled constructs a SmartHealthCard with compression
// explicitly turned off, for hosts that need an uncompressed payload
// (spec.md §4.3 permits this as a configuration toggle).
func NewWithCompressionDisabled(cfg Config) SmartHealthCard {
	disabled := false
	cfg.enableCompression = &disabled
	return SmartHealthCard{cfg: cfg}
}

// VCOptions customizes the Verifiable Credential envelope Create builds.
type VCOptions = vc.Options

// Create runs the bundle through normalization (optionally the QR
// size-reduction rewrite), wraps it in a Verifiable Credential, builds the
// JWT payload with nbf/exp, and signs it, returning the compact JWS.
func (s SmartHealthCard) Create(bundle fhirbundle.Bundle, opts VCOptions) (string, error) {
	if s.cfg.PrivateKey == nil {
		return "", shcerr.New(shcerr.Creation, "no private key configured")
	}
	if strings.TrimSpace(s.cfg.Issuer) == "" {
		return "", shcerr.New(shcerr.Creation, "no issuer configured")
	}

	var processed fhirbundle.Bundle
	var err error
	if s.cfg.EnableQROptimization {
		processed, err = fhirbundle.ProcessForQR(bundle)
	} else {
		processed, err = fhirbundle.Process(bundle)
	}
	if err != nil {
		return "", err
	}

	credential := vc.Create(processed, opts)
	if err := vc.Validate(credential); err != nil {
		return "", err
	}

	vcClaim, err := json.Marshal(credential.VC)
	if err != nil {
		return "", shcerr.Wrap(shcerr.Creation, "failed to serialize vc claim", err)
	}

	nbf := time.Now().Unix()
	payload := jws.Payload{
		Issuer:    s.cfg.Issuer,
		NotBefore: nbf,
		VC:        vcClaim,
	}
	if s.cfg.ExpirationSeconds != 0 {
		exp := nbf + s.cfg.ExpirationSeconds
		payload.Expiry = &exp
	}

	kid := s.cfg.KeyID
	if kid == "" {
		kid = jws.Thumbprint(&s.cfg.PrivateKey.PublicKey)
	}

	token, err := jws.Sign(payload, s.cfg.PrivateKey, kid, s.cfg.compressionEnabled())
	if err != nil {
		return "", err
	}
	return token, nil
}

// Verify checks a compact JWS's signature and returns its Verifiable
// Credential envelope. Fails with VERIFICATION_ERROR if no public key is
// configured.
func (s SmartHealthCard) Verify(token string) (vc.VerifiableCredential, error) {
	if s.cfg.PublicKey == nil {
		return vc.VerifiableCredential{}, shcerr.New(shcerr.Verification, "no public key configured")
	}

	payload, err := jws.Verify(token, s.cfg.PublicKey)
	if err != nil {
		return vc.VerifiableCredential{}, err
	}

	var claims vc.Claims
	if err := json.Unmarshal(payload.VC, &claims); err != nil {
		return vc.VerifiableCredential{}, shcerr.Wrap(shcerr.Verification, "invalid vc claim", err)
	}
	credential := vc.VerifiableCredential{VC: claims}
	if err := vc.Validate(credential); err != nil {
		return vc.VerifiableCredential{}, err
	}
	return credential, nil
}

// GetBundle is a convenience wrapper around Verify returning just the FHIR
// Bundle.
func (s SmartHealthCard) GetBundle(token string) (fhirbundle.Bundle, error) {
	credential, err := s.Verify(token)
	if err != nil {
		return fhirbundle.Bundle{}, err
	}
	return credential.VC.CredentialSubject.FHIRBundle, nil
}

// fileWrapper is the { "verifiableCredential": [...] } JSON shape of a
// .smart-health-card file, per spec.md §3's File wrapper data model.
type fileWrapper struct {
	VerifiableCredential []string `json:"verifiableCredential"`
}

// CreateFile builds a signed JWS for bundle and returns it wrapped as
// .smart-health-card file JSON.
func (s SmartHealthCard) CreateFile(bundle fhirbundle.Bundle, opts VCOptions) (string, error) {
	token, err := s.Create(bundle, opts)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(fileWrapper{VerifiableCredential: []string{token}})
	if err != nil {
		return "", shcerr.Wrap(shcerr.Creation, "failed to serialize file wrapper", err)
	}
	return string(out), nil
}

// FileBlob pairs file JSON content with its MIME type, for hosts that need
// to set a Content-Type header or write a typed blob.
type FileBlob struct {
	Content  string
	MIMEType string
}

// CreateFileBlob is CreateFile plus the application/smart-health-card MIME
// type.
func (s SmartHealthCard) CreateFileBlob(bundle fhirbundle.Bundle, opts VCOptions) (FileBlob, error) {
	content, err := s.CreateFile(bundle, opts)
	if err != nil {
		return FileBlob{}, err
	}
	return FileBlob{Content: content, MIMEType: FileMIMEType}, nil
}

// VerifyFile parses a .smart-health-card file's JSON contents and verifies
// its first verifiableCredential entry.
func (s SmartHealthCard) VerifyFile(contents string) (vc.VerifiableCredential, error) {
	var wrapper fileWrapper
	if err := json.Unmarshal([]byte(contents), &wrapper); err != nil {
		return vc.VerifiableCredential{}, shcerr.Wrap(shcerr.FileFormat, "invalid file wrapper JSON", err)
	}
	if len(wrapper.VerifiableCredential) == 0 {
		return vc.VerifiableCredential{}, shcerr.New(shcerr.FileFormat, "file wrapper verifiableCredential array is empty")
	}
	credential, err := s.Verify(wrapper.VerifiableCredential[0])
	if err != nil {
		return vc.VerifiableCredential{}, shcerr.Wrap(shcerr.FileVerification, "file verifiableCredential failed verification", err)
	}
	return credential, nil
}
