// Package vc builds and validates the W3C Verifiable Credential envelope
// used as a SMART Health Card's JWT "vc" claim. See
// https://spec.smarthealth.cards/#every-health-card-includes-fhir-data
// and https://www.w3.org/TR/vc-data-model/.
package vc

import (
	"regexp"

	"github.com/vintasoftware/kill-the-clipboard/fhirbundle"
	"github.com/vintasoftware/kill-the-clipboard/shcerr"
)

// HealthCardType is the URI every SMART Health Card's vc.type array must
// include.
const HealthCardType = "https://smarthealth.cards#health-card"

// DefaultFHIRVersion is used when the caller does not specify one.
const DefaultFHIRVersion = "4.0.1"

var fhirVersionPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// CredentialSubject wraps the FHIR payload of a Verifiable Credential.
type CredentialSubject struct {
	FHIRVersion string            `json:"fhirVersion"`
	FHIRBundle  fhirbundle.Bundle `json:"fhirBundle"`
}

// Claims is the "vc" claim body: an ordered type list and the credential
// subject.
type Claims struct {
	Type              []string          `json:"type"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
}

// VerifiableCredential is the full { vc: Claims } envelope.
type VerifiableCredential struct {
	VC Claims `json:"vc"`
}

// Options customizes Create beyond spec.md's defaults.
type Options struct {
	// FHIRVersion overrides DefaultFHIRVersion when non-empty.
	FHIRVersion string
	// AdditionalTypes are appended after HealthCardType in vc.type.
	AdditionalTypes []string
}

// Create builds a VerifiableCredential wrapping bundle.
func Create(bundle fhirbundle.Bundle, opts Options) VerifiableCredential {
	version := opts.FHIRVersion
	if version == "" {
		version = DefaultFHIRVersion
	}

	types := make([]string, 0, len(opts.AdditionalTypes)+1)
	types = append(types, HealthCardType)
	types = append(types, opts.AdditionalTypes...)

	return VerifiableCredential{
		VC: Claims{
			Type: types,
			CredentialSubject: CredentialSubject{
				FHIRVersion: version,
				FHIRBundle:  bundle,
			},
		},
	}
}

// Validate enforces the VC invariants from spec.md §3: type must contain
// HealthCardType, fhirVersion must match \d+\.\d+\.\d+, and fhirBundle must
// be a structurally valid Bundle.
func Validate(v VerifiableCredential) error {
	if !containsHealthCardType(v.VC.Type) {
		return shcerr.Newf(shcerr.FhirValidation, "vc.type must include %q", HealthCardType)
	}
	if !fhirVersionPattern.MatchString(v.VC.CredentialSubject.FHIRVersion) {
		return shcerr.Newf(shcerr.FhirValidation, "vc.credentialSubject.fhirVersion %q is not of the form N.N.N", v.VC.CredentialSubject.FHIRVersion)
	}
	if err := fhirbundle.Validate(v.VC.CredentialSubject.FHIRBundle); err != nil {
		return err
	}
	return nil
}

func containsHealthCardType(types []string) bool {
	for _, t := range types {
		if t == HealthCardType {
			return true
		}
	}
	return false
}
