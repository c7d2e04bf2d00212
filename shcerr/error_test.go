package shcerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindCodeStrings(t *testing.T) {
	cases := map[Kind]string{
		FhirValidation:   "FHIR_VALIDATION_ERROR",
		Jws:              "JWS_ERROR",
		QrCode:           "QR_CODE_ERROR",
		FileFormat:       "FILE_FORMAT_ERROR",
		FileVerification: "FILE_VERIFICATION_ERROR",
		Verification:     "VERIFICATION_ERROR",
		Creation:         "CREATION_ERROR",
	}
	for kind, code := range cases {
		assert.Equal(t, code, kind.String())
		assert.Equal(t, code, New(kind, "x").Code())
	}
}

func TestWrapPreservesExistingTypedError(t *testing.T) {
	original := New(QrCode, "overflow")
	wrapped := Wrap(Jws, "outer message", original)
	assert.Same(t, original, wrapped)
}

func TestWrapForeignErrorAttachesMessage(t *testing.T) {
	foreign := errors.New("boom")
	wrapped := Wrap(Jws, "compression failed", foreign)
	assert.Equal(t, foreign, wrapped.Unwrap())
	assert.Contains(t, wrapped.Error(), "boom")
	assert.Contains(t, wrapped.Error(), "compression failed")
	assert.True(t, errors.Is(wrapped, foreign))
}
