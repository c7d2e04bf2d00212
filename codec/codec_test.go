package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase64URLRoundTrip(t *testing.T) {
	in := []byte{0, 1, 2, 250, 251, 252, 253, 254, 255}
	encoded := EncodeBase64URL(in)
	assert.NotContains(t, encoded, "=")
	decoded, err := DecodeBase64URL(encoded)
	require.NoError(t, err)
	assert.Equal(t, in, decoded)
}

func TestDecodeBase64URLAcceptsStandardAlphabetAndPadding(t *testing.T) {
	in := []byte{0xfb, 0xff}

	// base64 standard alphabet encoding of `in`, with padding retained.
	const stdEncoded = "+/8="
	decoded, err := DecodeBase64URL(stdEncoded)
	require.NoError(t, err)
	assert.Equal(t, in, decoded)
}

func TestDeflateInflateRoundTrip(t *testing.T) {
	in := []byte(`{"iss":"https://example.com","nbf":1600000000,"vc":{}}`)
	compressed, err := Deflate(in)
	require.NoError(t, err)
	assert.NotEqual(t, in, compressed)

	decompressed, err := Inflate(compressed)
	require.NoError(t, err)
	assert.Equal(t, in, decompressed)
}

func TestEncodeJwsToNumericKnownValues(t *testing.T) {
	cases := map[string]string{
		"-": "00",
		"A": "20",
		"a": "52",
		"z": "77",
		"0": "03",
		"9": "12",
	}
	for in, want := range cases {
		got, err := EncodeJwsToNumeric(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNumericRoundTripFullAlphabet(t *testing.T) {
	const jws = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-_." +
		"header.payload.signature"
	numeric, err := EncodeJwsToNumeric(jws)
	require.NoError(t, err)
	roundTripped, err := DecodeNumericToJws(numeric)
	require.NoError(t, err)
	assert.Equal(t, jws, roundTripped)
}

func TestDecodeNumericToJwsRejectsOddLength(t *testing.T) {
	_, err := DecodeNumericToJws("123")
	require.Error(t, err)
}

func TestDecodeNumericToJwsRejectsPairAboveMax(t *testing.T) {
	_, err := DecodeNumericToJws("99")
	require.Error(t, err)
}

func TestEncodeJwsToNumericRejectsOutOfRangeChar(t *testing.T) {
	_, err := EncodeJwsToNumeric("\x00")
	require.Error(t, err)
}
