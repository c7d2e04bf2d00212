package qrcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRasterizer records the content it was asked to rasterize instead of
// rendering a PNG, so tests can assert on QR content shape without decoding
// images.
type stubRasterizer struct {
	rendered []string
}

func (s *stubRasterizer) Rasterize(content string, _ EncodeOptions) (string, error) {
	s.rendered = append(s.rendered, content)
	return content, nil
}

func repeatJws(n int) string {
	// Not a real compact JWS (no dot separators): only its length matters
	// for qrcode's boundary behavior.
	return strings.Repeat("A", n)
}

func TestGenerateQRAtExactlyMaxSingleQrSizeProducesOneQR(t *testing.T) {
	stub := &stubRasterizer{}
	g := New(Config{MaxSingleQrSize: 100, Rasterizer: stub})

	outputs, err := g.GenerateQR(repeatJws(100))
	require.NoError(t, err)
	assert.Len(t, outputs, 1)
	assert.True(t, strings.HasPrefix(outputs[0], prefix))
}

func TestGenerateQROneOverMaxWithChunkingDisabledFails(t *testing.T) {
	stub := &stubRasterizer{}
	g := New(Config{MaxSingleQrSize: 100, Rasterizer: stub})

	_, err := g.GenerateQR(repeatJws(101))
	require.Error(t, err)
}

func TestGenerateQROneOverMaxWithChunkingEnabledProducesMultipleQRs(t *testing.T) {
	stub := &stubRasterizer{}
	g := New(Config{MaxSingleQrSize: 100, EnableChunking: true, Rasterizer: stub})

	outputs, err := g.GenerateQR(repeatJws(101))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(outputs), 2)
	for i, out := range outputs {
		assert.Contains(t, out, strings.TrimSuffix(prefix, "/")+"/"+itoa(i+1)+"/"+itoa(len(outputs))+"/")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func TestGenerateQRChunksRoundTripThroughScanQR(t *testing.T) {
	stub := &stubRasterizer{}
	g := New(Config{MaxSingleQrSize: 100, EnableChunking: true, Rasterizer: stub})

	jws := repeatJws(250)
	outputs, err := g.GenerateQR(jws)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(outputs), 2)

	recovered, err := ScanQR(stub.rendered)
	require.NoError(t, err)
	assert.Equal(t, jws, recovered)
}

func TestGenerateQRSingleRoundTripsThroughScanQR(t *testing.T) {
	stub := &stubRasterizer{}
	g := New(Config{Rasterizer: stub})

	jws := repeatJws(50)
	outputs, err := g.GenerateQR(jws)
	require.NoError(t, err)
	require.Len(t, outputs, 1)

	recovered, err := ScanQR(stub.rendered)
	require.NoError(t, err)
	assert.Equal(t, jws, recovered)
}

func TestScanQRRejectsMissingPrefix(t *testing.T) {
	_, err := ScanQR([]string{"0102030405"})
	require.Error(t, err)
}

func TestScanQRRejectsEmptyInput(t *testing.T) {
	_, err := ScanQR(nil)
	require.Error(t, err)
}

func TestScanQRRejectsInconsistentTotals(t *testing.T) {
	_, err := ScanQR([]string{"shc:/1/2/0102", "shc:/2/3/0304"})
	require.Error(t, err)
}

func TestScanQRRejectsMissingChunk(t *testing.T) {
	_, err := ScanQR([]string{"shc:/1/3/0102", "shc:/3/3/0304"})
	require.Error(t, err)
}

func TestScanQRRejectsOutOfRangeIndex(t *testing.T) {
	_, err := ScanQR([]string{"shc:/1/2/0102", "shc:/4/2/0304"})
	require.Error(t, err)
}

func TestScanQRReassemblesOutOfOrderChunks(t *testing.T) {
	// chunk 2 arrives before chunk 1
	recovered, err := ScanQR([]string{"shc:/2/2/0304", "shc:/1/2/0102"})
	require.NoError(t, err)
	assert.Equal(t, "./01", recovered)
}
