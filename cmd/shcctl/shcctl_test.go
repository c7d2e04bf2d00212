package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vintasoftware/kill-the-clipboard/ecdsa"
)

func resetViper() {
	viper.Reset()
}

func writeKeyPair(t *testing.T, dir string) (privatePath, publicPath string) {
	t.Helper()
	key, err := ecdsa.GenerateKey()
	require.NoError(t, err)

	privatePEM, err := ecdsa.MarshalPrivateKeyPEM(key)
	require.NoError(t, err)
	publicPEM, err := ecdsa.MarshalPublicKeyPEM(&key.PublicKey)
	require.NoError(t, err)

	privatePath = filepath.Join(dir, "private.pem")
	publicPath = filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privatePath, privatePEM, 0600))
	require.NoError(t, os.WriteFile(publicPath, publicPEM, 0644))
	return privatePath, publicPath
}

func TestKeygenCommandPrintsPEMKeyPair(t *testing.T) {
	resetViper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"keygen"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "PRIVATE KEY")
	assert.Contains(t, out.String(), "PUBLIC KEY")
}

func TestCreateAndVerifyRoundTripThroughCLI(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	privatePath, publicPath := writeKeyPair(t, dir)

	bundlePath := filepath.Join(dir, "bundle.json")
	bundleJSON := `{"resourceType":"Bundle","type":"collection","entry":[{"resource":{"resourceType":"Patient"}}]}`
	require.NoError(t, os.WriteFile(bundlePath, []byte(bundleJSON), 0644))

	createCmd := newRootCmd()
	createOut := &bytes.Buffer{}
	createCmd.SetOut(createOut)
	createCmd.SetArgs([]string{
		"create",
		"--issuer", "https://issuer.example.com",
		"--private-key", privatePath,
		"--bundle", bundlePath,
	})
	require.NoError(t, createCmd.Execute())
	token := createOut.String()
	require.NotEmpty(t, token)

	resetViper()
	verifyCmd := newRootCmd()
	verifyOut := &bytes.Buffer{}
	verifyCmd.SetOut(verifyOut)
	verifyCmd.SetArgs([]string{
		"verify",
		"--public-key", publicPath,
		"--jws", trimNewline(token),
	})
	require.NoError(t, verifyCmd.Execute())

	var bundle map[string]interface{}
	require.NoError(t, json.Unmarshal(verifyOut.Bytes(), &bundle))
	assert.Equal(t, "Bundle", bundle["resourceType"])
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func TestCreateWithQROutWritesPNGFiles(t *testing.T) {
	resetViper()
	dir := t.TempDir()
	privatePath, _ := writeKeyPair(t, dir)

	bundlePath := filepath.Join(dir, "bundle.json")
	bundleJSON := `{"resourceType":"Bundle","type":"collection","entry":[{"resource":{"resourceType":"Patient"}}]}`
	require.NoError(t, os.WriteFile(bundlePath, []byte(bundleJSON), 0644))

	qrOutDir := filepath.Join(dir, "qr")
	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"create",
		"--issuer", "https://issuer.example.com",
		"--private-key", privatePath,
		"--bundle", bundlePath,
		"--qr-out", qrOutDir,
	})
	require.NoError(t, cmd.Execute())

	entries, err := os.ReadDir(qrOutDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDemoCommandProducesSignedToken(t *testing.T) {
	resetViper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"demo"})

	require.NoError(t, cmd.Execute())
	assert.NotEmpty(t, out.String())
}
