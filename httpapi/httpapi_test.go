package httpapi

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vintasoftware/kill-the-clipboard/fhirbundle"
	"github.com/vintasoftware/kill-the-clipboard/qrcode"
	"github.com/vintasoftware/kill-the-clipboard/shc"
)

func generateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func newTestServer(t *testing.T) (*Server, *ecdsa.PrivateKey) {
	t.Helper()
	key := generateKey(t)
	card := shc.New(shc.Config{Issuer: "https://issuer.example.com", PrivateKey: key, PublicKey: &key.PublicKey})
	qr := qrcode.New(qrcode.Config{})
	return New(card, qr, &key.PublicKey, nil), key
}

func TestHandleJWKSReturnsPublicKey(t *testing.T) {
	server, key := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	keys, ok := body["keys"].([]interface{})
	require.True(t, ok)
	require.Len(t, keys, 1)
	_ = key
}

func TestHandleJWKSRejectsNonGet(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/.well-known/jwks.json", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func sampleBundleJSON() []byte {
	bundle := fhirbundle.Bundle{
		ResourceType: "Bundle",
		Type:         "collection",
		Entries: []fhirbundle.Entry{
			{Resource: map[string]interface{}{"resourceType": "Patient"}},
		},
	}
	out, _ := json.Marshal(map[string]interface{}{"bundle": bundle})
	return out
}

func TestHandleIssueReturnsJWS(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/issue", bytes.NewReader(sampleBundleJSON()))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["jws"])
}

func TestHandleIssueReturnsQrCodesWhenRequested(t *testing.T) {
	server, _ := newTestServer(t)

	var req map[string]interface{}
	require.NoError(t, json.Unmarshal(sampleBundleJSON(), &req))
	req["asQrCodes"] = true
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/issue", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httpReq)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	qrCodes, ok := resp["qrCodes"].([]interface{})
	require.True(t, ok)
	assert.Len(t, qrCodes, 1)
}

func TestHandleIssueRejectsMalformedBody(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/issue", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
