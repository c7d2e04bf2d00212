// Package httpapi exposes a SmartHealthCard over HTTP: a JWKS discovery
// endpoint and an issuance endpoint. Generalized from the teacher's
// webhandlers.Handlers, which fused key storage, form parsing, and QR
// rendering into one type; here those concerns are split so the issuance
// endpoint accepts an already-built FHIR Bundle instead of a fixed
// COVID-19 immunization form.
package httpapi

import (
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vintasoftware/kill-the-clipboard/fhirbundle"
	"github.com/vintasoftware/kill-the-clipboard/jws"
	"github.com/vintasoftware/kill-the-clipboard/qrcode"
	"github.com/vintasoftware/kill-the-clipboard/shc"
)

// Server wires a SmartHealthCard and a QrGenerator to HTTP handlers.
type Server struct {
	card   shc.SmartHealthCard
	qr     qrcode.QrGenerator
	log    *logrus.Logger
	pubKey *ecdsa.PublicKey
}

// New builds a Server. log defaults to logrus.StandardLogger() when nil.
func New(card shc.SmartHealthCard, qr qrcode.QrGenerator, pubKey *ecdsa.PublicKey, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{card: card, qr: qr, log: log, pubKey: pubKey}
}

// Handler returns an http.Handler routing GET /.well-known/jwks.json and
// POST /issue, logging method, path and duration for every request.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", s.logged(s.handleJWKS))
	mux.HandleFunc("/issue", s.logged(s.handleIssue))
	return mux
}

func (s *Server) logged(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start).String(),
		}).Info("handled request")
	}
}

// handleJWKS writes the JSON Web Key Set representation of the
// configured signing key's public half, per spec.md §1's "discovering
// public keys" external collaborator.
func (s *Server) handleJWKS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jwksJSON, err := json.Marshal(jws.PublicJWKS(s.pubKey))
	if err != nil {
		s.log.WithError(err).Error("failed to serialize JWKS")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "application/json")
	w.Write(jwksJSON)
}

// issueRequest is the POST /issue body: a FHIR Bundle and whether the
// response should be QR-encoded.
type issueRequest struct {
	Bundle          fhirbundle.Bundle `json:"bundle"`
	AsQrCodes       bool              `json:"asQrCodes"`
	AdditionalTypes []string          `json:"additionalTypes,omitempty"`
}

type issueResponse struct {
	JWS     string   `json:"jws,omitempty"`
	QrCodes []string `json:"qrCodes,omitempty"`
}

// handleIssue builds and signs a SMART Health Card from the posted Bundle,
// optionally rendering it as one or more QR codes.
func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, err := s.card.Create(req.Bundle, shc.VCOptions{AdditionalTypes: req.AdditionalTypes})
	if err != nil {
		s.log.WithError(err).Warn("failed to create health card")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := issueResponse{}
	if req.AsQrCodes {
		qrCodes, err := s.qr.GenerateQR(token)
		if err != nil {
			s.log.WithError(err).Warn("failed to generate QR codes")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp.QrCodes = qrCodes
	} else {
		resp.JWS = token
	}

	respJSON, err := json.Marshal(resp)
	if err != nil {
		s.log.WithError(err).Error("failed to serialize response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(respJSON)
}
