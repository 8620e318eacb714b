// Package signature authenticates ingress requests before any processing.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/drblury/ingressflow/internal/runtime/listener"
)

// DefaultHeader carries the hex HMAC-SHA256 of the request body.
const DefaultHeader = "X-Ingress-Signature"

// Verifier decides whether a request may be processed.
type Verifier interface {
	Verify(req *listener.Request) bool
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(req *listener.Request) bool

func (f VerifierFunc) Verify(req *listener.Request) bool { return f(req) }

// AllowAll accepts every request. It is used when no secrets are configured.
func AllowAll() Verifier {
	return VerifierFunc(func(*listener.Request) bool { return true })
}

// HMACVerifier checks the body signature against every configured secret so
// secrets can be rotated without downtime.
type HMACVerifier struct {
	Secrets [][]byte
	Header  string
}

// NewHMACVerifier copies secrets, dropping empty ones. An empty header uses
// DefaultHeader.
func NewHMACVerifier(header string, secrets ...string) *HMACVerifier {
	if header == "" {
		header = DefaultHeader
	}
	v := &HMACVerifier{Header: header}
	for _, s := range secrets {
		if s == "" {
			continue
		}
		v.Secrets = append(v.Secrets, []byte(s))
	}
	return v
}

// New returns an HMACVerifier when at least one secret is set, AllowAll
// otherwise.
func New(header string, secrets []string) Verifier {
	v := NewHMACVerifier(header, secrets...)
	if len(v.Secrets) == 0 {
		return AllowAll()
	}
	return v
}

// Verify accepts the bare hex digest or a "sha256=" prefixed one.
func (v *HMACVerifier) Verify(req *listener.Request) bool {
	if v == nil || req == nil || len(v.Secrets) == 0 {
		return false
	}
	sigHex := strings.TrimSpace(req.Header.Get(v.Header))
	sigHex = strings.TrimPrefix(sigHex, "sha256=")
	got, err := hex.DecodeString(sigHex)
	if err != nil || len(got) == 0 {
		return false
	}

	for _, secret := range v.Secrets {
		if subtle.ConstantTimeCompare(got, Sign(secret, req.Body)) == 1 {
			return true
		}
	}
	return false
}

// Sign returns the raw HMAC-SHA256 of body.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return mac.Sum(nil)
}

// SignHex returns the hex encoded signature producers send.
func SignHex(secret string, body []byte) string {
	return hex.EncodeToString(Sign([]byte(secret), body))
}
