// Package oracle signs risk assessments so downstream consumers can verify
// that a published score has not been tampered with. The signature covers a
// canonical JSON encoding with sorted keys; without a configured key the
// digest itself is published and the payload is marked unsigned.
package oracle

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Assessment is the signed portion of a risk verdict.
type Assessment struct {
	RiskScore int    `json:"risk_score"`
	Category  string `json:"category"`
	MaxLoan   int    `json:"max_loan"`
	Timestamp string `json:"timestamp"`
}

// Signature is the signing result attached to a published assessment.
type Signature struct {
	Value  string `json:"signature"`
	Signed bool   `json:"signed"`
}

// Signer produces and verifies assessment signatures.
type Signer struct {
	key []byte
}

// NewSigner creates a signer. An empty key yields digest-only, unsigned
// output.
func NewSigner(key string) *Signer {
	if key == "" {
		return &Signer{}
	}
	return &Signer{key: []byte(key)}
}

// Keyed reports whether the signer has a signing key configured.
func (s *Signer) Keyed() bool { return len(s.key) > 0 }

// Sign computes the signature for the assessment. With a key the value is
// an HMAC-SHA256 over the canonical digest; without one it is the bare
// SHA-256 digest and Signed is false.
func (s *Signer) Sign(a Assessment) (Signature, error) {
	digest, err := canonicalDigest(a)
	if err != nil {
		return Signature{}, err
	}
	if !s.Keyed() {
		return Signature{Value: digest, Signed: false}, nil
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(digest))
	return Signature{Value: hex.EncodeToString(mac.Sum(nil)), Signed: true}, nil
}

// Verify checks sig against the assessment. Digest-only signatures verify
// against the recomputed digest.
func (s *Signer) Verify(a Assessment, sig Signature) bool {
	want, err := s.Sign(a)
	if err != nil {
		return false
	}
	if want.Signed != sig.Signed {
		return false
	}
	return hmac.Equal([]byte(want.Value), []byte(sig.Value))
}

// canonicalDigest hex-encodes the SHA-256 of the assessment marshalled with
// alphabetically sorted keys. json.Marshal on a map sorts keys, which keeps
// the encoding stable across field reordering.
func canonicalDigest(a Assessment) (string, error) {
	canonical, err := json.Marshal(map[string]any{
		"risk_score": a.RiskScore,
		"category":   a.Category,
		"max_loan":   a.MaxLoan,
		"timestamp":  a.Timestamp,
	})
	if err != nil {
		return "", fmt.Errorf("encoding assessment: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
