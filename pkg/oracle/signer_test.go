package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAssessment() Assessment {
	return Assessment{
		RiskScore: 72,
		Category:  "LOW_RISK",
		MaxLoan:   25000,
		Timestamp: "2026-08-26T10:00:00Z",
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s := NewSigner("secret-key")
	sig, err := s.Sign(sampleAssessment())
	require.NoError(t, err)

	assert.True(t, sig.Signed)
	assert.True(t, s.Verify(sampleAssessment(), sig))
}

func TestVerifyRejectsTamperedAssessment(t *testing.T) {
	s := NewSigner("secret-key")
	sig, err := s.Sign(sampleAssessment())
	require.NoError(t, err)

	tampered := sampleAssessment()
	tampered.MaxLoan = 50000
	assert.False(t, s.Verify(tampered, sig))
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	sig, err := NewSigner("key-a").Sign(sampleAssessment())
	require.NoError(t, err)
	assert.False(t, NewSigner("key-b").Verify(sampleAssessment(), sig))
}

func TestUnkeyedSignerPublishesDigestOnly(t *testing.T) {
	s := NewSigner("")
	sig, err := s.Sign(sampleAssessment())
	require.NoError(t, err)

	assert.False(t, sig.Signed)
	assert.Len(t, sig.Value, 64)
	assert.True(t, s.Verify(sampleAssessment(), sig))
}

func TestSignatureIsDeterministic(t *testing.T) {
	s := NewSigner("secret-key")
	a, err := s.Sign(sampleAssessment())
	require.NoError(t, err)
	b, err := s.Sign(sampleAssessment())
	require.NoError(t, err)
	assert.Equal(t, a.Value, b.Value)
}
