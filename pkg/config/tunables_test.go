package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, DefaultTunables().Validate())
}

func TestMissingFileYieldsDefaults(t *testing.T) {
	got, err := LoadTunables(filepath.Join(t.TempDir(), "kredefy.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultTunables(), got)
}

func TestOverridesMergeOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kredefy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit_per_minute: 120\n"), 0o600))

	got, err := LoadTunables(path)
	require.NoError(t, err)

	assert.Equal(t, 120, got.RateLimitPerMinute)
	// Untouched sections keep their defaults.
	assert.Equal(t, 3, got.MinVoters)
	assert.Len(t, got.Badges, 3)
	assert.Equal(t, 5, got.VouchLevels["basic"].TrustImpact)
}

func TestMalformedYAMLIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kredefy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rate_limit_per_minute: [nope"), 0o600))

	_, err := LoadTunables(path)
	assert.Error(t, err)
}

func TestValidateRejectsBrokenRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tunables)
	}{
		{"zero rate limit", func(tn *Tunables) { tn.RateLimitPerMinute = 0 }},
		{"threshold above 100", func(tn *Tunables) { tn.ApprovalThreshold = 101 }},
		{"no quorum", func(tn *Tunables) { tn.MinVoters = 0 }},
		{"missing vouch level", func(tn *Tunables) { delete(tn.VouchLevels, "strong") }},
		{"inverted stake bounds", func(tn *Tunables) {
			tn.VouchLevels["basic"] = VouchLevelRule{MinStake: 50, MaxStake: 10, TrustImpact: 5}
		}},
		{"badge without requirement", func(tn *Tunables) {
			tn.Badges = append(tn.Badges, BadgeRule{ID: "broken", Threshold: 1})
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tn := DefaultTunables()
			tc.mutate(&tn)
			assert.Error(t, tn.Validate())
		})
	}
}

func TestLoadSettingsDefaults(t *testing.T) {
	s, err := LoadSettings()
	require.NoError(t, err)

	assert.Equal(t, "8000", s.HTTPPort)
	assert.Equal(t, "llama-3.3-70b-versatile", s.LLM.Model)
	assert.Equal(t, 5432, s.Database.Port)
}
