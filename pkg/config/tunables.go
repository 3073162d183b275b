package config

import (
	"errors"
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Tunables are the operator-adjustable platform rules read from
// kredefy.yaml. Anything unset in the file keeps its built-in default.
type Tunables struct {
	RateLimitPerMinute int                       `yaml:"rate_limit_per_minute"`
	ApprovalThreshold  float64                   `yaml:"approval_threshold"`
	MinVoters          int                       `yaml:"min_voters"`
	VouchLevels        map[string]VouchLevelRule `yaml:"vouch_levels"`
	Badges             []BadgeRule               `yaml:"badges"`
	TTSVoices          map[string]string         `yaml:"tts_voices"`
}

// VouchLevelRule bounds the stake and fixes the trust impact of one vouch
// tier.
type VouchLevelRule struct {
	MinStake    float64 `yaml:"min_stake"`
	MaxStake    float64 `yaml:"max_stake"`
	TrustImpact int     `yaml:"trust_impact"`
}

// BadgeRule declares one earnable badge as a threshold over a UserStats
// field named by Requirement.
type BadgeRule struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	XP          int    `yaml:"xp"`
	Requirement string `yaml:"requirement"`
	Threshold   int    `yaml:"threshold"`
}

// DefaultTunables returns the shipped platform rules.
func DefaultTunables() Tunables {
	return Tunables{
		RateLimitPerMinute: 60,
		ApprovalThreshold:  50,
		MinVoters:          3,
		VouchLevels: map[string]VouchLevelRule{
			"basic":   {MinStake: 10, MaxStake: 50, TrustImpact: 5},
			"strong":  {MinStake: 50, MaxStake: 200, TrustImpact: 10},
			"maximum": {MinStake: 200, MaxStake: 500, TrustImpact: 20},
		},
		Badges: []BadgeRule{
			{ID: "the_anchor", Name: "The Anchor", Description: "Backed 10 members who repaid in full", Icon: "⚓", XP: 500, Requirement: "successful_vouches", Threshold: 10},
			{ID: "comeback_kid", Name: "Comeback Kid", Description: "Recovered from a default and rebuilt trust", Icon: "🔥", XP: 300, Requirement: "recovered_defaults", Threshold: 1},
			{ID: "early_believer", Name: "Early Believer", Description: "Vouched for 5 members before their first loan", Icon: "🌱", XP: 400, Requirement: "early_vouches", Threshold: 5},
		},
		TTSVoices: map[string]string{
			"en": "pNInz6obpgDQGcFmaJgB",
			"hi": "21m00Tcm4TlvDq8ikWAM",
			"ml": "21m00Tcm4TlvDq8ikWAM",
		},
	}
}

// LoadTunables reads path if it exists and merges it over the defaults.
// A missing file is fine; a malformed one is not.
func LoadTunables(path string) (Tunables, error) {
	defaults := DefaultTunables()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return defaults, nil
	}
	if err != nil {
		return Tunables{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var overrides Tunables
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return Tunables{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	// Overrides win; defaults fill whatever the file leaves unset.
	if err := mergo.Merge(&overrides, defaults); err != nil {
		return Tunables{}, fmt.Errorf("merging tunables: %w", err)
	}
	return overrides, nil
}

// Validate rejects tunables that would break platform invariants.
func (t Tunables) Validate() error {
	if t.RateLimitPerMinute <= 0 {
		return errors.New("rate_limit_per_minute must be positive")
	}
	if t.ApprovalThreshold <= 0 || t.ApprovalThreshold > 100 {
		return errors.New("approval_threshold must be in (0, 100]")
	}
	if t.MinVoters < 1 {
		return errors.New("min_voters must be at least 1")
	}
	for _, level := range []string{"basic", "strong", "maximum"} {
		rule, ok := t.VouchLevels[level]
		if !ok {
			return fmt.Errorf("vouch level %q missing", level)
		}
		if rule.MinStake <= 0 || rule.MaxStake < rule.MinStake {
			return fmt.Errorf("vouch level %q has invalid stake bounds", level)
		}
	}
	for _, b := range t.Badges {
		if b.ID == "" || b.Requirement == "" || b.Threshold <= 0 {
			return fmt.Errorf("badge %q is incomplete", b.ID)
		}
	}
	return nil
}
