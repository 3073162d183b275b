// Package voting implements quadratic voting over loan requests: vote power
// grows with the square root of tokens spent, so conviction costs
// quadratically and whales cannot simply buy outcomes.
package voting

import "math"

// Vote is one cast ballot.
type Vote struct {
	VoterID string
	Approve bool
	Tokens  int
}

// Tally is the aggregated outcome of a vote set.
type Tally struct {
	ForPower           float64 `json:"for_power"`
	AgainstPower       float64 `json:"against_power"`
	TotalPower         float64 `json:"total_power"`
	ApprovalPercentage float64 `json:"approval_percentage"`
	TotalVoters        int     `json:"total_voters"`
	QuorumMet          bool    `json:"quorum_met"`
	Approved           bool    `json:"approved"`
}

// Impact is the simulated effect of one additional vote.
type Impact struct {
	CurrentApproval float64 `json:"current_approval"`
	NewApproval     float64 `json:"new_approval"`
	VotePower       float64 `json:"vote_power"`
	Shift           float64 `json:"shift"`
	WouldApprove    bool    `json:"would_approve"`
}

// Config tunes the tally rules.
type Config struct {
	// ApprovalThreshold is the percentage of total power that must vote
	// for approval. A tally exactly at the threshold approves.
	ApprovalThreshold float64
	// MinVoters is the quorum.
	MinVoters int
}

// DefaultConfig matches the platform rules: simple majority, three-voter
// quorum.
var DefaultConfig = Config{ApprovalThreshold: 50, MinVoters: 3}

// Power returns the voting power bought by tokens: sqrt(tokens), 0 for a
// non-positive spend.
func Power(tokens int) float64 {
	if tokens <= 0 {
		return 0
	}
	return math.Sqrt(float64(tokens))
}

// TallyVotes aggregates votes under cfg. The result is independent of vote
// order; zero-token votes count toward the voter count but carry no power.
func TallyVotes(votes []Vote, cfg Config) Tally {
	var t Tally
	for _, v := range votes {
		p := Power(v.Tokens)
		if v.Approve {
			t.ForPower += p
		} else {
			t.AgainstPower += p
		}
	}
	t.TotalPower = t.ForPower + t.AgainstPower
	if t.TotalPower > 0 {
		t.ApprovalPercentage = round2(t.ForPower / t.TotalPower * 100)
	}
	t.ForPower = round2(t.ForPower)
	t.AgainstPower = round2(t.AgainstPower)
	t.TotalPower = round2(t.TotalPower)
	t.TotalVoters = len(votes)
	t.QuorumMet = t.TotalVoters >= cfg.MinVoters
	t.Approved = t.QuorumMet && t.TotalPower > 0 && t.ApprovalPercentage >= cfg.ApprovalThreshold
	return t
}

// SimulateImpact reports how casting tokens for/against would shift the
// current approval percentage, without mutating the vote set.
func SimulateImpact(current []Vote, tokens int, approve bool, cfg Config) Impact {
	before := TallyVotes(current, cfg)
	proposed := append(append([]Vote(nil), current...), Vote{Approve: approve, Tokens: tokens})
	after := TallyVotes(proposed, cfg)

	return Impact{
		CurrentApproval: before.ApprovalPercentage,
		NewApproval:     after.ApprovalPercentage,
		VotePower:       round2(Power(tokens)),
		Shift:           round2(after.ApprovalPercentage - before.ApprovalPercentage),
		WouldApprove:    after.Approved,
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
