package agent

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kredefy/backend/pkg/trace"
)

// Fraud verdicts by accumulated risk, first match wins.
const (
	VerdictBlock  = "BLOCK"
	VerdictReview = "REVIEW"
	VerdictWarn   = "WARN"
	VerdictClear  = "CLEAR"
)

// FraudSignal is one tripped pattern check.
type FraudSignal struct {
	Check      string  `json:"check"`
	Reason     string  `json:"reason"`
	RiskWeight float64 `json:"risk_weight"`
}

// FraudResult is the FraudGuard payload.
type FraudResult struct {
	Verdict    string        `json:"verdict"`
	RiskLevel  float64       `json:"risk_level"`
	Signals    []FraudSignal `json:"signals"`
	CanProceed bool          `json:"can_proceed"`
}

// FraudGuard screens a user for four independent abuse patterns: request
// velocity, vouch collusion, behavioral mismatch and sybil circles.
type FraudGuard struct{}

// NewFraudGuard creates the agent.
func NewFraudGuard() *FraudGuard { return &FraudGuard{} }

func (a *FraudGuard) Name() string { return FraudGuardName }

// Execute runs all four checks and accumulates their risk weights.
func (a *FraudGuard) Execute(_ context.Context, ac *Context) (*Result, error) {
	tr := trace.New(FraudGuardName, "screen for fraud patterns")
	tr.Observe(fmt.Sprintf("screening user: %d loans, %d vouches received, %d circles",
		len(ac.Loans), len(ac.Vouches), len(ac.Circles)))

	var signals []FraudSignal
	for _, check := range []func(*Context) *FraudSignal{
		checkVelocity,
		checkCollusion,
		checkBehavior,
		checkSybil,
	} {
		if sig := check(ac); sig != nil {
			signals = append(signals, *sig)
			tr.Analyze(fmt.Sprintf("%s tripped: %s (weight %.2f)", sig.Check, sig.Reason, sig.RiskWeight), 0.85)
		}
	}

	var risk float64
	for _, s := range signals {
		risk += s.RiskWeight
	}
	risk = math.Min(risk, 1)

	verdict := fraudVerdict(risk)
	canProceed := verdict == VerdictClear || verdict == VerdictWarn
	tr.Hypothesize(fmt.Sprintf("accumulated risk %.2f from %d signals", risk, len(signals)))
	tr.Conclude(fmt.Sprintf("verdict %s, can_proceed=%v", verdict, canProceed))

	return &Result{
		AgentName: FraudGuardName,
		Success:   true,
		Payload: FraudResult{
			Verdict:    verdict,
			RiskLevel:  risk,
			Signals:    signals,
			CanProceed: canProceed,
		},
		Trace: tr,
	}, nil
}

// checkVelocity trips when more than 3 loan requests landed in 24 hours.
func checkVelocity(ac *Context) *FraudSignal {
	cutoff := ac.Now.Add(-24 * time.Hour)
	recent := 0
	for _, l := range ac.Loans {
		if l.CreatedAt.After(cutoff) {
			recent++
		}
	}
	if recent > 3 {
		return &FraudSignal{
			Check:      "velocity",
			Reason:     fmt.Sprintf("%d loan requests in the last 24h", recent),
			RiskWeight: 0.30,
		}
	}
	return nil
}

// checkCollusion trips when one voucher accounts for more than 80% of the
// received vouches.
func checkCollusion(ac *Context) *FraudSignal {
	if len(ac.Vouches) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, v := range ac.Vouches {
		counts[v.VoucherID]++
	}
	for voucher, n := range counts {
		if float64(n)/float64(len(ac.Vouches)) > 0.8 {
			return &FraudSignal{
				Check:      "collusion",
				Reason:     fmt.Sprintf("voucher %s accounts for %d of %d vouches", voucher, n, len(ac.Vouches)),
				RiskWeight: 0.40,
			}
		}
	}
	return nil
}

// checkBehavior trips on a high trust score with almost no loan history,
// which usually means farmed vouches.
func checkBehavior(ac *Context) *FraudSignal {
	if ac.TrustScore > 80 && len(ac.Loans) < 2 {
		return &FraudSignal{
			Check:      "behavior",
			Reason:     fmt.Sprintf("trust score %d with only %d loans", ac.TrustScore, len(ac.Loans)),
			RiskWeight: 0.25,
		}
	}
	return nil
}

// checkSybil trips when every circle is under a week old and the user has
// more than 5 vouches already.
func checkSybil(ac *Context) *FraudSignal {
	if len(ac.Circles) == 0 || len(ac.Vouches) <= 5 {
		return nil
	}
	cutoff := ac.Now.Add(-7 * 24 * time.Hour)
	for _, c := range ac.Circles {
		if !c.CreatedAt.After(cutoff) {
			return nil
		}
	}
	return &FraudSignal{
		Check:      "sybil",
		Reason:     fmt.Sprintf("all %d circles created within 7 days, %d vouches", len(ac.Circles), len(ac.Vouches)),
		RiskWeight: 0.35,
	}
}

func fraudVerdict(risk float64) string {
	switch {
	case risk >= 0.8:
		return VerdictBlock
	case risk >= 0.5:
		return VerdictReview
	case risk >= 0.3:
		return VerdictWarn
	default:
		return VerdictClear
	}
}
