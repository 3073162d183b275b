package agent

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/oracle"
	"github.com/kredefy/backend/pkg/trace"
)

// Factor weights, summing to 1. Trust and repayment history dominate; the
// network factors refine.
const (
	weightTrust      = 0.25
	weightRepayment  = 0.25
	weightIncome     = 0.15
	weightVouch      = 0.15
	weightCircle     = 0.10
	weightLoanIncome = 0.10
)

// Risk categories by aggregate score, first match wins.
const (
	CategoryLowRisk      = "LOW_RISK"
	CategoryModerateRisk = "MODERATE_RISK"
	CategoryElevatedRisk = "ELEVATED_RISK"
	CategoryHighRisk     = "HIGH_RISK"
)

// RiskRecommendation is the lending envelope derived from a risk category.
type RiskRecommendation struct {
	MaxLoan      float64 `json:"max_loan"`
	InterestTier int     `json:"interest_tier"`
	InterestRate float64 `json:"interest_rate"`
}

// RiskResult is the RiskOracle payload written into the agent results map.
type RiskResult struct {
	RiskScore      float64            `json:"risk_score"`
	Category       string             `json:"category"`
	Factors        map[string]float64 `json:"factors"`
	Recommendation RiskRecommendation `json:"recommendation"`
	OraclePayload  OraclePayload      `json:"oracle_payload"`
}

// OraclePayload is the signed record published for on- and off-chain
// consumers. Scores are scaled to integers for deterministic serialization.
type OraclePayload struct {
	RiskScore          int            `json:"risk_score"`
	Category           string         `json:"category"`
	MaxRecommendedLoan int            `json:"max_recommended_loan"`
	InterestTier       int            `json:"interest_tier"`
	Timestamp          string         `json:"timestamp"`
	Factors            map[string]int `json:"factors"`
	Signature          string         `json:"signature"`
	Signed             bool           `json:"signed"`
}

// RiskOracle scores credit risk over six weighted behavioral factors and
// emits a signed assessment.
type RiskOracle struct {
	signer *oracle.Signer
}

// NewRiskOracle creates the agent with the given assessment signer.
func NewRiskOracle(signer *oracle.Signer) *RiskOracle {
	return &RiskOracle{signer: signer}
}

func (a *RiskOracle) Name() string { return RiskOracleName }

// Execute computes the six factors, aggregates, categorizes and signs.
func (a *RiskOracle) Execute(_ context.Context, ac *Context) (*Result, error) {
	tr := trace.New(RiskOracleName, "assess credit risk")
	tr.Observe(fmt.Sprintf("assessing user with trust score %d, %d loans, %d vouches",
		ac.TrustScore, len(ac.Loans), len(ac.Vouches)))

	factors := map[string]float64{
		"trust_score":       trustFactor(ac),
		"repayment_history": repaymentFactor(ac),
		"income_stability":  incomeStabilityFactor(ac),
		"vouch_strength":    vouchStrengthFactor(ac),
		"circle_health":     circleHealthFactor(ac),
		"loan_to_income":    loanToIncomeFactor(ac),
	}
	tr.Analyze(fmt.Sprintf(
		"factors: trust=%.2f repayment=%.2f income=%.2f vouch=%.2f circle=%.2f lti=%.2f",
		factors["trust_score"], factors["repayment_history"], factors["income_stability"],
		factors["vouch_strength"], factors["circle_health"], factors["loan_to_income"]))

	risk := clamp(
		factors["trust_score"]*weightTrust+
			factors["repayment_history"]*weightRepayment+
			factors["income_stability"]*weightIncome+
			factors["vouch_strength"]*weightVouch+
			factors["circle_health"]*weightCircle+
			factors["loan_to_income"]*weightLoanIncome,
		0, 1)

	category := categorize(risk)
	tr.Hypothesize(fmt.Sprintf("weighted risk score %.4f suggests %s", risk, category))

	rec := recommendFor(category)
	if outstanding := outstandingDebt(ac); outstanding > 0 {
		scale := math.Max(0.3, 1-outstanding/50000)
		rec.MaxLoan = rec.MaxLoan * scale
		tr.Analyze(fmt.Sprintf("outstanding debt ₹%.0f scales max loan by %.2f", outstanding, scale))
	}

	payload, err := a.buildOraclePayload(risk, category, rec, factors, ac.Now)
	if err != nil {
		return failed(tr, RiskOracleName, err), nil
	}
	tr.Act(fmt.Sprintf("published oracle payload, signed=%v", payload.Signed))

	tr.Conclude(fmt.Sprintf("%s: max loan ₹%.0f at tier %d", category, rec.MaxLoan, rec.InterestTier))

	return &Result{
		AgentName: RiskOracleName,
		Success:   true,
		Payload: RiskResult{
			RiskScore:      risk,
			Category:       category,
			Factors:        factors,
			Recommendation: rec,
			OraclePayload:  payload,
		},
		Trace: tr,
	}, nil
}

func (a *RiskOracle) buildOraclePayload(risk float64, category string, rec RiskRecommendation, factors map[string]float64, now time.Time) (OraclePayload, error) {
	scaledFactors := make(map[string]int, len(factors))
	for name, f := range factors {
		scaledFactors[name] = int(f * 100)
	}
	payload := OraclePayload{
		RiskScore:          int(risk * 10000),
		Category:           category,
		MaxRecommendedLoan: int(rec.MaxLoan),
		InterestTier:       rec.InterestTier,
		Timestamp:          now.UTC().Format(time.RFC3339),
		Factors:            scaledFactors,
	}
	sig, err := a.signer.Sign(oracle.Assessment{
		RiskScore: payload.RiskScore,
		Category:  payload.Category,
		MaxLoan:   payload.MaxRecommendedLoan,
		Timestamp: payload.Timestamp,
	})
	if err != nil {
		return OraclePayload{}, fmt.Errorf("signing assessment: %w", err)
	}
	payload.Signature = sig.Value
	payload.Signed = sig.Signed
	return payload, nil
}

func trustFactor(ac *Context) float64 {
	return math.Min(float64(ac.TrustScore)/100, 1)
}

func repaymentFactor(ac *Context) float64 {
	var completed, defaulted int
	for _, l := range ac.Loans {
		switch l.Status {
		case models.LoanStatusCompleted:
			completed++
		case models.LoanStatusDefaulted:
			defaulted++
		}
	}
	if completed+defaulted == 0 {
		return 0.5
	}
	base := float64(completed) / float64(completed+defaulted)
	bonus := math.Min(float64(completed)*0.05, 0.2)
	penalty := float64(defaulted) * 0.15
	return clamp(base+bonus-penalty, 0, 1)
}

func incomeStabilityFactor(ac *Context) float64 {
	// The history check runs over the whole diary; the variance itself is
	// computed over the last 30 days only.
	var total int
	for _, e := range ac.FinancialDiary {
		if e.EntryType == "income" {
			total++
		}
	}
	if total < 4 {
		return 0.3
	}
	entries := ac.RecentIncome(30 * 24 * time.Hour)
	if len(entries) < 2 {
		return 0.4
	}
	var sum float64
	for _, e := range entries {
		sum += e.Amount
	}
	mean := sum / float64(len(entries))
	if mean <= 0 {
		return 0.3
	}
	var variance float64
	for _, e := range entries {
		variance += (e.Amount - mean) * (e.Amount - mean)
	}
	variance /= float64(len(entries))
	cv := math.Sqrt(variance) / mean
	return clamp(1-0.7*cv, 0.3, 1.0)
}

var vouchLevelWeights = map[models.VouchLevel]float64{
	models.VouchLevelBasic:   1,
	models.VouchLevelStrong:  2,
	models.VouchLevelMaximum: 3,
}

func vouchStrengthFactor(ac *Context) float64 {
	active := ac.ActiveVouches()
	if len(active) == 0 {
		return 0.15
	}
	var stake, levelSum float64
	for _, v := range active {
		stake += v.SaathiStaked
		levelSum += vouchLevelWeights[v.Level]
	}
	n := float64(len(active))
	avgLevel := levelSum / n
	score := math.Min(n/5, 1)*0.3 + (avgLevel/3)*0.35 + math.Min(stake/500, 1)*0.35
	return math.Min(score, 1)
}

func circleHealthFactor(ac *Context) float64 {
	if len(ac.Circles) == 0 {
		return 0.2
	}
	var sizeSum float64
	for _, c := range ac.Circles {
		sizeSum += math.Min(float64(c.MemberCount)/10, 1)
	}
	avg := sizeSum / float64(len(ac.Circles))
	bonus := math.Min(float64(len(ac.Circles)-1)*0.1, 0.2)
	return math.Min(avg*0.8+bonus+0.2, 1)
}

func loanToIncomeFactor(ac *Context) float64 {
	var monthlyIncome float64
	for _, e := range ac.RecentIncome(30 * 24 * time.Hour) {
		monthlyIncome += e.Amount
	}
	active := ac.ActiveLoans()
	var monthlyEMI float64
	for _, l := range active {
		monthlyEMI += l.EMIAmount * 4
	}
	if monthlyIncome > 0 {
		ratio := monthlyEMI / monthlyIncome
		return clamp(1-1.6*ratio, 0.2, 1.0)
	}
	if len(active) > 0 {
		return 0.3
	}
	return 0.5
}

func outstandingDebt(ac *Context) float64 {
	var sum float64
	for _, l := range ac.ActiveLoans() {
		sum += l.Amount
	}
	return sum
}

func categorize(risk float64) string {
	switch {
	case risk >= 0.8:
		return CategoryLowRisk
	case risk >= 0.6:
		return CategoryModerateRisk
	case risk >= 0.4:
		return CategoryElevatedRisk
	default:
		return CategoryHighRisk
	}
}

func recommendFor(category string) RiskRecommendation {
	switch category {
	case CategoryLowRisk:
		return RiskRecommendation{MaxLoan: 50000, InterestTier: 1, InterestRate: 8}
	case CategoryModerateRisk:
		return RiskRecommendation{MaxLoan: 25000, InterestTier: 2, InterestRate: 10}
	case CategoryElevatedRisk:
		return RiskRecommendation{MaxLoan: 10000, InterestTier: 3, InterestRate: 12}
	default:
		return RiskRecommendation{MaxLoan: 5000, InterestTier: 4, InterestRate: 15}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
