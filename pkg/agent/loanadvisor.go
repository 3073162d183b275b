package agent

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/trace"
)

// IncomeEstimate is the diary-derived monthly income with an estimation
// confidence.
type IncomeEstimate struct {
	Monthly    float64 `json:"monthly"`
	Confidence float64 `json:"confidence"`
	Samples    int     `json:"samples"`
}

// AdvisorRecommendation is the affordability verdict.
type AdvisorRecommendation struct {
	CanBorrow         bool    `json:"can_borrow"`
	Reason            string  `json:"reason,omitempty"`
	Advice            string  `json:"advice,omitempty"`
	SuggestedAction   string  `json:"suggested_action,omitempty"`
	MaxAmount         float64 `json:"max_amount"`
	RecommendedAmount float64 `json:"recommended_amount"`
	WeeklyEMI         float64 `json:"weekly_emi"`
	TenureWeeks       int     `json:"tenure_weeks"`
	Explanation       string  `json:"explanation,omitempty"`
}

// AdvisorResult is the LoanAdvisor payload.
type AdvisorResult struct {
	Recommendation AdvisorRecommendation `json:"recommendation"`
	Income         IncomeEstimate        `json:"income_analysis"`
	TrustScore     int                   `json:"trust_score"`
}

// Decline reasons and follow-up actions.
const (
	reasonEMITooHigh     = "existing_emi_too_high"
	reasonTrustTooLow    = "trust_too_low"
	actionWait           = "wait"
	actionGetVouches     = "get_vouches"
	defaultMonthlyIncome = 10000.0
)

// LoanAdvisor works out what the user can safely borrow from their diary
// income, existing EMIs and trust standing.
type LoanAdvisor struct{}

// NewLoanAdvisor creates the agent.
func NewLoanAdvisor() *LoanAdvisor { return &LoanAdvisor{} }

func (a *LoanAdvisor) Name() string { return LoanAdvisorName }

// Execute derives the affordability recommendation.
func (a *LoanAdvisor) Execute(_ context.Context, ac *Context) (*Result, error) {
	tr := trace.New(LoanAdvisorName, "assess loan affordability")

	income := estimateIncome(ac)
	tr.Observe(fmt.Sprintf("estimated monthly income ₹%.0f from %d diary entries (confidence %.2f)",
		income.Monthly, income.Samples, income.Confidence))

	var currentEMI float64
	for _, l := range ac.ActiveLoans() {
		currentEMI += l.EMIAmount
	}
	// Named weekly in the product even though the 30% rule is applied to
	// monthly income; the formula is kept as shipped.
	safeWeeklyEMI := 0.30*income.Monthly - currentEMI
	tr.Analyze(fmt.Sprintf("current EMI ₹%.0f leaves safe weekly EMI ₹%.0f", currentEMI, safeWeeklyEMI))

	maxLoan := math.Min(5000+450*float64(ac.TrustScore), 50000) * trustMultiplier(ac.TrustScore)
	maxLoan = math.Min(maxLoan, 50000)

	rec := AdvisorRecommendation{MaxAmount: maxLoan, TenureWeeks: 10}
	switch {
	case safeWeeklyEMI <= 0:
		rec.CanBorrow = false
		rec.Reason = reasonEMITooHigh
		rec.SuggestedAction = actionWait
		rec.Advice = adviceText(ac.Language, reasonEMITooHigh)
		tr.Conclude("decline: existing EMI load leaves no repayment headroom", 0.9)
	case ac.TrustScore < 20:
		rec.CanBorrow = false
		rec.Reason = reasonTrustTooLow
		rec.SuggestedAction = actionGetVouches
		rec.Advice = adviceText(ac.Language, reasonTrustTooLow)
		tr.Conclude("decline: trust score below lending floor", 0.9)
	default:
		rec.CanBorrow = true
		rec.RecommendedAmount = math.Min(maxLoan, safeWeeklyEMI*10*4)
		rec.WeeklyEMI = rec.RecommendedAmount / 10
		rec.Explanation = explanationText(ac.Language, rec.RecommendedAmount, rec.WeeklyEMI)
		tr.Hypothesize(fmt.Sprintf("trust multiplier %.2f caps lending at ₹%.0f",
			trustMultiplier(ac.TrustScore), maxLoan))
		tr.Conclude(fmt.Sprintf("recommend ₹%.0f over 10 weeks at ₹%.0f/week",
			rec.RecommendedAmount, rec.WeeklyEMI))
	}

	return &Result{
		AgentName: LoanAdvisorName,
		Success:   true,
		Payload: AdvisorResult{
			Recommendation: rec,
			Income:         income,
			TrustScore:     ac.TrustScore,
		},
		Trace: tr,
	}, nil
}

// estimateIncome extrapolates monthly income from the most recent income
// entries. A sparse diary divides by a fractional month count, so a handful
// of samples still projects to a full month. With no diary the platform
// default applies at low confidence.
func estimateIncome(ac *Context) IncomeEstimate {
	var entries []models.DiaryEntry
	for _, e := range ac.FinancialDiary {
		if e.EntryType == "income" {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return IncomeEstimate{Monthly: defaultMonthlyIncome, Confidence: 0.3}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].RecordedAt.After(entries[j].RecordedAt)
	})
	if len(entries) > 30 {
		entries = entries[:30]
	}
	var sum float64
	for _, e := range entries {
		sum += e.Amount
	}
	months := math.Min(float64(len(entries))/10, 3)
	if months <= 0 {
		return IncomeEstimate{Monthly: defaultMonthlyIncome, Confidence: 0.3}
	}
	return IncomeEstimate{
		Monthly:    sum / months,
		Confidence: math.Min(0.5+float64(len(entries))*0.02, 0.9),
		Samples:    len(entries),
	}
}

func trustMultiplier(score int) float64 {
	switch {
	case score >= 80:
		return 2.0
	case score >= 60:
		return 1.5
	case score >= 40:
		return 1.0
	case score >= 20:
		return 0.5
	default:
		return 0.25
	}
}

var adviceTemplates = map[string]map[string]string{
	"en": {
		reasonEMITooHigh:  "Your current repayments already use your safe borrowing capacity. Clear an existing loan before taking a new one.",
		reasonTrustTooLow: "Your trust score is still building. Ask circle members who know you to vouch for you, then try again.",
	},
	"hi": {
		reasonEMITooHigh:  "आपकी मौजूदा किस्तें पहले से ही आपकी सुरक्षित सीमा ले रही हैं। नया कर्ज़ लेने से पहले पुराना चुकाएं।",
		reasonTrustTooLow: "आपका भरोसा स्कोर अभी बन रहा है। अपने सर्कल के लोगों से वाउच करवाएं, फिर दोबारा कोशिश करें।",
	},
	"ml": {
		reasonEMITooHigh:  "നിലവിലെ തിരിച്ചടവുകൾ നിങ്ങളുടെ സുരക്ഷിത പരിധി ഉപയോഗിച്ചു കഴിഞ്ഞു. പുതിയ വായ്പയ്ക്ക് മുമ്പ് നിലവിലുള്ളത് അടച്ചുതീർക്കുക.",
		reasonTrustTooLow: "നിങ്ങളുടെ വിശ്വാസ സ്കോർ ഇപ്പോഴും വളരുകയാണ്. സർക്കിളിലെ അംഗങ്ങളോട് വൗച്ച് ചെയ്യാൻ ആവശ്യപ്പെടുക.",
	},
}

func adviceText(language, reason string) string {
	if byLang, ok := adviceTemplates[language]; ok {
		if text, ok := byLang[reason]; ok {
			return text
		}
	}
	return adviceTemplates["en"][reason]
}

var explanationTemplates = map[string]string{
	"en": "Based on your income diary you can comfortably borrow ₹%.0f and repay ₹%.0f every week for 10 weeks.",
	"hi": "आपकी आय डायरी के अनुसार आप आराम से ₹%.0f उधार ले सकते हैं और 10 हफ़्तों तक हर हफ़्ते ₹%.0f चुका सकते हैं।",
	"ml": "നിങ്ങളുടെ വരുമാന ഡയറി പ്രകാരം ₹%.0f കടമെടുത്ത് 10 ആഴ്ചത്തേക്ക് ആഴ്ചതോറും ₹%.0f തിരിച്ചടയ്ക്കാം.",
}

func explanationText(language string, amount, weeklyEMI float64) string {
	tpl, ok := explanationTemplates[language]
	if !ok {
		tpl = explanationTemplates["en"]
	}
	return fmt.Sprintf(tpl, amount, weeklyEMI)
}
