package agent

import (
	"context"
	"fmt"

	"github.com/kredefy/backend/pkg/models"
	"github.com/kredefy/backend/pkg/trace"
)

// TrustBreakdown attributes a trust score to its sources.
type TrustBreakdown struct {
	Base     int `json:"base"`
	Vouches  int `json:"vouches"`
	Loans    int `json:"loans"`
	Circles  int `json:"circles"`
	Learning int `json:"learning"`
}

// VouchQuality grades the received vouch portfolio.
type VouchQuality struct {
	Grade       string  `json:"grade"`
	ActiveCount int     `json:"active_count"`
	StrongCount int     `json:"strong_count"`
	TotalStaked float64 `json:"total_staked"`
}

// TrustPrediction is the projected 30-day score movement.
type TrustPrediction struct {
	Delta     int `json:"delta"`
	Projected int `json:"projected"`
}

// TrustTip is one growth suggestion.
type TrustTip struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// BharosaVisual is the five-tier presentation of a trust score.
type BharosaVisual struct {
	Level   string `json:"level"`
	Display string `json:"display"`
	Message string `json:"message"`
}

// TrustResult is the TrustAnalyzer payload.
type TrustResult struct {
	TrustScore    int             `json:"trust_score"`
	Breakdown     TrustBreakdown  `json:"breakdown"`
	VouchQuality  VouchQuality    `json:"vouch_quality"`
	Prediction    TrustPrediction `json:"prediction"`
	Tips          []TrustTip      `json:"tips"`
	BharosaVisual BharosaVisual   `json:"bharosa_visual"`
}

// TrustAnalyzer explains a member's trust score: where it comes from, how
// good the vouch network behind it is, and where it is headed.
type TrustAnalyzer struct{}

// NewTrustAnalyzer creates the agent.
func NewTrustAnalyzer() *TrustAnalyzer { return &TrustAnalyzer{} }

func (a *TrustAnalyzer) Name() string { return TrustAnalyzerName }

// Execute computes the breakdown, grade, prediction, tips and visual.
func (a *TrustAnalyzer) Execute(_ context.Context, ac *Context) (*Result, error) {
	tr := trace.New(TrustAnalyzerName, "analyze trust network")
	tr.Observe(fmt.Sprintf("trust score %d, %d vouches received, %d loans, %d circles",
		ac.TrustScore, len(ac.Vouches), len(ac.Loans), len(ac.Circles)))

	breakdown := trustBreakdown(ac)
	tr.Analyze(fmt.Sprintf("breakdown: base=%d vouches=%d loans=%d circles=%d learning=%d",
		breakdown.Base, breakdown.Vouches, breakdown.Loans, breakdown.Circles, breakdown.Learning))

	quality := vouchQuality(ac)
	tr.Analyze(fmt.Sprintf("vouch portfolio grade %s: %d active, ₹%.0f staked",
		quality.Grade, quality.ActiveCount, quality.TotalStaked))

	prediction := predictTrust(ac)
	tips := trustTips(ac, breakdown)
	visual := bharosaVisual(ac.TrustScore, ac.Language)

	tr.Hypothesize(fmt.Sprintf("projected score %d in 30 days (%+d)", prediction.Projected, prediction.Delta))
	tr.Conclude(fmt.Sprintf("%s at score %d, vouch grade %s", visual.Level, ac.TrustScore, quality.Grade))

	return &Result{
		AgentName: TrustAnalyzerName,
		Success:   true,
		Payload: TrustResult{
			TrustScore:    ac.TrustScore,
			Breakdown:     breakdown,
			VouchQuality:  quality,
			Prediction:    prediction,
			Tips:          tips,
			BharosaVisual: visual,
		},
		Trace: tr,
	}, nil
}

func trustBreakdown(ac *Context) TrustBreakdown {
	b := TrustBreakdown{Base: 10}

	b.Vouches = 5 * len(ac.ActiveVouches())
	if b.Vouches > 30 {
		b.Vouches = 30
	}

	completed := 0
	for _, l := range ac.Loans {
		if l.Status == models.LoanStatusCompleted {
			completed++
		}
	}
	b.Loans = 10 * completed
	if b.Loans > 40 {
		b.Loans = 40
	}

	b.Circles = 5 * len(ac.Circles)
	if b.Circles > 15 {
		b.Circles = 15
	}

	if rest := ac.TrustScore - b.Base - b.Vouches - b.Loans - b.Circles; rest > 0 {
		b.Learning = rest
	}
	return b
}

func vouchQuality(ac *Context) VouchQuality {
	active := ac.ActiveVouches()
	q := VouchQuality{ActiveCount: len(active)}
	for _, v := range active {
		q.TotalStaked += v.SaathiStaked
		if v.Level == models.VouchLevelStrong || v.Level == models.VouchLevelMaximum {
			q.StrongCount++
		}
	}
	switch {
	case q.StrongCount >= 3 && q.TotalStaked >= 200:
		q.Grade = "A"
	case q.StrongCount >= 2 || q.TotalStaked >= 100:
		q.Grade = "B"
	case q.ActiveCount >= 2:
		q.Grade = "C"
	default:
		q.Grade = "D"
	}
	return q
}

func predictTrust(ac *Context) TrustPrediction {
	delta := 0
	if len(ac.ActiveLoans()) > 0 {
		delta += 5
	}
	if len(ac.ActiveVouches()) > 0 {
		delta += 3
	}
	if len(ac.Circles) >= 2 {
		delta += 2
	}
	projected := ac.TrustScore + delta
	if projected > 100 {
		projected = 100
		delta = 100 - ac.TrustScore
	}
	return TrustPrediction{Delta: delta, Projected: projected}
}

// trustTips picks up to 3 suggestions targeting the weakest breakdown
// components.
func trustTips(ac *Context, b TrustBreakdown) []TrustTip {
	var tips []TrustTip
	if b.Vouches < 30 {
		tips = append(tips, TrustTip{ID: "get_vouches", Message: "Ask trusted circle members to vouch for you — each active vouch builds your score."})
	}
	if b.Loans < 40 {
		tips = append(tips, TrustTip{ID: "complete_loans", Message: "Repaying a small loan in full is the fastest way to grow trust."})
	}
	if b.Circles < 15 {
		tips = append(tips, TrustTip{ID: "join_circles", Message: "Join another circle to widen your trust network."})
	}
	if len(ac.FinancialDiary) < 10 {
		tips = append(tips, TrustTip{ID: "keep_diary", Message: "Log your income regularly so the advisor can vouch for your stability."})
	}
	if len(tips) > 3 {
		tips = tips[:3]
	}
	return tips
}

var bharosaMessages = map[string]map[string]string{
	"en": {
		"pakka_bharosa": "Rock-solid trust. Your word carries real weight here.",
		"bhrosemand":    "Trusted member. Keep the streak going.",
		"building":      "Your trust is growing steadily.",
		"new":           "You're getting started — every repayment counts.",
		"starting":      "Welcome! Build trust with vouches and small loans.",
	},
	"hi": {
		"pakka_bharosa": "पक्का भरोसा। आपकी बात का यहाँ वज़न है।",
		"bhrosemand":    "भरोसेमंद सदस्य। ऐसे ही आगे बढ़ें।",
		"building":      "आपका भरोसा लगातार बढ़ रहा है।",
		"new":           "शुरुआत अच्छी है — हर किस्त मायने रखती है।",
		"starting":      "स्वागत है! वाउच और छोटे कर्ज़ से भरोसा बनाएं।",
	},
}

func bharosaVisual(score int, language string) BharosaVisual {
	var level, display string
	switch {
	case score >= 80:
		level, display = "pakka_bharosa", "🟢 Pakka Bharosa"
	case score >= 60:
		level, display = "bhrosemand", "🔵 Bhrosemand"
	case score >= 40:
		level, display = "building", "🟡 Building"
	case score >= 20:
		level, display = "new", "🟠 New"
	default:
		level, display = "starting", "⚪ Starting"
	}
	messages, ok := bharosaMessages[language]
	if !ok {
		messages = bharosaMessages["en"]
	}
	return BharosaVisual{Level: level, Display: display, Message: messages[level]}
}
