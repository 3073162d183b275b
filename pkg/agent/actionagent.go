package agent

import (
	"context"
	"fmt"

	"github.com/kredefy/backend/pkg/trace"
)

// Action types the ActionAgent can emit.
const (
	ActionGuideFlow = "GUIDE_FLOW"
	ActionNavigate  = "NAVIGATE"
)

// GuideStep is one step of an in-app guided flow.
type GuideStep struct {
	Order       int    `json:"order"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ActionResult is the ActionAgent payload.
type ActionResult struct {
	Action     string         `json:"action,omitempty"`
	Target     string         `json:"target,omitempty"`
	Message    string         `json:"message,omitempty"`
	State      map[string]any `json:"state,omitempty"`
	GuideSteps []GuideStep    `json:"guide_steps,omitempty"`
}

// ActionAgent turns the pipeline's verdicts into one concrete in-app
// effect: a guided flow, a navigation, or nothing.
type ActionAgent struct{}

// NewActionAgent creates the agent.
func NewActionAgent() *ActionAgent { return &ActionAgent{} }

func (a *ActionAgent) Name() string { return ActionAgentName }

// Execute reads the resolved intent from earlier agents and drafts the
// matching effect.
func (a *ActionAgent) Execute(_ context.Context, ac *Context) (*Result, error) {
	tr := trace.New(ActionAgentName, "draft concrete action")

	intent := resolvedIntent(ac)
	tr.Observe("resolved intent: " + intent)

	var payload ActionResult
	switch intent {
	case IntentLoanRequest, IntentEmergency:
		payload = a.draftLoanFlow(ac, tr)
	case IntentTrustScore, "check_score":
		payload = ActionResult{
			Action:  ActionNavigate,
			Target:  "/trust",
			Message: "Here's your trust profile.",
		}
		tr.Act("navigating to trust profile")
	default:
		tr.Analyze("no concrete effect for intent " + intent)
	}

	if payload.Action == "" {
		tr.Conclude("no action required")
	} else {
		tr.Conclude(fmt.Sprintf("%s → %s", payload.Action, payload.Target))
	}

	var actions []Action
	if payload.Action != "" {
		actions = append(actions, Action{Type: payload.Action, Data: payload.State})
	}

	return &Result{
		AgentName: ActionAgentName,
		Success:   true,
		Payload:   payload,
		Trace:     tr,
		Actions:   actions,
	}, nil
}

// draftLoanFlow pre-fills a loan application from the risk verdict and the
// user's first circle.
func (a *ActionAgent) draftLoanFlow(ac *Context, tr *trace.Trace) ActionResult {
	amount := 10000.0
	if r, ok := ac.Result(RiskOracleName); ok && r.Success {
		if risk, ok := r.Payload.(RiskResult); ok && risk.Recommendation.MaxLoan > 0 {
			amount = risk.Recommendation.MaxLoan
		}
	}

	state := map[string]any{
		"amount":  amount,
		"purpose": "Emergency Support",
	}
	if len(ac.Circles) > 0 {
		state["circle_id"] = ac.Circles[0].ID
	}
	tr.Act(fmt.Sprintf("drafted loan application for ₹%.0f", amount))

	return ActionResult{
		Action:  ActionGuideFlow,
		Target:  "/loans/apply",
		Message: "I've drafted a loan application for you — review and confirm.",
		State:   state,
		GuideSteps: []GuideStep{
			{Order: 1, Title: "Review the draft", Description: "Check the pre-filled amount and purpose."},
			{Order: 2, Title: "Pick your circle", Description: "Your circle members will vote on the request."},
			{Order: 3, Title: "Submit", Description: "Send the request for circle voting."},
		},
	}
}

// resolvedIntent prefers Nova's classification, falling back to "general".
func resolvedIntent(ac *Context) string {
	if r, ok := ac.Result(NovaName); ok && r.Success {
		if nova, ok := r.Payload.(NovaResult); ok && nova.Intent != "" {
			return nova.Intent
		}
	}
	return "general"
}
