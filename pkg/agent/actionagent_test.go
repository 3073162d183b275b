package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kredefy/backend/pkg/models"
)

func runActionAgent(t *testing.T, ac *Context) (*Result, ActionResult) {
	t.Helper()
	res, err := NewActionAgent().Execute(context.Background(), ac)
	require.NoError(t, err)
	require.True(t, res.Success)
	return res, res.Payload.(ActionResult)
}

func withNovaIntent(ac *Context, intent string) *Context {
	ac.SetResult(NovaName, &Result{
		AgentName: NovaName,
		Success:   true,
		Payload:   NovaResult{Intent: intent},
	})
	return ac
}

func TestLoanRequestDraftsGuidedFlow(t *testing.T) {
	ac := withNovaIntent(emptyContext(), IntentLoanRequest)
	ac.Circles = []models.Circle{{ID: "circle-7"}}
	ac.SetResult(RiskOracleName, &Result{
		AgentName: RiskOracleName,
		Success:   true,
		Payload: RiskResult{
			Category:       CategoryElevatedRisk,
			Recommendation: RiskRecommendation{MaxLoan: 10000},
		},
	})

	res, payload := runActionAgent(t, ac)

	assert.Equal(t, ActionGuideFlow, payload.Action)
	assert.Equal(t, "/loans/apply", payload.Target)
	assert.Equal(t, 10000.0, payload.State["amount"])
	assert.Equal(t, "circle-7", payload.State["circle_id"])
	assert.Equal(t, "Emergency Support", payload.State["purpose"])
	assert.Len(t, payload.GuideSteps, 3)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, ActionGuideFlow, res.Actions[0].Type)
}

func TestLoanDraftDefaultsWithoutRiskVerdict(t *testing.T) {
	ac := withNovaIntent(emptyContext(), IntentLoanRequest)
	_, payload := runActionAgent(t, ac)

	assert.Equal(t, 10000.0, payload.State["amount"])
	_, hasCircle := payload.State["circle_id"]
	assert.False(t, hasCircle)
}

func TestTrustScoreNavigates(t *testing.T) {
	ac := withNovaIntent(emptyContext(), IntentTrustScore)
	_, payload := runActionAgent(t, ac)

	assert.Equal(t, ActionNavigate, payload.Action)
	assert.Equal(t, "/trust", payload.Target)
}

func TestOtherIntentsAreNoOps(t *testing.T) {
	ac := withNovaIntent(emptyContext(), IntentGreeting)
	res, payload := runActionAgent(t, ac)

	assert.Empty(t, payload.Action)
	assert.Empty(t, res.Actions)
	assert.True(t, res.Trace.Concluded())
}

func TestMissingNovaResultFallsBackToGeneral(t *testing.T) {
	_, payload := runActionAgent(t, emptyContext())
	assert.Empty(t, payload.Action)
}

func TestResultOrderIsPreserved(t *testing.T) {
	ac := emptyContext()
	ac.SetResult("B", &Result{AgentName: "B"})
	ac.SetResult("A", &Result{AgentName: "A"})
	ac.SetResult("B", &Result{AgentName: "B"})

	assert.Equal(t, []string{"B", "A"}, ac.ResultOrder())
}
